package telegram

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"medscan-bot/api/internal/i18n"
	"medscan-bot/api/internal/payment"
	"medscan-bot/api/internal/pipeline"
	"medscan-bot/api/internal/store"
)

// WelcomePoints is credited once when a user completes registration.
const WelcomePoints = 500

// analyzeTimeout bounds a single document analysis end to end,
// including OCR and all model calls.
const analyzeTimeout = 10 * time.Minute

type Router struct {
	Bot         *tgbotapi.BotAPI
	Users       *store.UserRepo
	Specialists *store.SpecialistRepo
	Invoices    *store.InvoiceRepo
	Analyzer    *pipeline.Analyzer
	Merchant    payment.Merchant
	MainBot     bool
	Log         *slog.Logger

	limiter  *rate.Limiter
	sessions *sessionManager
	groups   *groupTracker
}

func NewRouter(bot *tgbotapi.BotAPI, users *store.UserRepo, specialists *store.SpecialistRepo,
	invoices *store.InvoiceRepo, analyzer *pipeline.Analyzer, merchant payment.Merchant,
	mainBot bool, log *slog.Logger) *Router {
	return &Router{
		Bot:         bot,
		Users:       users,
		Specialists: specialists,
		Invoices:    invoices,
		Analyzer:    analyzer,
		Merchant:    merchant,
		MainBot:     mainBot,
		Log:         log,
		// Telegram allows ~30 messages per second per bot.
		limiter:  rate.NewLimiter(rate.Limit(25), 5),
		sessions: newSessionManager(),
		groups:   newGroupTracker(mediaGroupTTL),
	}
}

// HandleUpdate processes one Telegram update. It is safe to call from
// multiple goroutines.
func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			r.Log.Error("telegram.update.panic", "panic", p)
		}
	}()

	ctx := context.Background()

	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.From == nil {
		return
	}
	msg := upd.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if err := r.Users.Touch(ctx, userID); err != nil {
		r.Log.Error("telegram.user.touch", "user_id", userID, "error", err)
	}

	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg)
	case isLanguageLabel(msg.Text):
		r.selectLanguage(ctx, chatID, userID, msg.Text)
	case msg.Document != nil:
		r.handleDocument(ctx, msg)
	case len(msg.Photo) > 0:
		r.handlePhoto(ctx, msg)
	case matchesKey(msg.Text, "register"):
		r.startRegistration(ctx, chatID, userID)
	case matchesKey(msg.Text, "analyse"):
		r.explainAnalysis(ctx, chatID, userID)
	case matchesKey(msg.Text, "payment"):
		r.showPayment(ctx, chatID, userID)
	case matchesKey(msg.Text, "instruction"):
		r.sendKey(ctx, chatID, userID, "help_text", nil)
	case matchesKey(msg.Text, "info"):
		r.showInfo(ctx, chatID, userID)
	case matchesKey(msg.Text, "menu"):
		r.showMenu(ctx, chatID, userID)
	default:
		r.handleText(ctx, msg)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		r.sendLanguagePrompt(ctx, chatID)
	case "language":
		r.sendLanguagePrompt(ctx, chatID)
	case "register":
		r.startRegistration(ctx, chatID, userID)
	case "cancel":
		r.cancelRegistration(ctx, chatID, userID)
	case "menu":
		r.showMenu(ctx, chatID, userID)
	case "analyse":
		r.explainAnalysis(ctx, chatID, userID)
	case "payment":
		r.showPayment(ctx, chatID, userID)
	default:
		r.sendKey(ctx, chatID, userID, "please_follow", nil)
	}
}

// handleText routes plain text through the registration state machine.
func (r *Router) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	state, err := r.Users.State(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.user.state", "user_id", userID, "error", err)
		r.sendKey(ctx, chatID, userID, "error_generic", nil)
		return
	}

	switch state {
	case store.StateAwaitName:
		r.processName(ctx, chatID, userID, msg.Text)
	case store.StateAwaitPhone:
		r.processPhone(ctx, chatID, userID, msg.Text)
	case store.StateAwaitConfirm:
		r.processConfirmation(ctx, chatID, userID, msg.Text)
	default:
		r.sendKey(ctx, chatID, userID, "please_follow", nil)
	}
}

// matchesKey reports whether text equals the given menu label in any
// supported language.
func matchesKey(text, key string) bool {
	return text != "" && lo.Contains(i18n.All(key), text)
}

func isLanguageLabel(text string) bool {
	_, ok := i18n.Languages[text]
	return ok
}
