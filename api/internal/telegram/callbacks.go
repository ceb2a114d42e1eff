package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medscan-bot/api/internal/i18n"
	"medscan-bot/api/internal/store"
)

// product is a purchasable point package.
type product struct {
	Points int64
	Price  int // payment amount in the merchant currency
}

var products = map[string]product{
	"500":  {Points: 500, Price: 500},
	"1000": {Points: 1000, Price: 990},
}

// howToVideos maps the analysis-help buttons to short walkthroughs.
var howToVideos = map[string]string{
	"photo":       "https://youtube.com/shorts/4qrBtSrn8-0",
	"pdf_ios":     "https://youtube.com/shorts/fnPW4zWvpJc",
	"pdf_android": "https://youtube.com/shorts/tFGN0nK_tEA",
	"screenshot":  "https://youtube.com/shorts/gmKJG1r-528",
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	userID := cb.From.ID
	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "product_"):
		r.answerCallback(cb.ID, "")
		r.createInvoice(ctx, chatID, userID, strings.TrimPrefix(data, "product_"))
	case strings.HasPrefix(data, "specialist_"):
		r.answerCallback(cb.ID, "")
		r.showDoctors(ctx, chatID, userID, strings.TrimPrefix(data, "specialist_"))
	case strings.HasPrefix(data, "howto_"):
		r.answerCallback(cb.ID, "")
		if url, ok := howToVideos[strings.TrimPrefix(data, "howto_")]; ok {
			r.sendText(chatID, url, nil)
		}
	default:
		r.Log.Warn("telegram.callback.unknown", "data", data)
		r.answerCallback(cb.ID, "")
	}
}

// createInvoice records a pending invoice and sends the payment link.
func (r *Router) createInvoice(ctx context.Context, chatID, userID int64, productID string) {
	lang := r.lang(ctx, userID)
	p, ok := products[productID]
	if !ok {
		r.Log.Warn("telegram.payment.unknown_product", "product_id", productID)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}

	// Second precision is enough: one user cannot start two checkouts in
	// the same second, and the merchant requires ids to fit ten digits.
	invoiceID := time.Now().Unix() % 10_000_000_000

	if err := r.Invoices.Create(ctx, store.Invoice{
		InvoiceID: invoiceID,
		UserID:    userID,
		ProductID: productID,
		Points:    p.Points,
		Price:     p.Price,
	}); err != nil {
		r.Log.Error("telegram.payment.invoice", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}

	title := i18n.Tf(lang, "product_title", map[string]any{"points": p.Points})
	link := r.Merchant.PaymentLink(p.Price, invoiceID, title)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(i18n.T(lang, "pay_button"), link),
		),
	)
	r.Log.Info("telegram.payment.link", "user_id", userID, "invoice_id", invoiceID, "product_id", productID)
	r.sendText(chatID, i18n.T(lang, "pay_prompt"), kb)
}

// NotifyPayment tells a user their balance was credited. Called from
// the payment-result endpoint, outside any update flow.
func (r *Router) NotifyPayment(userID, points int64) {
	ctx := context.Background()
	lang := r.lang(ctx, userID)
	r.sendText(userID, i18n.Tf(lang, "successful_payment", map[string]any{
		"points_based_on_product_id": points,
	}), mainMenuKeyboard(lang))
}

// showDoctors lists the partner doctors for a recommended specialist.
func (r *Router) showDoctors(ctx context.Context, chatID, userID int64, specialist string) {
	doctors, err := r.Specialists.DoctorsFor(ctx, specialist)
	if err != nil {
		r.Log.Error("telegram.doctors", "specialist", specialist, "error", err)
		r.sendKey(ctx, chatID, userID, "error_generic", nil)
		return
	}
	if len(doctors) == 0 {
		r.sendText(chatID, "<b>"+specialist+"</b>: —", nil)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", specialist)
	for _, d := range doctors {
		fmt.Fprintf(&b, "\n<b>%s</b>\n%s\n", d.Name, d.Position)
		if d.MedicalCenter != "" {
			fmt.Fprintf(&b, "%s\n", d.MedicalCenter)
		}
		if d.Address != "" {
			fmt.Fprintf(&b, "%s\n", d.Address)
		}
		if d.Phone != "" {
			fmt.Fprintf(&b, "%s\n", d.Phone)
		}
		if d.Price > 0 {
			fmt.Fprintf(&b, "%d ₸\n", d.Price)
		}
		if d.Link != "" {
			fmt.Fprintf(&b, `<a href="%s">→</a>`+"\n", d.Link)
		}
	}
	r.sendText(chatID, b.String(), nil)
}
