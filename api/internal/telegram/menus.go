package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medscan-bot/api/internal/i18n"
)

func mainMenuKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, "analyse")),
			tgbotapi.NewKeyboardButton(i18n.T(lang, "payment")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, "instruction")),
			tgbotapi.NewKeyboardButton(i18n.T(lang, "info")),
		),
	)
}

func registerKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, "register")),
			tgbotapi.NewKeyboardButton(i18n.T(lang, "menu")),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func confirmKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(i18n.T(lang, "correct")),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func languageKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🇬🇧 English"),
			tgbotapi.NewKeyboardButton("🇷🇺 Русский"),
			tgbotapi.NewKeyboardButton("🇰🇿 Қазақша"),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(false)
}

// analysisHelpKeyboard links short how-to videos for sending files.
func analysisHelpKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "Send_photo"), "howto_photo"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "Send_pdf_ios"), "howto_pdf_ios"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "Send_pdf_android"), "howto_pdf_android"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "Send_screenshot"), "howto_screenshot"),
		),
	)
}

func productsKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "product_500_name"), "product_500"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.T(lang, "product_1000_name"), "product_1000"),
		),
	)
}

// specialistKeyboard renders one button per recommended specialist so
// the user can look up partner doctors.
func specialistKeyboard(specialists []string) *tgbotapi.InlineKeyboardMarkup {
	if len(specialists) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(specialists))
	for _, name := range specialists {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(name, "specialist_"+name),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (r *Router) sendLanguagePrompt(ctx context.Context, chatID int64) {
	r.sendText(chatID, i18n.T(i18n.DefaultLanguage, "choose_language"), languageKeyboard())
}

func (r *Router) selectLanguage(ctx context.Context, chatID, userID int64, label string) {
	code := i18n.Languages[label]
	if err := r.Users.SetLanguage(ctx, userID, code); err != nil {
		r.Log.Error("telegram.user.set_language", "user_id", userID, "error", err)
		r.sendKey(ctx, chatID, userID, "error_generic", nil)
		return
	}
	registered, err := r.Users.Registered(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.register.check", "user_id", userID, "error", err)
		return
	}
	if registered {
		r.sendText(chatID, i18n.T(code, "welcome_back"), mainMenuKeyboard(code))
	} else {
		r.sendText(chatID, i18n.T(code, "welcome_register"), registerKeyboard(code))
	}
}

func (r *Router) showMenu(ctx context.Context, chatID, userID int64) {
	lang := r.lang(ctx, userID)
	r.sendText(chatID, i18n.T(lang, "menu_text"), mainMenuKeyboard(lang))
}

func (r *Router) explainAnalysis(ctx context.Context, chatID, userID int64) {
	lang := r.lang(ctx, userID)
	r.sendText(chatID, i18n.T(lang, "analysis_explained"), analysisHelpKeyboard(lang))
}

func (r *Router) showInfo(ctx context.Context, chatID, userID int64) {
	lang := r.lang(ctx, userID)
	points, err := r.Users.Points(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.user.points", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	r.sendText(chatID, i18n.Tf(lang, "info_message", map[string]any{"points": points}), mainMenuKeyboard(lang))
}

func (r *Router) showPayment(ctx context.Context, chatID, userID int64) {
	lang := r.lang(ctx, userID)
	r.sendText(chatID, i18n.T(lang, "payment_text"), productsKeyboard(lang))
}
