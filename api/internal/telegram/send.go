package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medscan-bot/api/internal/i18n"
)

// lang returns the user's stored language, defaulting to English.
func (r *Router) lang(ctx context.Context, userID int64) string {
	return r.Users.Language(ctx, userID)
}

// sendText sends an HTML message through the shared rate limiter.
// markup may be nil.
func (r *Router) sendText(chatID int64, text string, markup any) *tgbotapi.Message {
	if err := r.limiter.Wait(context.Background()); err != nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := r.Bot.Send(msg)
	if err != nil {
		r.Log.Error("telegram.send", "chat_id", chatID, "error", err)
		return nil
	}
	return &sent
}

// sendKey sends the localized message for key in the user's language.
func (r *Router) sendKey(ctx context.Context, chatID, userID int64, key string, markup any) {
	r.sendText(chatID, i18n.T(r.lang(ctx, userID), key), markup)
}

func (r *Router) typing(chatID int64) {
	if _, err := r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		r.Log.Debug("telegram.typing", "chat_id", chatID, "error", err)
	}
}

func (r *Router) deleteMessage(chatID int64, messageID int) {
	if _, err := r.Bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		r.Log.Debug("telegram.delete", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.Log.Debug("telegram.callback.answer", "error", err)
	}
}
