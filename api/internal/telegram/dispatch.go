package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medscan-bot/api/internal/i18n"
	"medscan-bot/api/internal/pipeline"
	"medscan-bot/api/internal/sanitize"
)

// maxMessageLength is Telegram's per-message character limit.
const maxMessageLength = 4096

// segmentMessage splits text into rune-safe pieces of at most limit
// characters. A boundary that would land inside an HTML tag is moved
// back to just before the tag's "<", so tags stay whole. Concatenating
// the pieces restores the input.
func segmentMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		cut := end
		for i := end - 1; i > start; i-- {
			if runes[i] == '>' {
				break
			}
			if runes[i] == '<' {
				cut = i
				break
			}
		}
		out = append(out, string(runes[start:cut]))
		start = cut
	}
	return out
}

// dispatchResult delivers the interpretation in Telegram-sized pages,
// then debits the point cost and reports the new balance. Points are
// only charged once delivery has started, so a failed pipeline never
// costs the user anything.
func (r *Router) dispatchResult(ctx context.Context, chatID, userID int64, lang string,
	res *pipeline.Result, cost int64, progressMsg *tgbotapi.Message) {
	if progressMsg != nil {
		r.deleteMessage(chatID, progressMsg.MessageID)
	}

	// Sanitize the whole text once, then split; segment boundaries never
	// land inside a tag, so no segment carries half of one.
	text := sanitize.HTML(res.Interpretation) + i18n.T(lang, "signature")
	var markup any
	if kb := specialistKeyboard(res.Specialists); kb != nil {
		markup = kb
	}

	for _, segment := range segmentMessage(text, maxMessageLength) {
		r.typing(chatID)
		r.sendText(chatID, segment, markup)
	}

	points := r.debit(ctx, userID, cost)
	r.sendText(chatID, i18n.Tf(lang, "last_message", map[string]any{
		"required_points": cost,
		"current_points":  points,
	}), mainMenuKeyboard(lang))
}

// debit charges cost exactly once after delivery has begun and returns
// the remaining balance.
func (r *Router) debit(ctx context.Context, userID, cost int64) int64 {
	ok, err := r.Users.SubtractPoints(ctx, userID, cost)
	if err != nil {
		r.Log.Error("telegram.debit", "user_id", userID, "cost", cost, "error", err)
	} else if !ok {
		// Balance raced below the pre-flight check; the analysis was
		// already delivered, so just record it.
		r.Log.Warn("telegram.debit.insufficient", "user_id", userID, "cost", cost)
	}

	points, err := r.Users.Points(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.user.points", "user_id", userID, "error", err)
	}
	return points
}
