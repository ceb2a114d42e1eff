package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medscan-bot/api/internal/i18n"
	"medscan-bot/api/internal/pipeline"
	"medscan-bot/api/internal/util"
)

// typingInterval is how often the typing indicator is refreshed while
// the pipeline runs. Telegram drops the indicator after ~5 seconds.
const typingInterval = 4 * time.Second

func (r *Router) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	if r.warnMediaGroup(ctx, msg) {
		return
	}
	doc := msg.Document
	if doc.MimeType != "application/pdf" {
		r.sendKey(ctx, chatID, userID, "send_pdf", nil)
		return
	}
	if doc.FileSize > pipeline.MaxDocumentBytes {
		r.sendKey(ctx, chatID, userID, "too_large", nil)
		return
	}
	r.runAnalysis(ctx, chatID, userID, doc.FileID, pipeline.KindPDF)
}

func (r *Router) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	if r.warnMediaGroup(ctx, msg) {
		return
	}
	// Telegram sends the same photo in several resolutions; the last
	// entry is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	r.runAnalysis(ctx, chatID, userID, photo.FileID, pipeline.KindImage)
}

// mediaGroupTTL is how long a media-group id is remembered. Telegram
// delivers an album's messages within seconds of each other.
const mediaGroupTTL = 10 * time.Minute

// groupTracker remembers recently-seen media-group ids. Stale entries
// are pruned on access, so the set stays bounded by the album rate
// within one TTL window.
type groupTracker struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func newGroupTracker(ttl time.Duration) *groupTracker {
	return &groupTracker{seen: make(map[string]time.Time), ttl: ttl}
}

// First reports whether id has not been seen within the TTL, and
// remembers it.
func (g *groupTracker) First(id string) bool {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, at := range g.seen {
		if now.Sub(at) > g.ttl {
			delete(g.seen, k)
		}
	}
	_, ok := g.seen[id]
	g.seen[id] = now
	return !ok
}

// warnMediaGroup answers albums with a "one at a time" note, once per
// group, and tells the caller to skip the message.
func (r *Router) warnMediaGroup(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg.MediaGroupID == "" {
		return false
	}
	if r.groups.First(msg.MediaGroupID) {
		r.sendKey(ctx, msg.Chat.ID, msg.From.ID, "send_one", nil)
	}
	return true
}

func (r *Router) runAnalysis(ctx context.Context, chatID, userID int64, fileID string, kind pipeline.Kind) {
	lang := r.lang(ctx, userID)

	data, err := r.downloadFile(fileID)
	if err != nil {
		r.Log.Error("telegram.download", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	// Telegram trusts the client-declared MIME type; check the bytes too.
	if kind == pipeline.KindPDF && !util.IsPDF(data) {
		r.sendText(chatID, i18n.T(lang, "send_pdf"), nil)
		return
	}

	intake, err := r.Analyzer.Inspect(data, kind)
	if err != nil {
		if errors.Is(err, pipeline.ErrDocumentTooLarge) {
			r.sendText(chatID, i18n.T(lang, "too_large"), nil)
			return
		}
		r.Log.Error("telegram.inspect", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	cost := int64(intake.Cost)

	points, err := r.Users.Points(ctx, userID)
	if err != nil {
		r.Log.Error("telegram.user.points", "user_id", userID, "error", err)
		r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		return
	}
	if points < cost {
		key := "insufficient"
		if !r.MainBot {
			key = "premium"
		}
		r.sendText(chatID, i18n.Tf(lang, key, map[string]any{
			"required_points":     cost,
			"insufficient_points": points,
			"additional_points":   cost - points,
		}), productsKeyboard(lang))
		return
	}

	progressMsg := r.sendText(chatID, i18n.T(lang, "data_analyzing"), removeKeyboard())
	r.typing(chatID)
	last := time.Now()

	actx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	res, err := r.Analyzer.Analyze(actx, pipeline.Request{
		Data:     data,
		Kind:     kind,
		Language: i18n.T(lang, "for_gpt"),
		Progress: func() {
			if time.Since(last) >= typingInterval {
				r.typing(chatID)
				last = time.Now()
			}
		},
	})
	if err != nil {
		r.Log.Error("telegram.analyze", "user_id", userID, "error", err)
		if progressMsg != nil {
			r.deleteMessage(chatID, progressMsg.MessageID)
		}
		switch {
		case errors.Is(err, pipeline.ErrSummarizationFailed),
			errors.Is(err, pipeline.ErrInterpretationFailed):
			r.sendText(chatID, i18n.T(lang, "error_api"), nil)
		default:
			r.sendText(chatID, i18n.T(lang, "error_generic"), nil)
		}
		return
	}

	r.dispatchResult(ctx, chatID, userID, lang, res, cost, progressMsg)
}

// downloadFile fetches a Telegram file's bytes through the file API.
func (r *Router) downloadFile(fileID string) ([]byte, error) {
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	resp, err := http.Get(file.Link(r.Bot.Token))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
