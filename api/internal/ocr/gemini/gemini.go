// Package gemini implements the OCR service on top of Gemini's vision
// models: one image in, detected text out.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"medscan-bot/api/internal/util"
)

const ocrPrompt = "Extract ALL text visible in this image exactly as it appears, " +
	"preserving line breaks and reading order. Do not translate, summarize or " +
	"interpret. If the image contains no readable text, return an empty response."

type Engine struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

func New(ctx context.Context, apiKey, model string, log *slog.Logger) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiOCR",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("ocr.breaker.state_change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Engine{client: client, model: model, breaker: breaker, log: log}, nil
}

// DetectText runs one OCR round trip over the whole image. An empty string
// means no text was detected; errors are transport/API failures.
func (e *Engine) DetectText(ctx context.Context, image []byte) (string, error) {
	format := util.SniffImageFormat(image)

	out, err := e.breaker.Execute(func() (any, error) {
		m := e.client.GenerativeModel(e.model)
		m.SetTemperature(0)
		resp, err := m.GenerateContent(ctx,
			genai.ImageData(format, image),
			genai.Text(ocrPrompt),
		)
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", nil
		}
		var b strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		return b.String(), nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini ocr: %w", err)
	}

	text := strings.TrimSpace(out.(string))
	e.log.Debug("ocr.detect_text", "format", format, "image_bytes", len(image), "chars", len(text))
	return text, nil
}

func (e *Engine) Close() error { return e.client.Close() }
