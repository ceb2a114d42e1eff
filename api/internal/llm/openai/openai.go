// Package openai implements the generative-text service over the OpenAI
// chat/completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Engine struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	TopP        float64

	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

func New(apiKey, model string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OpenAIChat",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("llm.breaker.state_change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Engine{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     defaultBaseURL,
		Temperature: 0.3,
		TopP:        1,
		httpc:       &http.Client{Timeout: 120 * time.Second},
		breaker:     breaker,
		log:         log,
	}
}

// Complete performs one chat round trip and returns the raw assistant text.
func (e *Engine) Complete(ctx context.Context, system, user string) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is empty")
	}

	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{"role": "system", "content": system},
			map[string]any{"role": "user", "content": user},
		},
		"temperature": e.Temperature,
		"top_p":       e.TopP,
	}
	payload, _ := json.Marshal(body)

	start := time.Now()
	out, err := e.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(e.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.APIKey)

		resp, err := e.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			x, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("openai %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
		}

		var raw struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, err
		}
		if len(raw.Choices) == 0 {
			return nil, fmt.Errorf("openai: empty response")
		}
		return strings.TrimSpace(raw.Choices[0].Message.Content), nil
	})
	if err != nil {
		e.log.Error("llm.complete.error", "model", e.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	text := out.(string)
	e.log.Info("llm.complete", "model", e.Model, "prompt_chars", len(system)+len(user),
		"response_chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
