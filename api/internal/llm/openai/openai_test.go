package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, handler http.HandlerFunc) *Engine {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	e := New("test-key", "test-model", nil)
	e.BaseURL = srv.URL
	return e
}

func TestComplete(t *testing.T) {
	var gotBody map[string]any
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  hello  "}}]}`))
	})

	out, err := e.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	require.Equal(t, "hello", out, "response is trimmed")
	require.Equal(t, "test-model", gotBody["model"])

	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].(map[string]any)["role"])
	require.Equal(t, "sys", msgs[0].(map[string]any)["content"])
}

func TestCompleteHTTPError(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit"}`, http.StatusTooManyRequests)
	})
	_, err := e.Complete(context.Background(), "sys", "usr")
	require.ErrorContains(t, err, "429")
}

func TestCompleteEmptyChoices(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := e.Complete(context.Background(), "sys", "usr")
	require.ErrorContains(t, err, "empty response")
}

func TestCompleteMissingKey(t *testing.T) {
	e := New("", "m", nil)
	_, err := e.Complete(context.Background(), "sys", "usr")
	require.ErrorContains(t, err, "OPENAI_API_KEY")
}
