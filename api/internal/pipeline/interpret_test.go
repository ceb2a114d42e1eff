package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (c *scriptedCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	i := c.calls - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

type fakeCatalog struct {
	mu     sync.Mutex
	names  []string
	counts map[string]int
}

func newFakeCatalog(names ...string) *fakeCatalog {
	return &fakeCatalog{names: names, counts: make(map[string]int)}
}

func (c *fakeCatalog) ListNames(context.Context) ([]string, error) { return c.names, nil }

func (c *fakeCatalog) IncrementRecommendation(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name]++
	return nil
}

const goodResponse = "Here is your result.\n```json\n" +
	`{"interpretation": "Your <b>hemoglobin</b> is low.", "specialists": ["cardiologist", "HEMATOLOGIST", "cardiologist"]}` +
	"\n```\nStay healthy!"

func testAnalyzer(llm Completer, cat Catalog) *Analyzer {
	return NewAnalyzer(nil, llm, cat, runeTokenizer{}, slog.Default(), 8)
}

func TestInterpretParsesFencedJSON(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{goodResponse}}
	cat := newFakeCatalog("Cardiologist", "Hematologist")
	a := testAnalyzer(llm, cat)

	interp, attempts, err := a.interpret(context.Background(), "text", "English", slog.Default())
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
	require.Equal(t, "Your <b>hemoglobin</b> is low.", interp.Interpretation)
	require.Equal(t, []string{"Cardiologist", "Hematologist"}, interp.Specialists, "capitalized and deduplicated")
	require.Equal(t, 1, cat.counts["Cardiologist"], "duplicate recommendation counted once")
	require.Equal(t, 1, cat.counts["Hematologist"])
}

func TestInterpretRetriesUntilParseable(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{
		"I cannot answer in JSON, sorry.",
		"```json\n{\"interpretation\": }\n```", // malformed JSON inside fences
		"```json\n{\"interpretation\": \"ok\"}\n```", // schema: specialists missing
		goodResponse,
	}}
	cat := newFakeCatalog("Cardiologist", "Hematologist")
	a := testAnalyzer(llm, cat)

	_, attempts, err := a.interpret(context.Background(), "text", "English", slog.Default())
	require.NoError(t, err)
	require.Equal(t, 4, attempts)
	require.Equal(t, 4, llm.calls)
}

func TestInterpretGivesUpAfterMaxAttempts(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{"never json"}}
	cat := newFakeCatalog("Cardiologist")
	a := testAnalyzer(llm, cat)
	a.MaxInterpretAttempts = 3

	_, attempts, err := a.interpret(context.Background(), "text", "English", slog.Default())
	require.ErrorIs(t, err, ErrInterpretationFailed)
	require.Equal(t, 3, attempts)
	require.Equal(t, 3, llm.calls)
	require.Empty(t, cat.counts)
}

func TestInterpretCallErrorIsFatal(t *testing.T) {
	llm := &scriptedCompleter{err: errors.New("upstream 500")}
	cat := newFakeCatalog("Cardiologist")
	a := testAnalyzer(llm, cat)

	_, _, err := a.interpret(context.Background(), "text", "English", slog.Default())
	require.ErrorIs(t, err, ErrInterpretationFailed)
	require.Equal(t, 1, llm.calls, "transport errors are not retried")
}

func TestInterpretUnknownSpecialistStillCounted(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{
		"```json\n{\"interpretation\": \"x\", \"specialists\": [\"astrologist\"]}\n```",
	}}
	cat := newFakeCatalog("Cardiologist")
	a := testAnalyzer(llm, cat)

	interp, _, err := a.interpret(context.Background(), "text", "English", slog.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"Astrologist"}, interp.Specialists)
	require.Equal(t, 1, cat.counts["Astrologist"])
}

func TestConcurrentRecommendationsNoLostUpdate(t *testing.T) {
	cat := newFakeCatalog("Cardiologist")

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			llm := &scriptedCompleter{responses: []string{
				"```json\n{\"interpretation\": \"x\", \"specialists\": [\"Cardiologist\"]}\n```",
			}}
			a := testAnalyzer(llm, cat)
			_, _, err := a.interpret(context.Background(), "text", "English", slog.Default())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 2, cat.counts["Cardiologist"])
}

func TestCapitalize(t *testing.T) {
	require.Equal(t, "Cardiologist", capitalize("cardiologist"))
	require.Equal(t, "Cardiologist", capitalize("CARDIOLOGIST"))
	require.Equal(t, "Лор", capitalize("лОР"))
	require.Equal(t, "", capitalize("  "))
}
