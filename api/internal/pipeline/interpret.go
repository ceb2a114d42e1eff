package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Interpretation is the typed record parsed out of the model's fenced JSON
// block. Both fields are required; a response missing either is retried.
type Interpretation struct {
	Interpretation string   `json:"interpretation"`
	Specialists    []string `json:"specialists"`
}

const interpretationSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["interpretation", "specialists"],
  "properties": {
    "interpretation": {"type": "string"},
    "specialists": {"type": "array", "items": {"type": "string"}}
  }
}`

var interpretationSchema = jsonschema.MustCompileString("interpretation.schema.json", interpretationSchemaJSON)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

const interpretSystem = "You are a medical assistant interpreting lab results for a patient. " +
	"Explain the findings in plain language, flag values outside reference ranges, and " +
	"recommend which specialists to consult, choosing ONLY from the provided list. " +
	"Never invent specialist names. Use simple HTML for emphasis (<b>, <i>, <u>) only. " +
	"Return your answer as a fenced code block containing a single JSON object:\n" +
	"```json\n{\"interpretation\": \"...\", \"specialists\": [\"...\"]}\n```"

// interpret issues the final structured-output request and parses the
// response. A response without a parseable, schema-valid fenced JSON block
// is retried up to MaxInterpretAttempts times; a transport/API error is
// fatal immediately. On the first good parse the recommendation counter is
// incremented for every returned specialist before the result is handed
// back, so the bookkeeping survives partial delivery failures downstream.
func (a *Analyzer) interpret(ctx context.Context, text, language string, log *slog.Logger) (*Interpretation, int, error) {
	names, err := a.Catalog.ListNames(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list specialists: %v", ErrInterpretationFailed, err)
	}

	user := fmt.Sprintf(
		"Interpret the following extracted medical analysis results in %s.\n"+
			"Known specialists: %s\n\nDocument text:\n%s",
		language, strings.Join(names, ", "), text)

	maxAttempts := a.MaxInterpretAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := a.LLM.Complete(ctx, interpretSystem, user)
		if err != nil {
			return nil, attempt, fmt.Errorf("%w: %v", ErrInterpretationFailed, err)
		}

		interp, perr := parseInterpretation(raw)
		if perr != nil {
			log.Warn("llm.interpret.retry", "attempt", attempt, "max_attempts", maxAttempts, "error", perr)
			continue
		}

		interp.Specialists = normalizeSpecialists(interp.Specialists)
		for _, s := range interp.Specialists {
			if !lo.Contains(names, s) {
				log.Warn("llm.interpret.unknown_specialist", "name", s)
			}
			if err := a.Catalog.IncrementRecommendation(ctx, s); err != nil {
				log.Error("llm.interpret.increment_failed", "name", s, "error", err)
			}
		}
		return interp, attempt, nil
	}
	return nil, maxAttempts, fmt.Errorf("%w: no parseable response after %d attempts", ErrInterpretationFailed, maxAttempts)
}

func parseInterpretation(raw string) (*Interpretation, error) {
	m := fencedJSON.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("no fenced JSON block in response")
	}
	jsonStr := strings.ReplaceAll(m[1], "\\\\\n", "\\\\n")

	var v any
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := interpretationSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var interp Interpretation
	if err := json.Unmarshal([]byte(jsonStr), &interp); err != nil {
		return nil, fmt.Errorf("decode typed: %w", err)
	}
	return &interp, nil
}

// normalizeSpecialists capitalizes each name (first rune upper, rest lower)
// and drops duplicates, preserving first-seen order.
func normalizeSpecialists(names []string) []string {
	capitalized := lo.Map(names, func(s string, _ int) string { return capitalize(s) })
	return lo.Uniq(lo.Filter(capitalized, func(s string, _ int) bool { return s != "" }))
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
