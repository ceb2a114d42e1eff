package pipeline

import (
	"context"
	"fmt"
	"strings"
)

const preSummarizeSystem = "You are a medical assistant condensing extracted lab-report text. " +
	"Compress the text while keeping every medically relevant detail: analyte names, " +
	"measured values, units, reference ranges and any flagged abnormalities. " +
	"Do not interpret or diagnose. Answer with the condensed text only."

// preSummarize is one generative call compressing a chunk (or the whole
// document when it fits in a single call) in the user's language. Any
// failure aborts the pipeline; partial summaries are never kept.
func (a *Analyzer) preSummarize(ctx context.Context, text, language string) (string, error) {
	user := fmt.Sprintf("Summarize the following extracted medical document text in %s, "+
		"preserving all measured values and reference ranges:\n\n%s", language, text)

	out, err := a.LLM.Complete(ctx, preSummarizeSystem, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}
	return strings.TrimSpace(out), nil
}
