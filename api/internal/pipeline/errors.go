package pipeline

import "errors"

// Pipeline failure taxonomy. Every sentinel maps to a single generic
// localized message to the user and an early return; none of them charges
// points.
var (
	ErrDocumentTooLarge     = errors.New("document too large")
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrSummarizationFailed  = errors.New("pre-summarization failed")
	ErrInterpretationFailed = errors.New("interpretation failed")
)
