// Package pipeline turns a PDF or photo of lab results into a bounded-size
// interpretation plus specialist recommendations, coordinating OCR, token
// budgeting, chunked pre-summarization and the structured interpretation
// call.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"medscan-bot/api/internal/pdfdoc"
)

// OCRService detects text on a single image. An empty string means no text
// was found; errors are transport/API failures.
type OCRService interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

// Completer is one generative-text round trip. Model parameters live on the
// implementation; responses may differ across identical inputs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Catalog is the closed set of specialist categories and their
// recommendation counters.
type Catalog interface {
	ListNames(ctx context.Context) ([]string, error)
	IncrementRecommendation(ctx context.Context, name string) error
}

// Doc is an open multi-page document. Satisfied by pdfdoc.Document.
type Doc interface {
	PageCount() int
	PageText(n int) (string, error)
	PageImages(n int) ([][]byte, error)
}

type Kind int

const (
	KindPDF Kind = iota
	KindImage
)

type Request struct {
	Data     []byte
	Kind     Kind
	Language string // language name for prompts, e.g. "English"

	// Progress, when set, is called between pipeline stages so the caller
	// can keep a typing indicator alive. Must be safe to call from the
	// request goroutine only.
	Progress func()
}

// Intake is what can be known about a document before any OCR or model work:
// its page count and the point cost of analysing it.
type Intake struct {
	Pages int
	Cost  int
}

type Result struct {
	Interpretation string
	Specialists    []string
	Strategy       Strategy
	Tokens         int
	Attempts       int // interpretation calls made
}

type Analyzer struct {
	OCR     OCRService
	LLM     Completer
	Catalog Catalog
	Tok     Tokenizer
	Log     *slog.Logger

	// MaxInterpretAttempts bounds the parse-retry loop of the
	// interpretation call. Zero means a single attempt.
	MaxInterpretAttempts int

	// OpenPDF is swappable for tests; defaults to pdfdoc.Open.
	OpenPDF func(data []byte) (Doc, error)
}

func NewAnalyzer(ocr OCRService, llm Completer, catalog Catalog, tok Tokenizer, log *slog.Logger, maxAttempts int) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		OCR:                  ocr,
		LLM:                  llm,
		Catalog:              catalog,
		Tok:                  tok,
		Log:                  log,
		MaxInterpretAttempts: maxAttempts,
		OpenPDF: func(data []byte) (Doc, error) {
			return pdfdoc.Open(data)
		},
	}
}

// Inspect validates the document size and computes its page count and point
// cost without performing any OCR or model work. Callers use it for the
// pre-flight balance check.
func (a *Analyzer) Inspect(data []byte, kind Kind) (Intake, error) {
	if len(data) > MaxDocumentBytes {
		return Intake{}, ErrDocumentTooLarge
	}
	if kind == KindImage {
		return Intake{Pages: 1, Cost: PointsPerPage}, nil
	}
	doc, err := a.OpenPDF(data)
	if err != nil {
		return Intake{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	pages := doc.PageCount()
	return Intake{Pages: pages, Cost: pages * PointsPerPage}, nil
}

// Analyze runs the full document-to-answer pipeline: extract, budget,
// summarize if needed, interpret. It never touches point balances; the
// caller debits only after it has started delivering the result.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	rid := uuid.NewString()
	log := a.Log.With("req_id", rid)

	text, err := a.extract(ctx, req, log)
	if err != nil {
		return nil, err
	}

	tokens := a.Tok.Count(text)
	strategy := StrategyFor(tokens)
	log.Info("pipeline.budget", "tokens", tokens, "strategy", strategy.String())
	progress(req)

	aggregated := text
	switch strategy {
	case Direct:
		// use extracted text unmodified
	case SinglePresummarize:
		aggregated, err = a.preSummarize(ctx, text, req.Language)
		if err != nil {
			return nil, err
		}
	case ChunkedPresummarize:
		chunks := SplitTokens(a.Tok, text, ChunkTokenLimit)
		summaries := make([]string, 0, len(chunks))
		for i, chunk := range chunks {
			progress(req)
			s, err := a.preSummarize(ctx, chunk, req.Language)
			if err != nil {
				return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			summaries = append(summaries, s)
		}
		aggregated = strings.Join(summaries, "\n")
	}
	progress(req)

	interp, attempts, err := a.interpret(ctx, aggregated, req.Language, log)
	if err != nil {
		return nil, err
	}

	log.Info("pipeline.done",
		"strategy", strategy.String(),
		"tokens", tokens,
		"attempts", attempts,
		"specialists", len(interp.Specialists),
	)
	return &Result{
		Interpretation: interp.Interpretation,
		Specialists:    interp.Specialists,
		Strategy:       strategy,
		Tokens:         tokens,
		Attempts:       attempts,
	}, nil
}

func progress(req Request) {
	if req.Progress != nil {
		req.Progress()
	}
}
