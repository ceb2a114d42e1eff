package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	texts  []string
	images [][][]byte
}

func (d fakeDoc) PageCount() int { return len(d.texts) }

func (d fakeDoc) PageText(n int) (string, error) { return d.texts[n-1], nil }

func (d fakeDoc) PageImages(n int) ([][]byte, error) {
	if d.images == nil {
		return nil, nil
	}
	return d.images[n-1], nil
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (o *fakeOCR) DetectText(context.Context, []byte) (string, error) {
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	return o.text, nil
}

func withFakeDoc(a *Analyzer, doc Doc) *Analyzer {
	a.OpenPDF = func([]byte) (Doc, error) { return doc, nil }
	return a
}

func TestInspect(t *testing.T) {
	a := testAnalyzer(nil, nil)
	withFakeDoc(a, fakeDoc{texts: []string{"p1", "p2", "p3"}})

	intake, err := a.Inspect([]byte("%PDF-"), KindPDF)
	require.NoError(t, err)
	require.Equal(t, 3, intake.Pages)
	require.Equal(t, 150, intake.Cost)

	intake, err = a.Inspect([]byte{0xFF, 0xD8}, KindImage)
	require.NoError(t, err)
	require.Equal(t, 1, intake.Pages)
	require.Equal(t, 50, intake.Cost)
}

func TestInspectTooLarge(t *testing.T) {
	a := testAnalyzer(nil, nil)
	_, err := a.Inspect(make([]byte, MaxDocumentBytes+1), KindPDF)
	require.ErrorIs(t, err, ErrDocumentTooLarge)
	_, err = a.Inspect(make([]byte, MaxDocumentBytes+1), KindImage)
	require.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestAnalyzeDirectPDF(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{goodResponse}}
	ocr := &fakeOCR{}
	a := NewAnalyzer(ocr, llm, newFakeCatalog("Cardiologist", "Hematologist"), runeTokenizer{}, slog.Default(), 8)
	withFakeDoc(a, fakeDoc{texts: []string{strings.Repeat("hemoglobin 132 g/L ", 10)}})

	res, err := a.Analyze(context.Background(), Request{Data: []byte("%PDF-"), Kind: KindPDF, Language: "English"})
	require.NoError(t, err)
	require.Equal(t, Direct, res.Strategy)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, 1, llm.calls, "direct strategy makes exactly one model call")
	require.Equal(t, 0, ocr.calls, "page with no images needs no OCR")
	require.Equal(t, "Your <b>hemoglobin</b> is low.", res.Interpretation)
}

func TestAnalyzePDFWithEmbeddedImages(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{goodResponse}}
	ocr := &fakeOCR{text: "scanned line"}
	a := NewAnalyzer(ocr, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)
	withFakeDoc(a, fakeDoc{
		texts:  []string{"page one", "page two"},
		images: [][][]byte{{[]byte("img1"), []byte("img2")}, {[]byte("img3")}},
	})

	_, err := a.Analyze(context.Background(), Request{Data: []byte("%PDF-"), Kind: KindPDF, Language: "English"})
	require.NoError(t, err)
	require.Equal(t, 3, ocr.calls, "one OCR call per embedded image")
}

func TestAnalyzePhotoEmptyOCRStillInterprets(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{goodResponse}}
	ocr := &fakeOCR{text: ""}
	a := NewAnalyzer(ocr, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)

	res, err := a.Analyze(context.Background(), Request{Data: []byte{0xFF, 0xD8}, Kind: KindImage, Language: "English"})
	require.NoError(t, err)
	require.Equal(t, 1, ocr.calls)
	require.Equal(t, 1, llm.calls, "empty extraction does not short-circuit the interpretation")
	require.Equal(t, Direct, res.Strategy)
}

func TestAnalyzeSinglePresummarize(t *testing.T) {
	text := strings.Repeat("x", DirectThreshold+500)
	llm := &scriptedCompleter{responses: []string{"condensed summary", goodResponse}}
	a := NewAnalyzer(&fakeOCR{text: text}, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)

	res, err := a.Analyze(context.Background(), Request{Data: []byte{0xFF, 0xD8}, Kind: KindImage, Language: "English"})
	require.NoError(t, err)
	require.Equal(t, SinglePresummarize, res.Strategy)
	require.Equal(t, 2, llm.calls, "one summary call plus one interpretation call")
}

func TestAnalyzeChunkedPresummarize(t *testing.T) {
	tokens := PresumThreshold + ChunkTokenLimit/2 // 44000 -> 6 chunks of <= 8000
	text := strings.Repeat("y", tokens)
	responses := make([]string, 0, 7)
	for i := 0; i < 6; i++ {
		responses = append(responses, "chunk summary")
	}
	responses = append(responses, goodResponse)
	llm := &scriptedCompleter{responses: responses}
	a := NewAnalyzer(&fakeOCR{text: text}, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)

	res, err := a.Analyze(context.Background(), Request{Data: []byte{0xFF, 0xD8}, Kind: KindImage, Language: "English"})
	require.NoError(t, err)
	require.Equal(t, ChunkedPresummarize, res.Strategy)
	require.Equal(t, 7, llm.calls, "one call per chunk plus the interpretation call")
}

func TestAnalyzeOCRErrorAborts(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{goodResponse}}
	a := NewAnalyzer(&fakeOCR{err: errors.New("vision down")}, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)

	_, err := a.Analyze(context.Background(), Request{Data: []byte{0xFF, 0xD8}, Kind: KindImage, Language: "English"})
	require.ErrorIs(t, err, ErrExtractionFailed)
	require.Equal(t, 0, llm.calls, "no model calls after a failed extraction")
}

func TestAnalyzeSummarizationErrorAborts(t *testing.T) {
	text := strings.Repeat("x", DirectThreshold+1)
	llm := &scriptedCompleter{err: errors.New("upstream 500")}
	a := NewAnalyzer(&fakeOCR{text: text}, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)

	_, err := a.Analyze(context.Background(), Request{Data: []byte{0xFF, 0xD8}, Kind: KindImage, Language: "English"})
	require.ErrorIs(t, err, ErrSummarizationFailed)
}

func TestAnalyzeProgressCallback(t *testing.T) {
	llm := &scriptedCompleter{responses: []string{goodResponse}}
	a := NewAnalyzer(&fakeOCR{text: "short"}, llm, newFakeCatalog("Cardiologist"), runeTokenizer{}, slog.Default(), 8)

	var ticks int
	_, err := a.Analyze(context.Background(), Request{
		Data:     []byte{0xFF, 0xD8},
		Kind:     KindImage,
		Language: "English",
		Progress: func() { ticks++ },
	})
	require.NoError(t, err)
	require.Greater(t, ticks, 0)
}
