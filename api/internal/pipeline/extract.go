package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// extract produces the aggregated document text. For a PDF that is, per
// page, the embedded text followed by the OCR text of each embedded image
// (embed order), newline-joined; pages are newline-joined in order. For a
// photo it is a single OCR pass over the whole image.
//
// Pages are processed one at a time and their buffers dropped before the
// next page is touched, so a multi-hundred-page scan never holds every
// image at once.
func (a *Analyzer) extract(ctx context.Context, req Request, log *slog.Logger) (string, error) {
	if len(req.Data) > MaxDocumentBytes {
		return "", ErrDocumentTooLarge
	}

	if req.Kind == KindImage {
		text, err := a.OCR.DetectText(ctx, req.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		log.Info("pipeline.extract", "kind", "image", "chars", len(text))
		return strings.TrimSpace(text), nil
	}

	doc, err := a.OpenPDF(req.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var combined strings.Builder
	pages := doc.PageCount()
	for n := 1; n <= pages; n++ {
		progress(req)

		pageText, err := doc.PageText(n)
		if err != nil {
			return "", fmt.Errorf("%w: page %d text: %v", ErrExtractionFailed, n, err)
		}

		images, err := doc.PageImages(n)
		if err != nil {
			return "", fmt.Errorf("%w: page %d images: %v", ErrExtractionFailed, n, err)
		}
		imageTexts := make([]string, 0, len(images))
		for i := range images {
			detected, err := a.OCR.DetectText(ctx, images[i])
			if err != nil {
				return "", fmt.Errorf("%w: page %d image %d: %v", ErrExtractionFailed, n, i, err)
			}
			imageTexts = append(imageTexts, strings.TrimSpace(detected))
			images[i] = nil // release before the next OCR round trip
		}

		combined.WriteString(pageText)
		combined.WriteString("\n")
		combined.WriteString(strings.Join(imageTexts, "\n"))
		combined.WriteString("\n")
	}

	log.Info("pipeline.extract", "kind", "pdf", "pages", pages, "chars", combined.Len())
	return combined.String(), nil
}
