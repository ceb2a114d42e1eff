// Package pdfdoc reads the two things the analysis pipeline needs from a PDF:
// per-page embedded text and per-page embedded images. Text comes from
// ledongthuc/pdf, image streams from pdfcpu, which exposes raster XObjects
// that the text-extraction library cannot surface.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is an open PDF. It keeps only the source bytes and the parsed
// cross-reference structures; page content is decoded on demand so a large
// document never has all pages rendered at once.
type Document struct {
	data []byte
	rdr  *pdf.Reader
	conf *model.Configuration
}

func Open(data []byte) (*Document, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &Document{
		data: data,
		rdr:  rdr,
		conf: model.NewDefaultConfiguration(),
	}, nil
}

func (d *Document) PageCount() int { return d.rdr.NumPage() }

// PageText returns the embedded text of page n (1-based), verbatim.
// The underlying parser panics on some malformed content streams, so the
// call is fenced and a malformed page reads as empty rather than killing
// the request.
func (d *Document) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", nil
		}
	}()

	page := d.rdr.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	fonts := make(map[string]*pdf.Font)
	text, err = page.GetPlainText(fonts)
	if err != nil {
		return "", nil
	}
	return text, nil
}

// PageImages returns the raw encoded bytes of every image embedded in page n,
// in object-number order, which follows the order the images were embedded.
// Extracting page by page keeps only one page's images in memory at a time.
func (d *Document) PageImages(n int) ([][]byte, error) {
	pages, err := api.ExtractImagesRaw(bytes.NewReader(d.data), []string{strconv.Itoa(n)}, d.conf)
	if err != nil {
		return nil, fmt.Errorf("extract images page %d: %w", n, err)
	}

	var out [][]byte
	for _, byObj := range pages {
		objNrs := make([]int, 0, len(byObj))
		for nr := range byObj {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)
		for _, nr := range objNrs {
			img := byObj[nr]
			b, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read image obj %d page %d: %w", nr, n, err)
			}
			out = append(out, b)
		}
	}
	return out, nil
}
