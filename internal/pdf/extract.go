package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount validates pdf bytes and reports the page count. It is the
// authoritative count for a document; the text layer reader may disagree on
// damaged files.
func PageCount(data []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	return ctx.PageCount, nil
}

// Extractor produces sub-documents from a parsed source document. One
// Extractor wraps one parse of the source; a generation run creates a fresh
// one and reuses it for every range.
type Extractor struct {
	ctx *model.Context
}

// NewExtractor parses pdf bytes for page extraction.
func NewExtractor(data []byte) (*Extractor, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &Extractor{ctx: ctx}, nil
}

// PageCount returns the source document's page count.
func (e *Extractor) PageCount() int {
	return e.ctx.PageCount
}

// ExtractRange copies the 1-based inclusive page range [start, end] into a
// freshly serialized PDF.
func (e *Extractor) ExtractRange(start, end int) ([]byte, error) {
	if start < 1 || end < start || end > e.ctx.PageCount {
		return nil, fmt.Errorf("page range %d-%d out of bounds (document has %d pages)", start, end, e.ctx.PageCount)
	}
	pages := make([]int, end-start+1)
	for p := start; p <= end; p++ {
		pages[p-start] = p
	}
	sub, err := pdfcpu.ExtractPages(e.ctx, pages, false)
	if err != nil {
		return nil, fmt.Errorf("extract pages %d-%d: %w", start, end, err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(sub, &buf); err != nil {
		return nil, fmt.Errorf("write pages %d-%d: %w", start, end, err)
	}
	return buf.Bytes(), nil
}
