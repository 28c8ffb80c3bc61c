// Package pdf wraps the two PDF libraries the service depends on: the text
// layer reader used for heading detection, and the page extractor used to
// build output files.
package pdf

import (
	"bytes"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
)

// Fragment is one positioned piece of text from a page. Coordinates are PDF
// user space: x grows to the right, y grows toward the top of the page.
type Fragment struct {
	Text string
	X    float64
	Y    float64
}

// Document reads the text layer of an in-memory PDF. The underlying library
// panics on some malformed files, so every call into it runs behind a
// recover guard and comes back as an error instead.
type Document struct {
	reader *pdflib.Reader
}

// NewDocument parses pdf bytes for text extraction.
func NewDocument(data []byte) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &Document{reader: r}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// Fragments returns the positioned text fragments of a page (1-based).
// A page without a text layer yields an empty slice, not an error.
func (d *Document) Fragments(pageNum int) (frags []Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("page %d: extract text: %v", pageNum, r)
		}
	}()
	if pageNum < 1 || pageNum > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageNum, d.reader.NumPage())
	}
	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, nil
	}
	content := page.Content()
	for _, t := range content.Text {
		frags = append(frags, Fragment{Text: t.S, X: t.X, Y: t.Y})
	}
	return frags, nil
}
