// Package detect finds module headings ("Module 3: Thermodynamics",
// "UNIT 12 - Waves", "Chapter 7") near the top of textbook pages and turns
// them into a contiguous module list covering the document.
package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/illyaom19/textbook-module-separator/internal/layout"
	"github.com/illyaom19/textbook-module-separator/internal/module"
	"github.com/illyaom19/textbook-module-separator/internal/pdf"
)

// topBand is how far below a page's topmost line a heading may still sit.
// Headings live in the title area; matches further down are body text
// mentioning a module, not a module boundary.
const topBand = 60.0

// headingPattern matches a heading line: a keyword, a number, an optional
// separator, then the rest of the title.
var headingPattern = regexp.MustCompile(`(?i)^(module|unit|chapter)\s+(\d+)\b[:\-–]?\s*(.*)$`)

var spaceRun = regexp.MustCompile(`\s+`)

// PageSource yields a document's text layer page by page. *pdf.Document
// satisfies it; tests substitute fixed fragment tables.
type PageSource interface {
	PageCount() int
	Fragments(pageNum int) ([]pdf.Fragment, error)
}

// Scan walks every page in order, reconstructs its lines, and looks for a
// module heading in the top band. At most one heading counts per page. The
// hits become modules whose ranges tile the document: each module ends where
// the next begins, and the last one runs to totalPages.
//
// A document with no headings anywhere returns (nil, nil). Any page access
// error aborts the scan with no partial result.
func Scan(src PageSource, totalPages int) ([]module.Module, error) {
	n := src.PageCount()
	if totalPages < n {
		n = totalPages
	}

	var hits []module.Module
	for pageNum := 1; pageNum <= n; pageNum++ {
		frags, err := src.Fragments(pageNum)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		lines := layout.Reconstruct(frags)
		if len(lines) == 0 {
			continue
		}

		maxY := lines[0].Y
		for _, l := range lines[1:] {
			if l.Y > maxY {
				maxY = l.Y
			}
		}

		for _, l := range lines {
			if l.Y < maxY-topBand {
				continue
			}
			m := headingPattern.FindStringSubmatch(strings.TrimSpace(l.Text))
			if m == nil {
				continue
			}
			name := sanitizeName(m[0])
			if name == "" {
				name = fmt.Sprintf("Module %d", len(hits)+1)
			}
			hits = append(hits, module.Module{Name: name, Start: pageNum})
			break
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })
	for i := range hits {
		if i < len(hits)-1 {
			end := hits[i+1].Start - 1
			if end < hits[i].Start {
				end = hits[i].Start
			}
			hits[i].End = end
		} else {
			hits[i].End = totalPages
		}
	}
	return hits, nil
}

// sanitizeName collapses runs of whitespace to single spaces and trims the
// ends. Heading lines reassembled from fragments often carry doubled spaces.
func sanitizeName(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
