// Package layout reconstructs visual text lines from the positioned
// fragments a PDF text layer hands back. Extraction order rarely matches
// reading order, so fragments are re-sorted geometrically before grouping.
package layout

import (
	"sort"
	"strings"

	"github.com/illyaom19/textbook-module-separator/internal/pdf"
)

// yTolerance is the maximum baseline distance at which a fragment still
// joins an existing line.
const yTolerance = 4.0

// Line is one reconstructed text line. Y is the baseline of the fragment
// that started the line.
type Line struct {
	Y    float64
	Text string
}

// Reconstruct groups fragments into lines. Fragments are visited
// top-to-bottom, left-to-right (descending y, then ascending x) after
// whitespace-only fragments are dropped. Each fragment joins the first
// existing line whose anchor y is within tolerance, otherwise it starts a
// new line; joining appends the text with a single space. Lines come back in
// creation order, which for sorted input is also top-to-bottom.
//
// Distance is measured against the line's anchor baseline, never against the
// fragment that joined last, so a slowly drifting baseline splits once the
// drift from the anchor reaches the tolerance. Heading detection is
// calibrated against this exact grouping.
func Reconstruct(frags []pdf.Fragment) []Line {
	kept := make([]pdf.Fragment, 0, len(frags))
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		kept = append(kept, f)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Y != kept[j].Y {
			return kept[i].Y > kept[j].Y
		}
		return kept[i].X < kept[j].X
	})

	var lines []Line
	for _, f := range kept {
		joined := false
		for i := range lines {
			if abs(lines[i].Y-f.Y) < yTolerance {
				lines[i].Text += " " + f.Text
				joined = true
				break
			}
		}
		if !joined {
			lines = append(lines, Line{Y: f.Y, Text: f.Text})
		}
	}
	return lines
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
