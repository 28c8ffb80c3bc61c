// Package module holds the page-range model for splitting a textbook into
// downloadable parts: named modules, the manual input parser, the default
// even split, and the per-file page cap.
package module

import "fmt"

// DefaultMaxPartPages caps how many pages a single output file may span.
const DefaultMaxPartPages = 25

// Module is a named, contiguous, 1-based inclusive page range.
type Module struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Pages returns the number of pages the module spans.
func (m Module) Pages() int {
	return m.End - m.Start + 1
}

// DefaultModules splits a document into fixed-size modules named "Module 1",
// "Module 2", and so on, starting at page 1. The last module is truncated at
// totalPages. A document with no pages yields no modules.
func DefaultModules(totalPages, maxPages int) []Module {
	if totalPages <= 0 {
		return nil
	}
	if maxPages < 1 {
		maxPages = DefaultMaxPartPages
	}
	var mods []Module
	for start, k := 1, 1; start <= totalPages; start, k = start+maxPages, k+1 {
		end := start + maxPages - 1
		if end > totalPages {
			end = totalPages
		}
		mods = append(mods, Module{
			Name:  fmt.Sprintf("Module %d", k),
			Start: start,
			End:   end,
		})
	}
	return mods
}

// SplitIntoParts subdivides a module that exceeds maxPages into consecutive
// chunks of at most maxPages pages each. The first chunk keeps the module's
// name unchanged; subsequent chunks are suffixed " · Part 2", " · Part 3",
// and so on. A module within the limit comes back as a single part.
func SplitIntoParts(m Module, maxPages int) []Module {
	if maxPages < 1 {
		maxPages = DefaultMaxPartPages
	}
	if m.Pages() <= maxPages {
		return []Module{m}
	}
	var parts []Module
	k := 1
	for start := m.Start; start <= m.End; start += maxPages {
		end := start + maxPages - 1
		if end > m.End {
			end = m.End
		}
		name := m.Name
		if k > 1 {
			name = fmt.Sprintf("%s · Part %d", m.Name, k)
		}
		parts = append(parts, Module{Name: name, Start: start, End: end})
		k++
	}
	return parts
}

// SplitAll applies SplitIntoParts to every module, preserving order.
func SplitAll(mods []Module, maxPages int) []Module {
	parts := make([]Module, 0, len(mods))
	for _, m := range mods {
		parts = append(parts, SplitIntoParts(m, maxPages)...)
	}
	return parts
}

// Source identifies which input produced a resolved module list.
type Source string

const (
	SourceManual   Source = "manual"
	SourceDetected Source = "detected"
	SourceDefault  Source = "default"
)

// Resolve picks the module list for one generation run. Manual input wins
// whenever it contains at least one non-blank line; otherwise a cached
// detection result is used; otherwise the document falls back to the default
// even split. A manual parse error aborts resolution, it never falls through
// to the weaker sources.
func Resolve(manualText string, detected []Module, totalPages, maxPages int) ([]Module, Source, error) {
	if HasManualInput(manualText) {
		mods, err := ParseManual(manualText, totalPages)
		if err != nil {
			return nil, SourceManual, err
		}
		return mods, SourceManual, nil
	}
	if len(detected) > 0 {
		return detected, SourceDetected, nil
	}
	return DefaultModules(totalPages, maxPages), SourceDefault, nil
}
