package module

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ParseError reports a malformed line of manual module input. Line is
// 1-based and counts non-blank lines only, matching how the input is echoed
// back to the user.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// rangePattern accepts "start-end" with an ASCII hyphen, en dash or em dash
// as the separator.
var rangePattern = regexp.MustCompile(`^(\d+)\s*[-–—]\s*(\d+)$`)

// HasManualInput reports whether the manual text contains at least one
// non-blank line.
func HasManualInput(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// ParseManual parses manual module input, one module per line in the form
// "Name | start-end". The name is optional; a line like "| 12-30" gets the
// default name "Module n" where n is the line's 1-based position among
// non-blank lines. Blank lines are dropped before numbering, so error
// messages refer to the n-th non-blank line.
//
// Ranges are validated against totalPages and must not overlap each other.
// The returned modules are sorted by start page.
func ParseManual(text string, totalPages int) ([]Module, error) {
	type entry struct {
		mod  Module
		line int
	}
	var entries []entry
	n := 0
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		n++

		namePart, rangePart, found := strings.Cut(raw, "|")
		if !found {
			return nil, &ParseError{Line: n, Reason: `missing "|" separator (expected "Name | start-end")`}
		}
		name := strings.TrimSpace(namePart)
		rng := strings.TrimSpace(rangePart)
		if rng == "" {
			return nil, &ParseError{Line: n, Reason: "missing page range after \"|\""}
		}

		match := rangePattern.FindStringSubmatch(rng)
		if match == nil {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("invalid page range %q (expected \"start-end\")", rng)}
		}
		start, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("invalid start page %q", match[1])}
		}
		end, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("invalid end page %q", match[2])}
		}

		if start < 1 {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("start page must be at least 1, got %d", start)}
		}
		if end < start {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("end page %d is before start page %d", end, start)}
		}
		if end > totalPages {
			return nil, &ParseError{Line: n, Reason: fmt.Sprintf("end page %d exceeds the document's %d pages", end, totalPages)}
		}

		if name == "" {
			name = fmt.Sprintf("Module %d", n)
		}
		entries = append(entries, entry{
			mod:  Module{Name: name, Start: start, End: end},
			line: n,
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].mod.Start < entries[j].mod.Start
	})
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.mod.Start <= prev.mod.End {
			return nil, &ParseError{
				Line: cur.line,
				Reason: fmt.Sprintf("range %d-%d overlaps range %d-%d on line %d",
					cur.mod.Start, cur.mod.End, prev.mod.Start, prev.mod.End, prev.line),
			}
		}
	}

	mods := make([]Module, len(entries))
	for i, e := range entries {
		mods[i] = e.mod
	}
	return mods, nil
}
