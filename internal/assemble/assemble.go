// Package assemble turns a resolved part list into downloadable PDF
// outputs: one extraction per part, display captions, slugified filenames,
// and an optional zip bundle of the whole run.
package assemble

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/illyaom19/textbook-module-separator/internal/module"
)

// Extractor produces one sub-document per page range. *pdf.Extractor
// satisfies it; tests substitute fakes.
type Extractor interface {
	ExtractRange(start, end int) ([]byte, error)
}

// Output is one assembled part PDF.
type Output struct {
	Name      string
	Caption   string
	Filename  string
	PageStart int
	PageEnd   int
	Data      []byte
}

// Run extracts every part in order. On failure it returns the outputs
// produced so far together with the error; earlier outputs remain usable.
func Run(ex Extractor, parts []module.Module) ([]Output, error) {
	outputs := make([]Output, 0, len(parts))
	used := make(map[string]int, len(parts))
	for _, p := range parts {
		data, err := ex.ExtractRange(p.Start, p.End)
		if err != nil {
			return outputs, fmt.Errorf("%s (pages %d-%d): %w", p.Name, p.Start, p.End, err)
		}
		outputs = append(outputs, Output{
			Name:      p.Name,
			Caption:   fmt.Sprintf("Pages %d–%d", p.Start, p.End),
			Filename:  filename(p.Name, used),
			PageStart: p.Start,
			PageEnd:   p.End,
			Data:      data,
		})
	}
	return outputs, nil
}

// filename slugifies a part name into a safe .pdf filename, numbering
// duplicates so every output in a run has a distinct name.
func filename(name string, used map[string]int) string {
	slug := Slugify(name)
	if slug == "" {
		slug = "module"
	}
	used[slug]++
	if n := used[slug]; n > 1 {
		slug = fmt.Sprintf("%s-%d", slug, n)
	}
	return slug + ".pdf"
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Slugify lowercases a part name and reduces it to ASCII letters, digits
// and single dashes, capped at 60 characters.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	return s
}

// File is one entry for Archive.
type File struct {
	Name string
	Data []byte
}

// Archive bundles files into a single zip, preserving order.
func Archive(files []File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
