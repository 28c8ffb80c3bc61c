package api

import (
	"bytes"
	_ "embed"
	"net/http"

	"github.com/yuin/goldmark"
)

// manualFormatDoc is the reference for the manual module input format,
// served rendered so API consumers can show it to users as-is.
//
//go:embed docs/manual-format.md
var manualFormatDoc []byte

// handleSyntax renders the manual input syntax reference as HTML.
func (s *Server) handleSyntax(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := goldmark.Convert(manualFormatDoc, &buf); err != nil {
		s.log.Error("syntax doc render failed", "error", err)
		jsonError(w, "failed to render syntax reference", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
