package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/illyaom19/textbook-module-separator/internal/assemble"
	"github.com/illyaom19/textbook-module-separator/internal/session"
)

// handleListArtifacts lists the outputs of the session's last generation
// run.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"artifacts": artifactList(sess.ID, sess.Artifacts()),
	})
}

// handleDownloadArtifact streams one generated part PDF.
func (s *Server) handleDownloadArtifact(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	a, ok := sess.Artifact(chi.URLParam(r, "artifactID"))
	if !ok {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Write(a.Data)
}

// handleArchive bundles every artifact of the last run into one zip.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	arts := sess.Artifacts()
	if len(arts) == 0 {
		jsonError(w, "no artifacts to archive; run generation first", http.StatusNotFound)
		return
	}

	files := make([]assemble.File, len(arts))
	for i, a := range arts {
		files[i] = assemble.File{Name: a.Filename, Data: a.Data}
	}
	data, err := assemble.Archive(files)
	if err != nil {
		s.log.Error("archive failed", "document_id", sess.ID, "error", err)
		jsonError(w, "failed to build archive: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := strings.TrimSuffix(sess.Filename, ".pdf") + "-modules.zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// artifactList is the JSON shape shared by the generate and artifact
// endpoints.
func artifactList(docID string, arts []session.Artifact) []map[string]any {
	out := make([]map[string]any, len(arts))
	for i, a := range arts {
		out[i] = map[string]any{
			"artifact_id":  a.ID,
			"name":         a.Name,
			"caption":      a.Caption,
			"filename":     a.Filename,
			"page_start":   a.PageStart,
			"page_end":     a.PageEnd,
			"size_bytes":   len(a.Data),
			"download_url": fmt.Sprintf("/api/documents/%s/artifacts/%s", docID, a.ID),
		}
	}
	return out
}
