package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/illyaom19/textbook-module-separator/internal/pdf"
	"github.com/illyaom19/textbook-module-separator/internal/session"
)

// handleUpload ingests a textbook PDF and opens a session for it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s (only .pdf is accepted)", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	// The validated page count is the authority for all range math.
	pages, err := pdf.PageCount(data)
	if err != nil {
		jsonError(w, "not a readable PDF: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess := session.New(session.NewID(), filename, data, pages)
	s.store.Put(sess)

	s.log.Info("document uploaded",
		"document_id", sess.ID,
		"filename", filename,
		"pages", pages,
		"size_bytes", len(data),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"document_id":  sess.ID,
		"filename":     filename,
		"pages":        pages,
		"content_hash": sess.ContentHash,
		"size_bytes":   len(data),
	})
}

// handleGetDocument returns session metadata, the cached detection result
// and the artifact list.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleDeleteDocument drops a session and everything it holds.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	s.store.Delete(sess.ID)
	s.log.Info("document deleted", "document_id", sess.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": sess.ID})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
