package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/illyaom19/textbook-module-separator/internal/assemble"
	"github.com/illyaom19/textbook-module-separator/internal/detect"
	"github.com/illyaom19/textbook-module-separator/internal/module"
	"github.com/illyaom19/textbook-module-separator/internal/pdf"
	"github.com/illyaom19/textbook-module-separator/internal/session"
)

// handleDetect scans the document for module headings and caches the result
// on the session. Each run replaces the previous cache; a run that finds
// nothing, or fails, leaves no cache behind.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	if !sess.Begin(session.OpDetect) {
		jsonError(w, "detection already running for this document", http.StatusConflict)
		return
	}
	defer sess.End(session.OpDetect)

	_, span := otel.Tracer(tracerName).Start(r.Context(), "detect")
	defer span.End()

	doc, err := pdf.NewDocument(sess.Data())
	if err != nil {
		sess.ClearDetected()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("detection failed", "document_id", sess.ID, "error", err)
		jsonError(w, "detection failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	mods, err := detect.Scan(doc, sess.PageCount)
	if err != nil {
		sess.ClearDetected()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("detection failed", "document_id", sess.ID, "error", err)
		jsonError(w, "detection failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if len(mods) == 0 {
		sess.ClearDetected()
		s.log.Info("detection found no headings", "document_id", sess.ID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"modules": []module.Module{},
			"message": "no module headings detected; generation will use manual input or an even split",
		})
		return
	}

	sess.SetDetected(mods)
	s.log.Info("detection complete", "document_id", sess.ID, "modules", len(mods))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"modules": mods})
}

type generateRequest struct {
	Manual string `json:"manual"`
}

// handleGenerate resolves the module list (manual input beats cached
// detection beats even split), splits oversized modules into parts, and
// extracts one PDF per part. Each run replaces the session's artifact list;
// a failing run keeps the artifacts produced before the failure.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	if !sess.Begin(session.OpGenerate) {
		jsonError(w, "generation already running for this document", http.StatusConflict)
		return
	}
	defer sess.End(session.OpGenerate)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	_, span := otel.Tracer(tracerName).Start(r.Context(), "generate")
	defer span.End()

	mods, source, err := module.Resolve(req.Manual, sess.Detected(), sess.PageCount, s.cfg.MaxPartPages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jsonError(w, "invalid manual input: "+err.Error(), http.StatusBadRequest)
		return
	}

	parts := module.SplitAll(mods, s.cfg.MaxPartPages)
	if len(parts) == 0 {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"source":    source,
			"artifacts": []any{},
			"message":   "no modules generated",
		})
		return
	}

	ex, err := pdf.NewExtractor(sess.Data())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("generation failed", "document_id", sess.ID, "error", err)
		jsonError(w, "generation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// From here on the session's outputs belong to this run.
	sess.ClearArtifacts()

	outputs, runErr := assemble.Run(ex, parts)
	for _, o := range outputs {
		sess.AddArtifact(session.Artifact{
			ID:        session.NewID(),
			Name:      o.Name,
			Caption:   o.Caption,
			Filename:  o.Filename,
			PageStart: o.PageStart,
			PageEnd:   o.PageEnd,
			Data:      o.Data,
		})
	}
	artifacts := artifactList(sess.ID, sess.Artifacts())

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		s.log.Error("generation failed",
			"document_id", sess.ID,
			"error", runErr,
			"artifacts_kept", len(outputs),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error":     "generation failed: " + runErr.Error(),
			"artifacts": artifacts,
		})
		return
	}

	s.log.Info("generation complete",
		"document_id", sess.ID,
		"source", source,
		"artifacts", len(outputs),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"source":    source,
		"artifacts": artifacts,
	})
}
