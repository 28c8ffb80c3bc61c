// Package session keeps per-document state between requests: the uploaded
// bytes, the cached detection result, and the generated artifacts, all
// guarded for concurrent handler access.
package session

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/illyaom19/textbook-module-separator/internal/module"
)

// Operation names used for per-session busy flags.
const (
	OpDetect   = "detect"
	OpGenerate = "generate"
)

// Artifact is one generated module PDF held in memory for download.
type Artifact struct {
	ID        string
	Name      string
	Caption   string
	Filename  string
	PageStart int
	PageEnd   int
	Data      []byte
}

// Session tracks one uploaded document and everything derived from it.
type Session struct {
	mu sync.Mutex

	ID          string
	Filename    string
	ContentHash string
	PageCount   int
	SizeBytes   int64
	UploadedAt  time.Time

	data      []byte
	detected  []module.Module
	artifacts []Artifact
	running   map[string]bool
	lastUsed  time.Time
}

// New builds a session for freshly uploaded document bytes.
func New(id, filename string, data []byte, pageCount int) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		Filename:    filename,
		ContentHash: ContentHashHex(data),
		PageCount:   pageCount,
		SizeBytes:   int64(len(data)),
		UploadedAt:  now,
		data:        data,
		running:     make(map[string]bool),
		lastUsed:    now,
	}
}

// Data returns the uploaded bytes. Callers treat the slice as read-only.
func (s *Session) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Touch marks the session as recently used so the janitor keeps it.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
}

// LastUsed returns the time of the last request that touched this session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Begin marks an operation as running. It reports false when the same
// operation is already in flight on this session.
func (s *Session) Begin(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[op] {
		return false
	}
	s.running[op] = true
	s.lastUsed = time.Now()
	return true
}

// End clears a running operation flag.
func (s *Session) End(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, op)
	s.lastUsed = time.Now()
}

// SetDetected caches a successful detection result, replacing any earlier
// one.
func (s *Session) SetDetected(mods []module.Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detected = append([]module.Module(nil), mods...)
}

// ClearDetected drops the cached detection result.
func (s *Session) ClearDetected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detected = nil
}

// Detected returns a copy of the cached detection result, nil when none.
func (s *Session) Detected() []module.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detected == nil {
		return nil
	}
	return append([]module.Module(nil), s.detected...)
}

// ClearArtifacts drops all generated outputs ahead of a new run.
func (s *Session) ClearArtifacts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = nil
}

// AddArtifact appends one generated output.
func (s *Session) AddArtifact(a Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
}

// Artifacts returns a copy of the artifact list in generation order.
func (s *Session) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Artifact(nil), s.artifacts...)
}

// Artifact looks up one artifact by ID.
func (s *Session) Artifact(id string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return Artifact{}, false
}

// ArtifactInfo is the JSON-safe view of an artifact, without the file bytes.
type ArtifactInfo struct {
	ID        string `json:"artifact_id"`
	Name      string `json:"name"`
	Caption   string `json:"caption"`
	Filename  string `json:"filename"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	SizeBytes int    `json:"size_bytes"`
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID          string          `json:"document_id"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	PageCount   int             `json:"pages"`
	SizeBytes   int64           `json:"size_bytes"`
	UploadedAt  time.Time       `json:"uploaded_at"`
	Detected    []module.Module `json:"detected_modules,omitempty"`
	Artifacts   []ArtifactInfo  `json:"artifacts"`
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]ArtifactInfo, len(s.artifacts))
	for i, a := range s.artifacts {
		infos[i] = ArtifactInfo{
			ID:        a.ID,
			Name:      a.Name,
			Caption:   a.Caption,
			Filename:  a.Filename,
			PageStart: a.PageStart,
			PageEnd:   a.PageEnd,
			SizeBytes: len(a.Data),
		}
	}
	var detected []module.Module
	if s.detected != nil {
		detected = append([]module.Module(nil), s.detected...)
	}
	return Snapshot{
		ID:          s.ID,
		Filename:    s.Filename,
		ContentHash: s.ContentHash,
		PageCount:   s.PageCount,
		SizeBytes:   s.SizeBytes,
		UploadedAt:  s.UploadedAt,
		Detected:    detected,
		Artifacts:   infos,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
