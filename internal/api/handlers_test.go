package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/illyaom19/textbook-module-separator/internal/config"
	"github.com/illyaom19/textbook-module-separator/internal/pdf"
	"github.com/illyaom19/textbook-module-separator/internal/pdf/pdftest"
	"github.com/illyaom19/textbook-module-separator/internal/session"
)

func testConfig() config.Config {
	return config.Config{
		Port:           "0",
		MaxUploadBytes: 10 << 20,
		MaxPartPages:   25,
		SessionTTL:     time.Hour,
		OpRate:         1000,
		OpBurst:        1000,
	}
}

func newTestServer(cfg config.Config) (*Server, *session.Store) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(cfg.SessionTTL)
	return NewServer(store, log, cfg), store
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func uploadSample(t *testing.T, srv *Server, pages int) string {
	t.Helper()
	body, ctype := multipartBody(t, "book.pdf", pdftest.Sample(pages))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	id, _ := resp["document_id"].(string)
	if id == "" {
		t.Fatal("expected non-empty document_id")
	}
	return id
}

func doJSON(srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	w := doJSON(srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("expected ok status, got %s", w.Body.String())
	}
}

func TestUpload_CreatesSession(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 3)

	sess := store.Get(id)
	if sess == nil {
		t.Fatal("expected session in store")
	}
	if sess.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", sess.PageCount)
	}
	if sess.Filename != "book.pdf" {
		t.Errorf("expected filename %q, got %q", "book.pdf", sess.Filename)
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	body, ctype := multipartBody(t, "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unsupported file type") {
		t.Errorf("expected unsupported type error, got %s", w.Body.String())
	}
}

func TestUpload_RejectsGarbageBytes(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	body, ctype := multipartBody(t, "fake.pdf", []byte("not actually a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not a readable PDF") {
		t.Errorf("expected unreadable PDF error, got %s", w.Body.String())
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	srv, _ := newTestServer(cfg)

	body, ctype := multipartBody(t, "big.pdf", pdftest.Sample(2))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("unrelated", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetDocument(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 4)

	w := doJSON(srv, http.MethodGet, "/api/documents/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap session.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ID != id {
		t.Errorf("expected document_id %q, got %q", id, snap.ID)
	}
	if snap.PageCount != 4 {
		t.Errorf("expected 4 pages, got %d", snap.PageCount)
	}
	if snap.Artifacts == nil {
		t.Error("expected artifacts list in snapshot")
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	w := doJSON(srv, http.MethodGet, "/api/documents/does-not-exist", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	w := doJSON(srv, http.MethodDelete, "/api/documents/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.Get(id) != nil {
		t.Error("expected session removed from store")
	}

	w = doJSON(srv, http.MethodGet, "/api/documents/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestDetect_NoHeadingsInBlankDocument(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/detect", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Modules []any  `json:"modules"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Modules) != 0 {
		t.Errorf("expected no modules on blank pages, got %d", len(resp.Modules))
	}
	if resp.Message == "" {
		t.Error("expected explanatory message for empty detection")
	}
	if store.Get(id).Detected() != nil {
		t.Error("expected no cached detection after empty result")
	}
}

func TestDetect_NotFound(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	w := doJSON(srv, http.MethodPost, "/api/documents/nope/detect", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDetect_BusyConflict(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	// Simulate an in-flight detection.
	store.Get(id).Begin(session.OpDetect)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/detect", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestGenerate_DefaultSplit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPartPages = 2
	srv, _ := newTestServer(cfg)
	id := uploadSample(t, srv, 5)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Source    string           `json:"source"`
		Artifacts []map[string]any `json:"artifacts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "default" {
		t.Errorf("expected source %q, got %q", "default", resp.Source)
	}
	// 5 pages at 2 per part: 1-2, 3-4, 5-5.
	if len(resp.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(resp.Artifacts))
	}
	first := resp.Artifacts[0]
	if first["name"] != "Module 1" {
		t.Errorf("expected first artifact %q, got %v", "Module 1", first["name"])
	}
	if first["download_url"] == "" {
		t.Error("expected download_url on artifact")
	}
}

func TestGenerate_ManualInput(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 6)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "Intro | 1-2\nDeep Dive | 3-6"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Source    string           `json:"source"`
		Artifacts []map[string]any `json:"artifacts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "manual" {
		t.Errorf("expected source %q, got %q", "manual", resp.Source)
	}
	if len(resp.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(resp.Artifacts))
	}
	if resp.Artifacts[0]["filename"] != "intro.pdf" {
		t.Errorf("expected filename %q, got %v", "intro.pdf", resp.Artifacts[0]["filename"])
	}
	if resp.Artifacts[1]["caption"] != "Pages 3–6" {
		t.Errorf("expected caption %q, got %v", "Pages 3–6", resp.Artifacts[1]["caption"])
	}
}

func TestGenerate_ManualParseError(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 6)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "A | 1-3\nB | oops"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "line 2") {
		t.Errorf("expected error naming line 2, got %s", w.Body.String())
	}
	// No artifacts from a run that never started extracting.
	if len(store.Get(id).Artifacts()) != 0 {
		t.Error("expected no artifacts after parse error")
	}
}

func TestGenerate_RangeBeyondDocument(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 4)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "Too Far | 2-9"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "exceeds") {
		t.Errorf("expected out-of-range error, got %s", w.Body.String())
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate", `{broken`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGenerate_ReplacesPreviousRun(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 4)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "A | 1-1\nB | 2-2\nC | 3-3"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("first run: expected 200, got %d", w.Code)
	}
	if len(store.Get(id).Artifacts()) != 3 {
		t.Fatalf("expected 3 artifacts after first run")
	}

	w = doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "Everything | 1-4"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("second run: expected 200, got %d", w.Code)
	}
	arts := store.Get(id).Artifacts()
	if len(arts) != 1 {
		t.Fatalf("expected second run to replace artifacts, got %d", len(arts))
	}
	if arts[0].Name != "Everything" {
		t.Errorf("expected artifact from second run, got %q", arts[0].Name)
	}
}

func TestGenerate_BusyConflict(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	store.Get(id).Begin(session.OpGenerate)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestDownloadArtifact(t *testing.T) {
	srv, store := newTestServer(testConfig())
	id := uploadSample(t, srv, 3)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "Sample | 1-2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", w.Code)
	}
	arts := store.Get(id).Artifacts()
	if len(arts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(arts))
	}

	w = doJSON(srv, http.MethodGet, "/api/documents/"+id+"/artifacts/"+arts[0].ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected content type application/pdf, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "sample.pdf") {
		t.Errorf("expected attachment filename, got %q", cd)
	}
	pages, err := pdf.PageCount(w.Body.Bytes())
	if err != nil {
		t.Fatalf("downloaded artifact is not a valid PDF: %v", err)
	}
	if pages != 2 {
		t.Errorf("expected 2 pages, got %d", pages)
	}
}

func TestDownloadArtifact_NotFound(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	w := doJSON(srv, http.MethodGet, "/api/documents/"+id+"/artifacts/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListArtifacts_EmptyBeforeGenerate(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	w := doJSON(srv, http.MethodGet, "/api/documents/"+id+"/artifacts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Artifacts []any `json:"artifacts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Artifacts) != 0 {
		t.Errorf("expected empty artifact list, got %d", len(resp.Artifacts))
	}
}

func TestArchive_NoArtifacts(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 2)

	w := doJSON(srv, http.MethodGet, "/api/documents/"+id+"/archive", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any generation, got %d", w.Code)
	}
}

func TestArchive_BundlesAllArtifacts(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	id := uploadSample(t, srv, 4)

	w := doJSON(srv, http.MethodPost, "/api/documents/"+id+"/generate",
		`{"manual": "One | 1-2\nTwo | 3-4"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", w.Code)
	}

	w = doJSON(srv, http.MethodGet, "/api/documents/"+id+"/archive", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("expected content type application/zip, got %q", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 zip entries, got %d", len(zr.File))
	}
	if zr.File[0].Name != "one.pdf" || zr.File[1].Name != "two.pdf" {
		t.Errorf("unexpected entry names: %q, %q", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestSyntaxReference(t *testing.T) {
	srv, _ := newTestServer(testConfig())
	w := doJSON(srv, http.MethodGet, "/api/syntax", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected HTML content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<h1") {
		t.Errorf("expected rendered heading, got %s", body)
	}
	if !strings.Contains(body, "start-end") {
		t.Errorf("expected format description in body")
	}
}

func TestAuth_RequiredWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret-key"
	srv, _ := newTestServer(cfg)

	// Document routes demand the key.
	w := doJSON(srv, http.MethodGet, "/api/documents/some-id", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents/some-id", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents/some-id", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with valid key for unknown doc, got %d", rec.Code)
	}

	// Health and syntax stay open.
	w = doJSON(srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", w.Code)
	}
	w = doJSON(srv, http.MethodGet, "/api/syntax", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected open syntax endpoint, got %d", w.Code)
	}
}

func TestRateLimit_Uploads(t *testing.T) {
	cfg := testConfig()
	cfg.OpRate = 0.001
	cfg.OpBurst = 1
	srv, _ := newTestServer(cfg)

	uploadSample(t, srv, 1)

	body, ctype := multipartBody(t, "book.pdf", pdftest.Sample(1))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst exhausted, got %d", w.Code)
	}
}
