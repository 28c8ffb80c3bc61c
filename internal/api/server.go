package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/illyaom19/textbook-module-separator/internal/config"
	"github.com/illyaom19/textbook-module-separator/internal/session"
)

// tracerName is the instrumentation scope for spans created by handlers.
const tracerName = "textbook-module-separator/api"

// Server is the HTTP API server for the module separator.
type Server struct {
	router chi.Router
	store  *session.Store
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *session.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store: store,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(Tracing("textbook-module-separator"))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/syntax", s.handleSyntax)

	// Document endpoints, behind auth when a key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		// Upload and generate parse whole documents; one shared bucket
		// throttles both.
		limiter := rate.NewLimiter(rate.Limit(s.cfg.OpRate), s.cfg.OpBurst)

		r.With(RateLimit(limiter)).Post("/api/documents", s.handleUpload)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Post("/api/documents/{docID}/detect", s.handleDetect)
		r.With(RateLimit(limiter)).Post("/api/documents/{docID}/generate", s.handleGenerate)

		r.Get("/api/documents/{docID}/artifacts", s.handleListArtifacts)
		r.Get("/api/documents/{docID}/artifacts/{artifactID}", s.handleDownloadArtifact)
		r.Get("/api/documents/{docID}/archive", s.handleArchive)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// sessionFromRequest resolves the {docID} route parameter, answering 404 on
// a miss. A hit refreshes the session's TTL clock.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "docID")
	sess := s.store.Get(id)
	if sess == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil
	}
	sess.Touch()
	return sess
}
