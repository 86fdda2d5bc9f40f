package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/driftline/intentd/internal/scoring"
	"github.com/driftline/intentd/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the intentd HTTP API server. Queries are served from the score
// cache; only ingest and dismiss reach the engine.
type Server struct {
	db      *store.DB
	engine  *scoring.Engine
	cache   *scoring.Cache
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server.
func New(db *store.DB, engine *scoring.Engine, cache *scoring.Cache, version string) *Server {
	s := &Server{
		db:      db,
		engine:  engine,
		cache:   cache,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/signals", s.handleIngest)
		r.Post("/signals/{signalID}/dismiss", s.handleDismiss)
		r.Get("/signals/{entityID}/recent", s.handleRecentSignals)

		r.Get("/scores/{entityID}", s.handleGetScore)
		r.Get("/scores", s.handleListScores)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	schema, err := s.db.SchemaVersion()
	if err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"db":       dbOK,
		"db_path":  s.db.Path,
		"schema":   schema,
		"entities": s.cache.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
