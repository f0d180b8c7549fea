package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/allredmatt/server-based-job-site/internal/scraper"
	"github.com/allredmatt/server-based-job-site/internal/store"
)

// Gatherer runs one scrape batch for the given keywords.
type Gatherer interface {
	Gather(ctx context.Context, titles []string) (scraper.Result, error)
}

// HistoryStore records and lists past scrape runs.
type HistoryStore interface {
	SaveRun(ctx context.Context, run store.Run) (int64, error)
	ListRuns(ctx context.Context, limit, offset int) ([]store.Run, int, error)
}

type Server struct {
	router    *chi.Mux
	gatherer  Gatherer
	history   HistoryStore
	staticDir string
}

type Option func(*Server)

// WithHistory enables recording of scrape runs and the history endpoint.
func WithHistory(h HistoryStore) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithStaticDir serves the browser UI from dir at "/".
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

func NewServer(gatherer Gatherer, opts ...Option) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		gatherer: gatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Post("/api/jobstats", s.handleJobStats)
	s.router.Get("/api/jobstats/history", s.handleHistory)

	if s.staticDir != "" {
		FileServer(s.router, "/", http.Dir(s.staticDir))
	}
}

func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit any URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
