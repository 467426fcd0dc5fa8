// Package server exposes the HTTP API: endpoint CRUD, check history,
// daily summaries, the since-cursor log feed, and the ad-hoc phased
// check. Every route maps onto one store or probe operation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kabhi-dev/apimon/internal/probe"
	"github.com/kabhi-dev/apimon/internal/store"
)

// Store defines the storage operations the API needs.
type Store interface {
	CreateEndpoint(ctx context.Context, e *store.Endpoint) error
	GetEndpoint(ctx context.Context, id int64) (*store.Endpoint, error)
	ListEndpoints(ctx context.Context) ([]store.Endpoint, error)
	UpdateEndpoint(ctx context.Context, e *store.Endpoint) error
	DeleteEndpoint(ctx context.Context, id int64) error
	History(ctx context.Context, endpointID int64, limit, offset int) ([]store.CheckLog, int, error)
	DailySummary(ctx context.Context, endpointID int64, since time.Time) ([]store.CheckLog, error)
	LogDetail(ctx context.Context, id int64) (*store.CheckLog, error)
	LogsSince(ctx context.Context, lastSeenID int64, limit int) ([]store.CheckLog, error)
}

// Prober runs the one-shot phased check behind POST /api/check.
type Prober interface {
	Measure(ctx context.Context, url string, headers map[string]string) (*probe.Result, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store  Store
	prober Prober
	router chi.Router
	logger *zap.Logger
}

// New creates a Server and registers all routes.
func New(st Store, prober Prober, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  st,
		prober: prober,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)

	r.Get("/api/endpoints", s.handleListEndpoints)
	r.Post("/api/endpoints", s.handleCreateEndpoint)
	r.Get("/api/endpoints/{id}", s.handleGetEndpoint)
	r.Put("/api/endpoints/{id}", s.handleUpdateEndpoint)
	r.Delete("/api/endpoints/{id}", s.handleDeleteEndpoint)
	r.Get("/api/endpoints/{id}/history", s.handleHistory)
	r.Get("/api/endpoints/{id}/summary", s.handleDailySummary)

	r.Get("/api/logs", s.handleLogsSince)
	r.Get("/api/logs/{id}", s.handleLogDetail)

	r.Post("/api/check", s.handleCheck)
}

// --- Response helpers ---

type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.logger.Error("store_error", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
