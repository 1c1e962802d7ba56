// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	service "github.com/okian/ethos/internal/app"
	"github.com/okian/ethos/internal/domain/model"
	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/tracker"
	"github.com/okian/ethos/internal/domain/trait"
	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Enqueue pushes a snapshot for async processing.
	Enqueue(ctx context.Context, e model.SnapshotEvent) (duplicate bool, err error)

	Observe(ctx context.Context, characterID string, snapshot trait.Snapshot) (tracker.Observation, error)
	Commit(ctx context.Context, characterID string) error
	Delete(ctx context.Context, characterID string) error

	Character(ctx context.Context, characterID string) (service.CharacterView, error)
	Alignment(ctx context.Context, characterID string) (trait.AlignmentSummary, error)
	Changes(ctx context.Context, characterID string) (service.ChangesView, error)
	Trait(ctx context.Context, characterID, name string) (service.TraitView, error)
	Toasts(ctx context.Context, characterID string, n int) ([]tracker.Toast, error)

	Milestones(ctx context.Context, characterID string) ([]progression.Milestone, error)
	Unlocks(ctx context.Context, characterID string) ([]progression.Unlock, error)
	DismissMilestone(ctx context.Context, characterID string, index int) (progression.Milestone, error)
	DismissUnlock(ctx context.Context, characterID string, index int) (progression.Unlock, error)

	GetStats(ctx context.Context) (service.Stats, error)
}

// Server wires HTTP routes for the trait API.
type Server struct {
	deps         Dependencies
	logger       logger.Logger
	metrics      *metrics.Manager
	maxBodyBytes int64
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request metrics and serves /metrics from m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		logger:       logger.Nop(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns a chi router with the common middleware stack and every
// API route mounted.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.RequestLog)
	r.Use(chimw.Recoverer)
	r.Use(s.MetricsMiddleware)
	s.Routes(r)
	return r
}

// Routes attaches all HTTP routes to r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/snapshots", s.handlePostSnapshot)

		r.Route("/characters/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetCharacter)
			r.Delete("/", s.handleDeleteCharacter)
			r.Post("/observe", s.handleObserve)
			r.Post("/commit", s.handleCommit)
			r.Get("/alignment", s.handleGetAlignment)
			r.Get("/changes", s.handleGetChanges)
			r.Get("/traits/{trait}", s.handleGetTrait)
			r.Get("/toasts", s.handleGetToasts)

			r.Get("/milestones", s.handleListMilestones)
			r.Delete("/milestones/{index}", s.handleDismissMilestone)
			r.Get("/unlocks", s.handleListUnlocks)
			r.Delete("/unlocks/{index}", s.handleDismissUnlock)
		})

		r.Post("/alignment", s.handleComputeAlignment)
		r.Post("/diff", s.handleComputeDiff)
		r.Post("/predict", s.handlePredict)
		r.Get("/traits/{trait}/category", s.handleGetCategory)
		r.Get("/levels/{value}", s.handleGetLevel)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes it. Server errors are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestID", chimw.GetReqID(r.Context())),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decode reads a JSON body into v, rejecting unknown fields and oversize
// bodies.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
