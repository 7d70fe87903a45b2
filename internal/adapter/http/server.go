package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/indicator"
	"github.com/couchcryptid/basin-health-service/internal/observability"
)

// Model is the part of *basin.Model the HTTP surface reads and edits.
type Model interface {
	Snapshot() basin.Snapshot
	Node(name string) (basin.Node, error)
	SetOverride(name string, value int, comment string) error
	ClearOverride(name string) error
	SetManualScore(name string, score int) error
	EditWeight(parent, child string, percent int) ([]basin.WeightShare, error)
	ImportGovernance(tranches [][]indicator.Question) error
	AssignGovernance(groups map[string][]indicator.Question) []string
}

// SnapshotPublisher receives a snapshot after every successful edit.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap basin.Snapshot) error
}

// Server exposes health, readiness and metrics endpoints plus the basin
// model's read and edit API.
type Server struct {
	httpServer *http.Server
	model      Model
	publisher  SnapshotPublisher
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer registers all routes. publisher may be nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, model Model, publisher SnapshotPublisher, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		model:     model,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /index", s.handleIndex)
	mux.HandleFunc("GET /indicators/{name}", s.handleIndicator)
	mux.HandleFunc("PUT /indicators/{name}/override", s.handleSetOverride)
	mux.HandleFunc("DELETE /indicators/{name}/override", s.handleClearOverride)
	mux.HandleFunc("PUT /indicators/{name}/score", s.handleManualScore)
	mux.HandleFunc("PUT /indicators/{parent}/weights/{child}", s.handleEditWeight)
	mux.HandleFunc("POST /governance/import", s.handleImportGovernance)
	mux.HandleFunc("POST /governance/assign", s.handleAssignGovernance)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// edited records a successful edit and publishes the resulting snapshot.
// A failed publish is logged; the edit itself has already happened.
func (s *Server) edited(ctx context.Context, operation string) {
	s.metrics.ModelEdits.WithLabelValues(operation).Inc()
	if s.publisher == nil {
		return
	}
	snap := s.model.Snapshot()
	if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
		s.logger.Error("publish snapshot after edit failed", "error", err, "operation", operation)
		return
	}
	s.metrics.SnapshotsPublished.Inc()
}
