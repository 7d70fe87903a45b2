package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/domain"
	"github.com/couchcryptid/basin-health-service/internal/observability"
)

// SnapshotPublisher sends a rendered basin snapshot downstream.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap basin.Snapshot) error
}

// ModelLoader implements BatchLoader by applying observations to a basin
// model. After each batch that changed the model it publishes one snapshot.
type ModelLoader struct {
	model     *basin.Model
	publisher SnapshotPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewModelLoader creates a ModelLoader. A nil publisher disables snapshot
// publishing.
func NewModelLoader(model *basin.Model, publisher SnapshotPublisher, logger *slog.Logger, metrics *observability.Metrics) *ModelLoader {
	return &ModelLoader{
		model:     model,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// LoadBatch applies every observation. Observations the model rejects (an
// unknown indicator, a survey answer for a manual leaf) are logged and
// skipped; only a failed publish is returned.
func (l *ModelLoader) LoadBatch(ctx context.Context, observations []domain.Observation) error {
	var applied int
	for _, obs := range observations {
		if err := l.model.Apply(obs); err != nil {
			l.logger.Warn("observation rejected by model, skipping",
				"error", err,
				"id", obs.ID,
				"type", obs.Type,
				"indicator", obs.Indicator,
			)
			l.metrics.ApplyErrors.Inc()
			continue
		}
		applied++
	}
	l.metrics.ObservationsApplied.Add(float64(applied))
	if applied == 0 {
		return nil
	}

	snap := l.model.Snapshot()
	attrs := []any{"applied", applied, "rejected", len(observations) - applied}
	if snap.Index != nil {
		l.metrics.IndexValue.Set(float64(*snap.Index))
		attrs = append(attrs, "index", *snap.Index)
	}
	l.logger.Info("batch applied", attrs...)

	if l.publisher == nil {
		return nil
	}
	if err := l.publisher.PublishSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	l.metrics.SnapshotsPublished.Inc()
	return nil
}
