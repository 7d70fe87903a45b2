package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/basin-health-service/internal/domain"
)

// ObservationTransformer implements Transformer with domain.ParseRawEvent.
type ObservationTransformer struct {
	logger *slog.Logger
}

func NewTransformer(logger *slog.Logger) *ObservationTransformer {
	return &ObservationTransformer{logger: logger}
}

func (t *ObservationTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Observation, error) {
	obs, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Observation{}, err
	}
	t.logger.Debug("observation parsed", "id", obs.ID, "type", obs.Type, "offset", raw.Offset)
	return obs, nil
}
