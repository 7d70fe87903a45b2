package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/basin-health-service/internal/config"
	"github.com/couchcryptid/basin-health-service/internal/domain"
)

// messageFetcher is the part of *kafkago.Reader the adapter uses.
type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader consumes observation records from the source topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        messageFetcher
	flushInterval time.Duration
	commit        bool
	logger        *slog.Logger
}

// NewReader creates a Kafka consumer for the configured source topic. With a
// group ID offsets are committed after each load; without one the reader
// starts at the first offset of partition 0 and never commits.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	rc := kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if cfg.KafkaGroupID != "" {
		rc.StartOffset = kafkago.FirstOffset
	}
	logReaderMode(cfg, logger)
	return newReader(kafkago.NewReader(rc), cfg.BatchFlushInterval, cfg.KafkaGroupID != "", logger)
}

// logReaderMode records how the reader positions itself. With a group ID a
// restart resumes after the committed offset while the model starts empty.
func logReaderMode(cfg *config.Config, logger *slog.Logger) {
	logger.Info("kafka reader configured",
		"topic", cfg.KafkaSourceTopic,
		"group_id", cfg.KafkaGroupID,
		"replay", cfg.KafkaGroupID == "",
	)
	if cfg.KafkaGroupID != "" {
		logger.Warn("consumer group resumes from committed offsets; observations before them are not replayed into the in-memory model",
			"group_id", cfg.KafkaGroupID,
		)
	}
}

func newReader(r messageFetcher, flushInterval time.Duration, commit bool, logger *slog.Logger) *Reader {
	return &Reader{reader: r, flushInterval: flushInterval, commit: commit, logger: logger}
}

// ExtractBatch blocks for the first message, then collects more until
// batchSize is reached or the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	batch := make([]domain.RawEvent, 0, batchSize)
	batch = append(batch, r.toRawEvent(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				r.logger.Warn("fetch message failed, flushing partial batch", "error", err, "batch_size", len(batch))
			}
			break
		}
		batch = append(batch, r.toRawEvent(msg))
	}
	return batch, nil
}

func (r *Reader) toRawEvent(msg kafkago.Message) domain.RawEvent {
	raw := mapMessageToRawEvent(msg)
	if r.commit {
		raw.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
	}
	return raw
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
