package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/basin-health-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/basin-health-service/internal/adapter/kafka"
	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/config"
	"github.com/couchcryptid/basin-health-service/internal/observability"
	"github.com/couchcryptid/basin-health-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	model := basin.NewModel(cfg.BasinName, basin.WithLogger(logger))
	if cfg.BasinDefinition != "" {
		def, err := basin.LoadDefinition(cfg.BasinDefinition)
		if err != nil {
			logger.Error("failed to load basin definition", "error", err, "path", cfg.BasinDefinition)
			os.Exit(1)
		}
		if err := model.ApplyDefinition(def); err != nil {
			logger.Error("failed to apply basin definition", "error", err, "path", cfg.BasinDefinition)
			os.Exit(1)
		}
	}

	reader := kafkaadapter.NewReader(cfg, logger)

	// The typed nil stays out of the interface so publishing is really off.
	var publisher pipeline.SnapshotPublisher
	var writer *kafkaadapter.Writer
	if cfg.PublishSnapshots {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	} else {
		logger.Info("snapshot publishing disabled")
	}

	transformer := pipeline.NewTransformer(logger)
	loader := pipeline.NewModelLoader(model, publisher, logger, metrics)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, model, publisher, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Either goroutine failing cancels gctx and starts shutdown.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(gctx)
	})

	<-gctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
