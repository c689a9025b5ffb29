package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	alertadapter "github.com/sedimentwatch/river-turbidity-etl/internal/adapter/alert"
	httpadapter "github.com/sedimentwatch/river-turbidity-etl/internal/adapter/http"
	kafkaadapter "github.com/sedimentwatch/river-turbidity-etl/internal/adapter/kafka"
	"github.com/sedimentwatch/river-turbidity-etl/internal/config"
	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
	"github.com/sedimentwatch/river-turbidity-etl/internal/observability"
	"github.com/sedimentwatch/river-turbidity-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize alerting (feature-flagged via ALERT_ENABLED / ALERT_WEBHOOK_URL).
	var alerter domain.Alerter
	if cfg.AlertEnabled {
		client := alertadapter.NewClient(cfg.AlertWebhookURL, cfg.AlertTimeout, metrics, logger)
		alerter = alertadapter.NewDedupeAlerter(client, cfg.AlertCacheSize, metrics)
		metrics.AlertEnabled.Set(1)
		logger.Info("webhook alerting enabled", "cache_size", cfg.AlertCacheSize, "timeout", cfg.AlertTimeout)
	} else {
		logger.Info("webhook alerting disabled")
	}

	series := domain.NewSeriesStore()
	latest := domain.NewLatestRasters()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg, series, latest, alerter, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, series, latest, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
