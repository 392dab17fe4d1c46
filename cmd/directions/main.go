package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/route-directions/internal/adapter/googlemaps"
	"github.com/couchcryptid/route-directions/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/route-directions/internal/adapter/kafka"
	"github.com/couchcryptid/route-directions/internal/config"
	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var fetcher domain.DirectionsFetcher = googlemaps.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout, logger, metrics)
	if cfg.CacheEnabled {
		fetcher = googlemaps.NewCachedDirections(fetcher, cfg.CacheSize, cfg.CacheTTL, metrics)
		metrics.CacheEnabled.Set(1)
		logger.Info("route cache enabled", "cache_size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	} else {
		logger.Info("route cache disabled")
	}

	// Route publishing is feature-flagged via KAFKA_BROKERS.
	var (
		publisher httpadapter.RoutePublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		publisher = writer
		logger.Info("route publishing enabled", "topic", cfg.KafkaRouteTopic, "brokers", cfg.KafkaBrokers)
	}

	handler := httpadapter.NewDirectionsHandler(fetcher, publisher, httpadapter.Defaults{
		Mode:              cfg.Mode,
		Language:          cfg.Language,
		Region:            cfg.Region,
		OptimizeWaypoints: cfg.OptimizeWaypoints,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	handler.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
