package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/moonsight/internal/adapter/geocode"
	"github.com/couchcryptid/moonsight/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/moonsight/internal/adapter/kafka"
	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/config"
	"github.com/couchcryptid/moonsight/internal/engine"
	"github.com/couchcryptid/moonsight/internal/ephem"
	"github.com/couchcryptid/moonsight/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder httpapi.Geocoder
	if cfg.MapboxEnabled {
		client := geocode.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = geocode.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Initialize month publisher (feature-flagged via KAFKA_ENABLED).
	var publisher httpapi.MonthPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		publisher = kafkaPublisher
		logger.Info("kafka month publishing enabled", "topic", cfg.KafkaMonthsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka month publishing disabled")
	}

	eng := engine.New(ephem.New(), astro.AstralSunEvents{}, logger, metrics, cfg.GridParallelism)

	srv := httpapi.NewServer(cfg.HTTPAddr, eng, eng, geocoder, publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the self-check; /readyz reports 503 until it passes.
	go func() {
		if err := eng.SelfCheck(ctx); err != nil {
			logger.Error("engine self-check failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
