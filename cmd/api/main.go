package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	appanalytics "github.com/cardarena/arena/src/app/analytics"
	"github.com/cardarena/arena/src/app/battles"
	"github.com/cardarena/arena/src/app/ratings"
	"github.com/cardarena/arena/src/config"
	infraanalytics "github.com/cardarena/arena/src/infra/analytics"
)

var version = "dev"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load(getEnv("ARENA_CONFIG", ""))
	if err != nil {
		panic(err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug("no .env file loaded", zap.Error(envErr))
	}

	baseCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	shutdownTelemetry, err := setupTelemetry(baseCtx, "arena-api", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(ctx)
		}()
	}

	store, err := openStorage(baseCtx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() { _ = store.close() }()

	if cfg.SeedFile != "" {
		seed, err := config.LoadSeed(cfg.SeedFile)
		if err != nil {
			logger.Fatal("failed to load seed", zap.Error(err))
		}
		if err := seed.Apply(baseCtx, store.decks, store.stats, time.Now().UTC()); err != nil {
			logger.Fatal("failed to apply seed", zap.Error(err))
		}
		logger.Info("seed applied", zap.Int("players", len(seed.Players)))
	}

	rnd, err := battles.NewSeededRandom()
	if err != nil {
		logger.Fatal("failed to seed random source", zap.Error(err))
	}

	updater := ratings.NewUpdater(store.stats, logger.Named("ratings"))
	simulator := battles.NewSimulator(store.battles, store.decks, store.rounds, updater, rnd, logger.Named("simulator"))
	battleService := battles.NewService(store.battles, store.decks, simulator, store.rounds, logger.Named("coordinator"))
	ratingService := ratings.NewService(store.stats)

	var notifier battles.Notifier
	if cfg.Analytics.SegmentWriteKey != "" {
		dispatcher := infraanalytics.NewSegmentDispatcher(cfg.Analytics.SegmentWriteKey, cfg.Analytics.SegmentURL, logger.Named("segment"))
		notifier = appanalytics.NewService(dispatcher, "arena", version)
	}

	registry := prometheus.NewRegistry()
	battleService.Notifier = newBattleMetrics(registry, battleService.ActiveBattles, notifier)

	server := NewServer(ServerConfig{
		Logger:        logger,
		Registry:      registry,
		BattleService: battleService,
		RatingService: ratingService,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("arena API listening", zap.String("addr", cfg.HTTP.Address), zap.String("storage", cfg.Storage.Driver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-baseCtx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
