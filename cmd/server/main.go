package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/symmetryops/pulse-core/internal/aggregator"
	"github.com/symmetryops/pulse-core/internal/api"
	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/services"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting PULSE-CORE", "environment", cfg.Environment)

	// Backend clients are process-wide singletons; connection pools are
	// created lazily per target environment on first use.
	backends := services.NewBackends(cfg.Backends, logger)

	agg := aggregator.New(backends, *cfg, logger)

	apiServer := api.NewServer(cfg, logger, backends, agg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	logger.Info("PULSE-CORE shutdown complete")
}
