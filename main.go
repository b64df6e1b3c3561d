package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/anaviationstore/listingsync/config"
	"github.com/anaviationstore/listingsync/internal/pipeline"
	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/services/cache"
	syncsvc "github.com/anaviationstore/listingsync/services/sync"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("fetch_mode", cfg.FetchMode).
		Str("sync_backend", cfg.SyncBackend).
		Msg("Starting seller sync")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize the sync target before any crawling happens
	target, err := syncsvc.NewTarget(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sync target")
	}
	defer target.Close()

	p := pipeline.New(cfg, target)

	// The block-marker cache is optional; without it block state only
	// lives for the process lifetime
	if cfg.MemcacheAddr != "" {
		p = p.WithCache(cache.NewMemcacheService(cfg.MemcacheAddr))
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Run the pipeline in a goroutine so signals can cancel it
	runDone := make(chan error, 1)
	go func() {
		summary, err := p.Run(ctx)
		if err == nil {
			log.Info().
				Str("run_id", summary.RunID).
				Str("seller", summary.SellerName).
				Int("discovered", summary.Discovered).
				Int("written", summary.Written).
				Int("stubs", summary.Stubs).
				Msg("Run completed")
		}
		runDone <- err
	}()

	// Wait for shutdown signal or run completion
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-runDone
	case err := <-runDone:
		if err != nil {
			log.Error().Err(err).Msg("Run exited with error")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}
