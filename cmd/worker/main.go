package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fpl_sync/internal/client"
	"fpl_sync/internal/config"
	"fpl_sync/internal/ingest"
	"fpl_sync/internal/metrics"
	"fpl_sync/internal/scheduler"
	"fpl_sync/internal/snapshot"
	"fpl_sync/internal/store"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting FPL sync worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Bool("store_configured", cfg.StoreConfigured()).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	fplClient := client.NewClient(cfg.FPLBaseURL, cfg.FPLTimeout, cfg.MaxRetries, cfg.RetryDelay)
	log.Info().Str("base_url", cfg.FPLBaseURL).Msg("FPL client initialized")

	storeClient := store.NewClient(store.Config{
		URL:        cfg.SupabaseURL,
		Key:        cfg.SupabaseKey,
		Schema:     cfg.SupabaseSchema,
		MaxRetries: cfg.StoreMaxRetries,
		RetryDelay: cfg.StoreRetryDelay,
	})
	if !storeClient.Enabled() {
		log.Warn().Msg("No store credentials configured; running in dry-run mode")
	}

	snapshots, err := snapshot.NewWriter(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot writer")
	}

	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	syncer := ingest.NewSyncer(cfg, fplClient, storeClient, snapshots)

	sched := scheduler.NewScheduler(cfg, syncer)
	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.InitialSyncEnabled {
		log.Info().Msg("Running initial sync...")
		result, err := syncer.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Initial sync failed, continuing anyway...")
		} else {
			for _, table := range result.Failed() {
				log.Error().Err(table.Err).Str("table", table.Table).Msg("Initial sync table write failed")
			}
			log.Info().Msg("Initial sync completed")
		}
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	if cfg.EnableScheduler {
		sched.Stop()
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
