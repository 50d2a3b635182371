// Command runonce performs a single pipeline run and exits. Intended for
// external schedulers (cron, CI) that re-trigger the whole run on a fixed
// cadence. The exit code is non-zero only on an unhandled fetch failure;
// per-table write failures are logged but do not fail the run.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fpl_sync/internal/client"
	"fpl_sync/internal/config"
	"fpl_sync/internal/ingest"
	"fpl_sync/internal/snapshot"
	"fpl_sync/internal/store"
)

func main() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	ctx := context.Background()
	cfg := config.MustLoad()

	log.Info().Msg("== FPL pipeline start ==")

	fplClient := client.NewClient(cfg.FPLBaseURL, cfg.FPLTimeout, cfg.MaxRetries, cfg.RetryDelay)

	storeClient := store.NewClient(store.Config{
		URL:        cfg.SupabaseURL,
		Key:        cfg.SupabaseKey,
		Schema:     cfg.SupabaseSchema,
		MaxRetries: cfg.StoreMaxRetries,
		RetryDelay: cfg.StoreRetryDelay,
	})

	snapshots, err := snapshot.NewWriter(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot writer")
	}

	syncer := ingest.NewSyncer(cfg, fplClient, storeClient, snapshots)

	result, err := syncer.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline run failed")
	}

	for _, table := range result.Tables {
		if table.Err != nil {
			log.Error().Err(table.Err).Str("table", table.Table).Msg("Table write failed")
			continue
		}
		log.Info().Str("table", table.Table).Int("rows", table.Rows).Msg("Table synced")
	}

	log.Info().Msg("== FPL pipeline end ==")
}
