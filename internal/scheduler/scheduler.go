package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"fpl_sync/internal/config"
	"fpl_sync/internal/ingest"
)

// Scheduler triggers pipeline runs in the background:
// - full fetch+upsert cycles on a cron schedule
// - live gameweek stat polling on a short ticker
// Runs are expected not to overlap, but overlap is harmless because every
// write is an idempotent upsert keyed on the primary key.
type Scheduler struct {
	cfg      *config.Config
	syncer   *ingest.Syncer
	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, syncer *ingest.Syncer) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		syncer:   syncer,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.SyncCron, func() {
		s.runFull(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pipeline runs: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.SyncCron).
		Msg("Full sync scheduled")

	s.ticker = time.NewTicker(s.cfg.LivePollInterval)
	log.Info().
		Dur("interval", s.cfg.LivePollInterval).
		Msg("Live gameweek polling started")

	go s.pollLive(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runFull(ctx context.Context) {
	log.Info().Msg("Running scheduled pipeline sync...")

	result, err := s.syncer.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled pipeline run failed")
		return
	}

	for _, table := range result.Failed() {
		log.Error().
			Err(table.Err).
			Str("table", table.Table).
			Msg("Table write failed during scheduled run")
	}
}

// pollLive continuously polls live stats while a gameweek is active
func (s *Scheduler) pollLive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping live polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping live polling")
			return
		case <-s.ticker.C:
			if _, err := s.syncer.RunLive(ctx); err != nil {
				log.Error().Err(err).Msg("Live sync failed")
			}
		}
	}
}
