// Package ingest orchestrates one pipeline run: fetch the upstream
// documents, persist raw snapshots, push each entity set through
// normalize -> project -> coerce -> sanitize, and bulk-upsert the result
// into the remote store. A run is single-threaded and batch-oriented;
// tables are written independently, so partial success is possible and
// observable in the run result.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fpl_sync/internal/client"
	"fpl_sync/internal/config"
	"fpl_sync/internal/metrics"
	"fpl_sync/internal/pipeline"
	"fpl_sync/internal/snapshot"
	"fpl_sync/internal/store"
)

// Syncer runs the ingest-normalize-upsert pipeline
type Syncer struct {
	cfg       *config.Config
	client    *client.Client
	store     *store.Client
	snapshots *snapshot.Writer
}

// TableResult reports the outcome of one table's write
type TableResult struct {
	Table string
	Rows  int
	Err   error
}

// RunResult collects per-table outcomes of one run
type RunResult struct {
	Tables []TableResult
}

// Failed returns the table results that ended in a write error
func (r *RunResult) Failed() []TableResult {
	var failed []TableResult
	for _, t := range r.Tables {
		if t.Err != nil {
			failed = append(failed, t)
		}
	}
	return failed
}

// NewSyncer creates a pipeline orchestrator
func NewSyncer(cfg *config.Config, cl *client.Client, st *store.Client, snapshots *snapshot.Writer) *Syncer {
	return &Syncer{
		cfg:       cfg,
		client:    cl,
		store:     st,
		snapshots: snapshots,
	}
}

// Run performs one full fetch+write cycle: players and teams from the
// bootstrap document, then fixtures. A fetch failure aborts the run
// before any write; a write failure is recorded per table and does not
// stop the sibling tables.
func (s *Syncer) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	log.Info().Msg("Pipeline run starting")

	result := &RunResult{}

	rawBootstrap, bootstrap, err := s.client.FetchBootstrap(ctx)
	if err != nil {
		metrics.RecordError("sync", "source_fetch")
		metrics.RecordSync("full", "failure", time.Since(start).Seconds())
		return nil, fmt.Errorf("pipeline run aborted: %w", err)
	}
	s.saveSnapshot("bootstrap", rawBootstrap)
	log.Info().Int("players", len(bootstrap.Elements)).Int("teams", len(bootstrap.Teams)).Msg("Bootstrap fetched")

	result.Tables = append(result.Tables,
		s.syncTable(ctx, bootstrap.Elements, pipeline.Players, s.cfg.TablePlayers),
		s.syncTable(ctx, bootstrap.Teams, pipeline.Teams, s.cfg.TableTeams),
	)

	rawFixtures, fixtures, err := s.client.FetchFixtures(ctx)
	if err != nil {
		metrics.RecordError("sync", "source_fetch")
		metrics.RecordSync("full", "failure", time.Since(start).Seconds())
		return nil, fmt.Errorf("pipeline run aborted: %w", err)
	}
	s.saveSnapshot("fixtures", rawFixtures)
	log.Info().Int("fixtures", len(fixtures)).Msg("Fixtures fetched")

	result.Tables = append(result.Tables,
		s.syncTable(ctx, fixtures, pipeline.Fixtures, s.cfg.TableFixtures),
	)

	status := "success"
	if len(result.Failed()) > 0 {
		status = "partial"
	}
	metrics.RecordSync("full", status, time.Since(start).Seconds())

	log.Info().
		Str("status", status).
		Dur("duration", time.Since(start)).
		Msg("Pipeline run complete")

	return result, nil
}

// RunLive syncs live per-player stats for the current gameweek, resolved
// from the bootstrap document's events section. A no-op outside an
// active gameweek.
func (s *Syncer) RunLive(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	_, bootstrap, err := s.client.FetchBootstrap(ctx)
	if err != nil {
		metrics.RecordError("sync", "source_fetch")
		metrics.RecordSync("live", "failure", time.Since(start).Seconds())
		return nil, fmt.Errorf("live run aborted: %w", err)
	}

	event, ok := currentEvent(bootstrap)
	if !ok {
		log.Info().Msg("No current gameweek; skipping live sync")
		return &RunResult{}, nil
	}

	rawLive, live, err := s.client.FetchEventLive(ctx, event)
	if err != nil {
		metrics.RecordError("sync", "source_fetch")
		metrics.RecordSync("live", "failure", time.Since(start).Seconds())
		return nil, fmt.Errorf("live run aborted: %w", err)
	}
	s.saveSnapshot(fmt.Sprintf("event_%d_live", event), rawLive)

	// Live elements carry no gameweek reference of their own; stamp the
	// resolved event onto each record before projection.
	for _, element := range live.Elements {
		element["event"] = event
	}

	result := &RunResult{
		Tables: []TableResult{
			s.syncTable(ctx, live.Elements, pipeline.EventsLive, s.cfg.TableEventsLive),
		},
	}

	status := "success"
	if len(result.Failed()) > 0 {
		status = "partial"
	}
	metrics.RecordSync("live", status, time.Since(start).Seconds())

	log.Info().
		Int("event", event).
		Str("status", status).
		Dur("duration", time.Since(start)).
		Msg("Live sync complete")

	return result, nil
}

// syncTable runs one entity set through the pipeline stages and upserts
// the outcome. Row-level coercion is total and never fails the table;
// only the store write can.
func (s *Syncer) syncTable(ctx context.Context, objects []map[string]any, table pipeline.Table, storeTable string) TableResult {
	pipeline.StripFields(objects, table.Exclude)

	rows := pipeline.Flatten(objects)
	rows = pipeline.Project(rows, table)
	pipeline.Coerce(rows, table)
	pipeline.Sanitize(rows)

	log.Info().
		Str("table", storeTable).
		Int("rows", len(rows)).
		Msg("Rows prepared for upsert")

	if err := s.store.Upsert(ctx, storeTable, rows); err != nil {
		metrics.RecordStoreWrite(storeTable, "failure", 0)
		metrics.RecordError("store", "write")
		log.Error().Err(err).Str("table", storeTable).Msg("Table write failed")
		return TableResult{Table: storeTable, Rows: len(rows), Err: err}
	}

	metrics.RecordStoreWrite(storeTable, "success", len(rows))
	s.reportStaleness(ctx, storeTable, rows)

	return TableResult{Table: storeTable, Rows: len(rows)}
}

// reportStaleness compares the store's current id set with the ids seen
// this run and reports the gap. Rows that disappeared upstream are left
// in place; the source gave no intent that deletion is wanted, so the
// pipeline observes staleness without acting on it.
func (s *Syncer) reportStaleness(ctx context.Context, storeTable string, rows []pipeline.Row) {
	if !s.store.Enabled() {
		return
	}

	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if id, ok := row["id"].(int64); ok {
			seen[id] = true
		}
	}

	stored, err := s.store.SelectIDs(ctx, storeTable)
	if err != nil {
		log.Warn().Err(err).Str("table", storeTable).Msg("Staleness check skipped")
		return
	}

	stale := 0
	for id := range stored {
		if !seen[id] {
			stale++
		}
	}

	metrics.RecordStaleRows(storeTable, stale)
	if stale > 0 {
		log.Warn().
			Str("table", storeTable).
			Int("stale_rows", stale).
			Msg("Store rows no longer present upstream")
	}
}

func (s *Syncer) saveSnapshot(name string, raw []byte) {
	if _, err := s.snapshots.Save(name, raw); err != nil {
		metrics.RecordError("snapshot", "write")
		log.Error().Err(err).Str("document", name).Msg("Failed to save raw snapshot")
	}
}

// currentEvent resolves the active gameweek from the bootstrap events
// section.
func currentEvent(bootstrap *client.Bootstrap) (int, bool) {
	for _, event := range bootstrap.Events {
		isCurrent, _ := event["is_current"].(bool)
		if !isCurrent {
			continue
		}
		if id, ok := event["id"].(float64); ok {
			return int(id), true
		}
	}
	return 0, false
}
