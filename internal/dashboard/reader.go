// Package dashboard is the read-only presentation layer. It queries the
// same store the pipeline writes to, applies a short-lived cache to bound
// read amplification, and computes simple aggregates. It has no coupling
// to pipeline run timing beyond eventual consistency.
package dashboard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"fpl_sync/internal/cache"
	"fpl_sync/internal/config"
	"fpl_sync/internal/store"
)

// Player is one row of the players view
type Player struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"first_name"`
	SecondName        string `json:"second_name"`
	WebName           string `json:"web_name"`
	TeamID            int64  `json:"team_id"`
	TeamName          string `json:"team_name"`
	NowCost           *int64 `json:"now_cost"`
	TotalPoints       *int64 `json:"total_points"`
	Minutes           *int64 `json:"minutes"`
	SelectedByPercent string `json:"selected_by_percent"`
	Form              string `json:"form"`
}

// Fixture is one row of the fixtures view
type Fixture struct {
	ID          int64  `json:"id"`
	Event       *int64 `json:"event"`
	TeamH       int64  `json:"team_h"`
	TeamA       int64  `json:"team_a"`
	HomeName    string `json:"home_name"`
	AwayName    string `json:"away_name"`
	HomeScore   *int64 `json:"team_h_score"`
	AwayScore   *int64 `json:"team_a_score"`
	KickoffTime string `json:"kickoff_time"`
	Finished    *bool  `json:"finished"`
	Started     *bool  `json:"started"`
}

// Reader serves dashboard views from the store with a cache in front.
// A nil cache degrades to uncached reads.
type Reader struct {
	cfg   *config.Config
	store *store.Client
	cache *cache.RedisCache
}

// NewReader creates a dashboard reader
func NewReader(cfg *config.Config, st *store.Client, ca *cache.RedisCache) *Reader {
	return &Reader{cfg: cfg, store: st, cache: ca}
}

// TopPlayers returns the highest-scoring players with team names joined
// from the persisted teams table.
func (r *Reader) TopPlayers(ctx context.Context, limit int) ([]Player, error) {
	key := fmt.Sprintf("dashboard:players:top:%d", limit)

	var players []Player
	if r.cacheGet(ctx, key, &players) {
		return players, nil
	}

	rows, err := r.store.Select(ctx, r.cfg.TablePlayers, store.SelectOptions{
		Limit:      limit,
		Order:      "total_points",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}

	names, err := r.TeamNames(ctx)
	if err != nil {
		return nil, err
	}

	players = make([]Player, 0, len(rows))
	for _, row := range rows {
		teamID := asInt64Value(row["team"])
		players = append(players, Player{
			ID:                asInt64Value(row["id"]),
			FirstName:         asString(row["first_name"]),
			SecondName:        asString(row["second_name"]),
			WebName:           asString(row["web_name"]),
			TeamID:            teamID,
			TeamName:          names[teamID],
			NowCost:           asInt64(row["now_cost"]),
			TotalPoints:       asInt64(row["total_points"]),
			Minutes:           asInt64(row["minutes"]),
			SelectedByPercent: asString(row["selected_by_percent"]),
			Form:              asString(row["form"]),
		})
	}

	r.cacheSet(ctx, key, players)
	return players, nil
}

// FixturesByEvent returns the fixtures of one gameweek in kickoff order.
// A zero event returns all fixtures.
func (r *Reader) FixturesByEvent(ctx context.Context, event int) ([]Fixture, error) {
	key := fmt.Sprintf("dashboard:fixtures:event:%d", event)

	var fixtures []Fixture
	if r.cacheGet(ctx, key, &fixtures) {
		return fixtures, nil
	}

	opts := store.SelectOptions{Order: "kickoff_time"}
	if event > 0 {
		opts.Filters = map[string]string{"event": fmt.Sprintf("eq.%d", event)}
	}

	rows, err := r.store.Select(ctx, r.cfg.TableFixtures, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	names, err := r.TeamNames(ctx)
	if err != nil {
		return nil, err
	}

	fixtures = decodeFixtures(rows, names)
	r.cacheSet(ctx, key, fixtures)
	return fixtures, nil
}

// TeamTable returns per-team goal aggregates computed from finished
// fixtures.
func (r *Reader) TeamTable(ctx context.Context) ([]TeamAggregate, error) {
	key := "dashboard:teams:table"

	var table []TeamAggregate
	if r.cacheGet(ctx, key, &table) {
		return table, nil
	}

	fixtures, names, err := r.finishedFixtures(ctx)
	if err != nil {
		return nil, err
	}

	table = ComputeTeamAggregates(fixtures, names)
	r.cacheSet(ctx, key, table)
	return table, nil
}

// ScoreDistribution returns scoreline frequencies across finished
// fixtures.
func (r *Reader) ScoreDistribution(ctx context.Context) ([]ScoreCount, error) {
	key := "dashboard:scores:distribution"

	var scores []ScoreCount
	if r.cacheGet(ctx, key, &scores) {
		return scores, nil
	}

	fixtures, _, err := r.finishedFixtures(ctx)
	if err != nil {
		return nil, err
	}

	scores = ComputeScoreDistribution(fixtures)
	r.cacheSet(ctx, key, scores)
	return scores, nil
}

// TeamNames returns the id -> display name mapping from the persisted
// teams table.
func (r *Reader) TeamNames(ctx context.Context) (map[int64]string, error) {
	key := "dashboard:teams:names"

	var names map[int64]string
	if r.cacheGet(ctx, key, &names) {
		return names, nil
	}

	rows, err := r.store.Select(ctx, r.cfg.TableTeams, store.SelectOptions{Columns: "id,name"})
	if err != nil {
		return nil, fmt.Errorf("failed to read teams: %w", err)
	}

	names = make(map[int64]string, len(rows))
	for _, row := range rows {
		names[asInt64Value(row["id"])] = asString(row["name"])
	}

	r.cacheSet(ctx, key, names)
	return names, nil
}

func (r *Reader) finishedFixtures(ctx context.Context) ([]Fixture, map[int64]string, error) {
	rows, err := r.store.Select(ctx, r.cfg.TableFixtures, store.SelectOptions{
		Filters: map[string]string{"finished": "is.true"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read finished fixtures: %w", err)
	}

	names, err := r.TeamNames(ctx)
	if err != nil {
		return nil, nil, err
	}

	return decodeFixtures(rows, names), names, nil
}

func (r *Reader) cacheGet(ctx context.Context, key string, dest any) bool {
	if r.cache == nil {
		return false
	}
	if err := r.cache.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (r *Reader) cacheSet(ctx context.Context, key string, value any) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to populate read cache")
	}
}

func decodeFixtures(rows []map[string]any, names map[int64]string) []Fixture {
	fixtures := make([]Fixture, 0, len(rows))
	for _, row := range rows {
		teamH := asInt64Value(row["team_h"])
		teamA := asInt64Value(row["team_a"])
		fixtures = append(fixtures, Fixture{
			ID:          asInt64Value(row["id"]),
			Event:       asInt64(row["event"]),
			TeamH:       teamH,
			TeamA:       teamA,
			HomeName:    names[teamH],
			AwayName:    names[teamA],
			HomeScore:   asInt64(row["team_h_score"]),
			AwayScore:   asInt64(row["team_a_score"]),
			KickoffTime: asString(row["kickoff_time"]),
			Finished:    asBool(row["finished"]),
			Started:     asBool(row["started"]),
		})
	}
	return fixtures
}

// JSON numbers decode as float64; store rows use int64 after coercion.
func asInt64(v any) *int64 {
	switch n := v.(type) {
	case float64:
		i := int64(n)
		return &i
	case int64:
		return &n
	default:
		return nil
	}
}

func asInt64Value(v any) int64 {
	if p := asInt64(v); p != nil {
		return *p
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}
