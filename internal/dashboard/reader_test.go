package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpl_sync/internal/config"
	"fpl_sync/internal/store"
)

const teamsJSON = `[{"id": 1, "name": "Arsenal"}, {"id": 2, "name": "Chelsea"}]`

func testReader(t *testing.T, handler http.HandlerFunc) *Reader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		TablePlayers:  "fpl_players",
		TableFixtures: "fpl_fixtures",
		TableTeams:    "fpl_teams",
	}
	storeClient := store.NewClient(store.Config{
		URL:        server.URL,
		Key:        "key",
		Schema:     "public",
		RetryDelay: time.Millisecond,
	})
	return NewReader(cfg, storeClient, nil)
}

func TestTopPlayers_JoinsTeamNames(t *testing.T) {
	reader := testReader(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "fpl_players"):
			assert.Equal(t, "total_points.desc", r.URL.Query().Get("order"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			w.Write([]byte(`[
				{"id": 100, "web_name": "Saka", "team": 1, "total_points": 200, "now_cost": 90},
				{"id": 200, "web_name": "Palmer", "team": 2, "total_points": 180, "now_cost": null}
			]`))
		case strings.HasSuffix(r.URL.Path, "fpl_teams"):
			w.Write([]byte(teamsJSON))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	players, err := reader.TopPlayers(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, players, 2)

	assert.Equal(t, "Saka", players[0].WebName)
	assert.Equal(t, "Arsenal", players[0].TeamName, "Team id resolves to the persisted team name")
	require.NotNil(t, players[0].TotalPoints)
	assert.Equal(t, int64(200), *players[0].TotalPoints)

	assert.Equal(t, "Chelsea", players[1].TeamName)
	assert.Nil(t, players[1].NowCost, "Null store columns stay nil in the view")
}

func TestFixturesByEvent_FilterAndNames(t *testing.T) {
	reader := testReader(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "fpl_fixtures"):
			assert.Equal(t, "eq.3", r.URL.Query().Get("event"))
			assert.Equal(t, "kickoff_time.asc", r.URL.Query().Get("order"))
			w.Write([]byte(`[{"id": 7, "event": 3, "team_h": 1, "team_a": 2,
				"team_h_score": null, "finished": false,
				"kickoff_time": "2024-08-10T14:00:00Z"}]`))
		case strings.HasSuffix(r.URL.Path, "fpl_teams"):
			w.Write([]byte(teamsJSON))
		}
	})

	fixtures, err := reader.FixturesByEvent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, fixtures, 1)

	f := fixtures[0]
	assert.Equal(t, "Arsenal", f.HomeName)
	assert.Equal(t, "Chelsea", f.AwayName)
	assert.Nil(t, f.HomeScore)
	require.NotNil(t, f.Finished)
	assert.False(t, *f.Finished)
	assert.Nil(t, f.Started, "Absent flag is nil, distinct from false")
}

func TestFixturesByEvent_ZeroEventReturnsAll(t *testing.T) {
	reader := testReader(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "fpl_fixtures") {
			assert.Empty(t, r.URL.Query().Get("event"), "Zero event means no gameweek filter")
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[]`))
	})

	fixtures, err := reader.FixturesByEvent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, fixtures)
}

func TestTeamTable_FinishedFixturesOnly(t *testing.T) {
	reader := testReader(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "fpl_fixtures"):
			assert.Equal(t, "is.true", r.URL.Query().Get("finished"))
			w.Write([]byte(`[{"id": 7, "team_h": 1, "team_a": 2,
				"team_h_score": 2, "team_a_score": 0, "finished": true}]`))
		case strings.HasSuffix(r.URL.Path, "fpl_teams"):
			w.Write([]byte(teamsJSON))
		}
	})

	table, err := reader.TeamTable(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2)

	assert.Equal(t, "Arsenal", table[0].Name)
	assert.Equal(t, 2, table[0].GoalDiff)
	assert.Equal(t, "Chelsea", table[1].Name)
	assert.Equal(t, -2, table[1].GoalDiff)
}

func TestReader_StoreErrorPropagates(t *testing.T) {
	reader := testReader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := reader.TopPlayers(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStoreRead)
}
