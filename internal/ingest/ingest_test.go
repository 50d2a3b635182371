package ingest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpl_sync/internal/client"
	"fpl_sync/internal/config"
	"fpl_sync/internal/snapshot"
	"fpl_sync/internal/store"
)

const bootstrapBody = `{
	"events": [{"id": 3, "is_current": true}],
	"teams": [
		{"id": 1, "name": "Arsenal", "short_name": "ARS", "code": 3, "strength": 4},
		{"id": 2, "name": "Chelsea", "short_name": "CHE", "code": 8, "strength": 4}
	],
	"elements": [
		{"id": 100, "first_name": "Bukayo", "second_name": "Saka", "web_name": "Saka",
		 "team": 1, "now_cost": "90", "total_points": 200, "minutes": 3000,
		 "selected_by_percent": "45.2", "form": "7.5", "ep_next": "6.1", "ep_this": "5.9",
		 "news": "fit", "chance_of_playing": 100}
	]
}`

const fixturesBody = `[
	{"id": 7, "event": 3, "team_h": 1, "team_a": 2, "team_h_score": null,
	 "finished": false, "kickoff_time": "2024-08-10T14:00:00Z",
	 "stats": [{"identifier": "goals_scored"}]}
]`

// capturingStore records every write payload per table and answers the
// staleness id reads.
type capturingStore struct {
	mu     sync.Mutex
	writes map[string][]string
}

func newCapturingStore() *capturingStore {
	return &capturingStore{writes: make(map[string][]string)}
}

func (s *capturingStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			s.writes[table] = append(s.writes[table], string(body))
			s.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			w.Write([]byte(`[]`))
		}
	}
}

func (s *capturingStore) payloads(table string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes[table]...)
}

func testSyncer(t *testing.T, upstreamURL, storeURL, storeKey string) (*Syncer, string) {
	t.Helper()

	dataDir := t.TempDir()
	cfg := &config.Config{
		FPLBaseURL:      upstreamURL,
		FPLTimeout:      5 * time.Second,
		DataDir:         dataDir,
		SupabaseURL:     storeURL,
		SupabaseKey:     storeKey,
		SupabaseSchema:  "public",
		TablePlayers:    "fpl_players",
		TableFixtures:   "fpl_fixtures",
		TableEventsLive: "fpl_events_live",
		TableTeams:      "fpl_teams",
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
		StoreRetryDelay: time.Millisecond,
	}

	fplClient := client.NewClient(cfg.FPLBaseURL, cfg.FPLTimeout, cfg.MaxRetries, cfg.RetryDelay)
	storeClient := store.NewClient(store.Config{
		URL:        cfg.SupabaseURL,
		Key:        cfg.SupabaseKey,
		Schema:     cfg.SupabaseSchema,
		RetryDelay: cfg.StoreRetryDelay,
	})

	snapshots, err := snapshot.NewWriter(dataDir)
	require.NoError(t, err)

	return NewSyncer(cfg, fplClient, storeClient, snapshots), dataDir
}

func upstreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bootstrap-static/":
			w.Write([]byte(bootstrapBody))
		case "/fixtures/":
			w.Write([]byte(fixturesBody))
		case "/event/3/live/":
			w.Write([]byte(`{"elements": [{"id": 100, "stats": {"minutes": 90, "total_points": 8,
				"goals_scored": 1, "assists": 0, "bonus": 2, "bps": 40}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRun_FullPipeline(t *testing.T) {
	upstream := upstreamServer(t)
	captured := newCapturingStore()
	storeServer := httptest.NewServer(captured.handler())
	defer storeServer.Close()

	syncer, dataDir := testSyncer(t, upstream.URL, storeServer.URL, "key")

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Failed())
	require.Len(t, result.Tables, 3)

	// One write per table
	require.Len(t, captured.payloads("fpl_players"), 1)
	require.Len(t, captured.payloads("fpl_teams"), 1)
	require.Len(t, captured.payloads("fpl_fixtures"), 1)

	players := captured.payloads("fpl_players")[0]
	assert.Contains(t, players, `"now_cost":90`, "Stringly-typed cost coerces to integer")
	assert.NotContains(t, players, "news", "Unlisted upstream columns never reach the store")

	fixtures := captured.payloads("fpl_fixtures")[0]
	assert.Contains(t, fixtures, `"team_a_score":null`, "Absent columns materialize as null")
	assert.Contains(t, fixtures, `"started":null`)
	assert.Contains(t, fixtures, `"finished":false`)
	assert.NotContains(t, fixtures, "stats", "Fixture stats are stripped before normalization")

	teams := captured.payloads("fpl_teams")[0]
	assert.Contains(t, teams, `"name":"Arsenal"`)

	// Raw snapshots for both documents
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Len(t, names, 2)
	assertSnapshotNamed(t, names, "bootstrap_")
	assertSnapshotNamed(t, names, "fixtures_")
}

func TestRun_Idempotent(t *testing.T) {
	upstream := upstreamServer(t)
	captured := newCapturingStore()
	storeServer := httptest.NewServer(captured.handler())
	defer storeServer.Close()

	syncer, _ := testSyncer(t, upstream.URL, storeServer.URL, "key")

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)
	_, err = syncer.Run(context.Background())
	require.NoError(t, err)

	for _, table := range []string{"fpl_players", "fpl_teams", "fpl_fixtures"} {
		payloads := captured.payloads(table)
		require.Len(t, payloads, 2, "table %s", table)
		assert.Equal(t, payloads[0], payloads[1],
			"Byte-identical upstream data must produce identical writes for %s", table)
	}
}

func TestRun_DryRunWithoutCredentials(t *testing.T) {
	upstream := upstreamServer(t)

	syncer, dataDir := testSyncer(t, upstream.URL, "", "")

	result, err := syncer.Run(context.Background())
	require.NoError(t, err, "A run with no store credentials completes without error")
	assert.Empty(t, result.Failed())

	// Still produces the two raw snapshot files
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRun_FetchFailureAbortsBeforeWrites(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	captured := newCapturingStore()
	storeServer := httptest.NewServer(captured.handler())
	defer storeServer.Close()

	syncer, dataDir := testSyncer(t, upstream.URL, storeServer.URL, "key")

	_, err := syncer.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrSourceFetch)

	assert.Empty(t, captured.payloads("fpl_players"), "No write may happen without source data")

	entries, readErr := os.ReadDir(dataDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "No snapshot is written on fetch failure")
}

func TestRun_WriteFailureDoesNotAbortSiblings(t *testing.T) {
	upstream := upstreamServer(t)

	captured := newCapturingStore()
	storeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "fpl_players") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"schema mismatch"}`))
			return
		}
		captured.handler()(w, r)
	}))
	defer storeServer.Close()

	syncer, _ := testSyncer(t, upstream.URL, storeServer.URL, "key")

	result, err := syncer.Run(context.Background())
	require.NoError(t, err, "Write failures do not fail the run")

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "fpl_players", failed[0].Table)
	assert.ErrorIs(t, failed[0].Err, store.ErrStoreWrite)

	// Sibling tables were still written
	assert.Len(t, captured.payloads("fpl_teams"), 1)
	assert.Len(t, captured.payloads("fpl_fixtures"), 1)
}

func TestRunLive_CurrentGameweek(t *testing.T) {
	upstream := upstreamServer(t)
	captured := newCapturingStore()
	storeServer := httptest.NewServer(captured.handler())
	defer storeServer.Close()

	syncer, _ := testSyncer(t, upstream.URL, storeServer.URL, "key")

	result, err := syncer.RunLive(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	payloads := captured.payloads("fpl_events_live")
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0], `"event":3`, "Live rows are stamped with the resolved gameweek")
	assert.Contains(t, payloads[0], `"stats.minutes":90`, "Nested stats flatten to dotted columns")
}

func TestRunLive_NoCurrentGameweek(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events": [{"id": 1, "is_current": false}], "teams": [], "elements": []}`))
	}))
	defer upstream.Close()

	captured := newCapturingStore()
	storeServer := httptest.NewServer(captured.handler())
	defer storeServer.Close()

	syncer, _ := testSyncer(t, upstream.URL, storeServer.URL, "key")

	result, err := syncer.RunLive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Tables, "Outside an active gameweek the live sync is a no-op")
	assert.Empty(t, captured.payloads("fpl_events_live"))
}

func assertSnapshotNamed(t *testing.T, names []string, prefix string) {
	t.Helper()
	for _, name := range names {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			return
		}
	}
	t.Fatalf("no snapshot with prefix %q in %v", prefix, names)
}
