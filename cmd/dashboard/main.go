// Command dashboard serves read-only JSON views over the synchronized
// store: filtered player and fixture lists plus simple aggregates, behind
// a short-lived Redis cache.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fpl_sync/internal/cache"
	"fpl_sync/internal/config"
	"fpl_sync/internal/dashboard"
	"fpl_sync/internal/store"
)

func main() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	cfg := config.MustLoad()

	if !cfg.StoreConfigured() {
		log.Fatal().Msg("Dashboard requires store credentials (SUPABASE_URL, SUPABASE_KEY)")
	}

	storeClient := store.NewClient(store.Config{
		URL:        cfg.SupabaseURL,
		Key:        cfg.SupabaseKey,
		Schema:     cfg.SupabaseSchema,
		MaxRetries: cfg.StoreMaxRetries,
		RetryDelay: cfg.StoreRetryDelay,
	})

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.CacheTTL())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	reader := dashboard.NewReader(cfg, storeClient, redisCache)

	mux := http.NewServeMux()

	mux.HandleFunc("/players", func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		players, err := reader.TopPlayers(r.Context(), limit)
		respond(w, players, err)
	})

	mux.HandleFunc("/fixtures", func(w http.ResponseWriter, r *http.Request) {
		event := queryInt(r, "event", 0)
		fixtures, err := reader.FixturesByEvent(r.Context(), event)
		respond(w, fixtures, err)
	})

	mux.HandleFunc("/table", func(w http.ResponseWriter, r *http.Request) {
		table, err := reader.TeamTable(r.Context())
		respond(w, table, err)
	})

	mux.HandleFunc("/scores", func(w http.ResponseWriter, r *http.Request) {
		scores, err := reader.ScoreDistribution(r.Context())
		respond(w, scores, err)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.DashboardPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Int("port", cfg.DashboardPort).Msg("Starting dashboard server")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Dashboard server failed")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func respond(w http.ResponseWriter, payload any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		log.Error().Err(err).Msg("Dashboard query failed")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
