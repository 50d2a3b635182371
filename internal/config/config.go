package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Upstream FPL API
	FPLBaseURL string        `envconfig:"FPL_BASE_URL" default:"https://fantasy.premierleague.com/api"`
	FPLTimeout time.Duration `envconfig:"FPL_TIMEOUT" default:"45s"`

	// Raw snapshot directory
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	// Supabase REST store
	SupabaseURL     string        `envconfig:"SUPABASE_URL" default:""`
	SupabaseKey     string        `envconfig:"SUPABASE_KEY" default:""`
	SupabaseSchema  string        `envconfig:"SUPABASE_SCHEMA" default:"public"`
	TablePlayers    string        `envconfig:"SUPABASE_TABLE_PLAYERS" default:"fpl_players"`
	TableFixtures   string        `envconfig:"SUPABASE_TABLE_FIXTURES" default:"fpl_fixtures"`
	TableEventsLive string        `envconfig:"SUPABASE_TABLE_EVENTS_LIVE" default:"fpl_events_live"`
	TableTeams      string        `envconfig:"SUPABASE_TABLE_TEAMS" default:"fpl_teams"`
	StoreMaxRetries int           `envconfig:"STORE_MAX_RETRIES" default:"3"`
	StoreRetryDelay time.Duration `envconfig:"STORE_RETRY_DELAY" default:"1s"`

	// Redis (dashboard read cache)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	SyncCron           string        `envconfig:"SYNC_CRON" default:"*/30 * * * *"`
	LivePollInterval   time.Duration `envconfig:"LIVE_POLL_INTERVAL" default:"120s"`
	InitialSyncEnabled bool          `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`

	// Upstream retry budget
	MaxRetries int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay time.Duration `envconfig:"RETRY_DELAY" default:"1s"`

	// Caching TTL (in seconds)
	CacheTTLSeconds int `envconfig:"CACHE_TTL_SECONDS" default:"300"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
	DashboardPort int  `envconfig:"DASHBOARD_PORT" default:"8080"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FPLBaseURL == "" {
		return fmt.Errorf("FPL_BASE_URL is required")
	}

	// Store credentials are optional: without them every store write is a
	// logged no-op and the pipeline runs in dry-run mode.
	if c.SupabaseURL != "" && c.SupabaseKey == "" {
		return fmt.Errorf("SUPABASE_KEY is required when SUPABASE_URL is set")
	}

	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative")
	}

	return nil
}

// StoreConfigured reports whether store credentials are present
func (c *Config) StoreConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// CacheTTL returns the dashboard read-cache TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
