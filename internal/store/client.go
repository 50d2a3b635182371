package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"fpl_sync/internal/pipeline"
)

var (
	// ErrStoreWrite marks a non-2xx response from the store's bulk-write
	// endpoint. Reported per table; sibling tables are written
	// independently.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreRead marks a non-2xx response from the store's read endpoint.
	ErrStoreRead = errors.New("store read failed")
)

// Config holds store connection settings
type Config struct {
	URL        string
	Key        string
	Schema     string
	MaxRetries int
	RetryDelay time.Duration
}

// Client talks to the remote tabular store over its PostgREST interface.
// Writes are bulk upserts keyed on the id column; repeated runs with the
// same data are idempotent (last-write-wins per row).
type Client struct {
	cfg  Config
	rest *resty.Client
}

// NewClient creates a store client. With empty credentials the client
// stays usable but every write is a logged no-op (dry-run mode).
func NewClient(cfg Config) *Client {
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	rest := resty.New().
		SetBaseURL(cfg.URL).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(retryDelay).
		SetRetryMaxWaitTime(8 * retryDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Client{cfg: cfg, rest: rest}
}

// Enabled reports whether store credentials are configured.
func (c *Client) Enabled() bool {
	return c.cfg.URL != "" && c.cfg.Key != ""
}

// Upsert sends one sanitized row set as a bulk merge-on-conflict write.
// Every row must carry the full allow-listed column set; a conflicting id
// has all of its columns overwritten. Without credentials the call is a
// logged skip, not an error.
func (c *Client) Upsert(ctx context.Context, table string, rows []pipeline.Row) error {
	if !c.Enabled() {
		log.Warn().Str("table", table).Msg("No store credentials; skipping upsert")
		return nil
	}
	if len(rows) == 0 {
		log.Info().Str("table", table).Msg("No rows to upsert")
		return nil
	}

	payload, err := pipeline.EncodeRows(rows)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	req := c.rest.R().
		SetContext(ctx).
		SetHeader("apikey", c.cfg.Key).
		SetHeader("Authorization", "Bearer "+c.cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetQueryParam("on_conflict", "id").
		SetBody(payload)

	if c.cfg.Schema != "" && c.cfg.Schema != "public" {
		req.SetHeader("Content-Profile", c.cfg.Schema)
	}

	resp, err := req.Post("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreWrite, table, err)
	}

	if resp.StatusCode() >= 300 {
		log.Error().
			Str("table", table).
			Int("status", resp.StatusCode()).
			Str("body", truncate(resp.Body(), 1000)).
			Msg("Store upsert failed")
		return fmt.Errorf("%w: %s: status %d: %s", ErrStoreWrite, table, resp.StatusCode(), truncate(resp.Body(), 1000))
	}

	log.Info().
		Str("table", table).
		Int("rows", len(rows)).
		Int("status", resp.StatusCode()).
		Msg("Store upsert OK")

	return nil
}

// SelectOptions shape a read query: column projection, row limit,
// ordering and arbitrary PostgREST filters (e.g. "event" -> "eq.3").
type SelectOptions struct {
	Columns    string
	Limit      int
	Order      string
	Descending bool
	Filters    map[string]string
}

// Select issues a filtered, ordered read against one table and returns
// the decoded rows.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions) ([]map[string]any, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no store credentials configured", ErrStoreRead)
	}

	columns := opts.Columns
	if columns == "" {
		columns = "*"
	}

	req := c.rest.R().
		SetContext(ctx).
		SetHeader("apikey", c.cfg.Key).
		SetHeader("Authorization", "Bearer "+c.cfg.Key).
		SetQueryParam("select", columns)

	if c.cfg.Schema != "" && c.cfg.Schema != "public" {
		req.SetHeader("Accept-Profile", c.cfg.Schema)
	}

	if opts.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Order != "" {
		dir := "asc"
		if opts.Descending {
			dir = "desc"
		}
		req.SetQueryParam("order", opts.Order+"."+dir)
	}
	for column, filter := range opts.Filters {
		req.SetQueryParam(column, filter)
	}

	resp, err := req.Get("/rest/v1/" + table)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreRead, table, err)
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrStoreRead, table, resp.StatusCode(), truncate(resp.Body(), 1000))
	}

	var rows []map[string]any
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding response: %v", ErrStoreRead, table, err)
	}

	return rows, nil
}

// SelectIDs returns the set of primary keys currently present in a table.
// Used by the staleness accounting after a run.
func (c *Client) SelectIDs(ctx context.Context, table string) (map[int64]bool, error) {
	rows, err := c.Select(ctx, table, SelectOptions{Columns: "id"})
	if err != nil {
		return nil, err
	}

	ids := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if id, ok := row["id"].(float64); ok {
			ids[int64(id)] = true
		}
	}
	return ids, nil
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		return string(body[:n])
	}
	return string(body)
}
