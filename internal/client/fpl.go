package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"fpl_sync/internal/metrics"
)

// ErrSourceFetch marks a document-level upstream failure: transport
// error or non-2xx status after the retry budget is spent. A fetch
// failure aborts the current pipeline run before any store write.
var ErrSourceFetch = errors.New("source fetch failed")

// Bootstrap is the decoded bootstrap-static document. Entity records stay
// as raw maps because the upstream schema is uncontrolled; the pipeline's
// allow-list projection decides what survives.
type Bootstrap struct {
	Events   []map[string]any `json:"events"`
	Teams    []map[string]any `json:"teams"`
	Elements []map[string]any `json:"elements"`
}

// EventLive is the decoded live document for one gameweek.
type EventLive struct {
	Elements []map[string]any `json:"elements"`
}

// Client is the FPL API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new FPL API client
func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request to the FPL API with bounded retry
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "FPL-Sync/1.0")

		log.Debug().
			Str("url", url).
			Int("attempt", attempt+1).
			Msg("Making API request")

		callStart := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordAPICall(path, "error", time.Since(callStart).Seconds())
			lastErr = fmt.Errorf("%w: %v", ErrSourceFetch, err)
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		metrics.RecordAPICall(path, strconv.Itoa(resp.StatusCode), time.Since(callStart).Seconds())

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: reading response body: %v", ErrSourceFetch, err)
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("API request successful")
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("%w: retryable status %d: %s", ErrSourceFetch, resp.StatusCode, truncate(body, 1000))
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", url).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			return nil, lastErr

		default:
			// Other statuses fail fast
			return nil, fmt.Errorf("%w: status %d: %s", ErrSourceFetch, resp.StatusCode, truncate(body, 1000))
		}
	}

	return nil, lastErr
}

// FetchBootstrap fetches the bulk bootstrap-static snapshot. It returns
// both the exact response bytes (for the raw audit copy) and the decoded
// document.
func (c *Client) FetchBootstrap(ctx context.Context) ([]byte, *Bootstrap, error) {
	body, err := c.get(ctx, "bootstrap-static/")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch bootstrap: %w", err)
	}

	var doc Bootstrap
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding bootstrap: %v", ErrSourceFetch, err)
	}

	return body, &doc, nil
}

// FetchFixtures fetches the full fixtures list.
func (c *Client) FetchFixtures(ctx context.Context) ([]byte, []map[string]any, error) {
	body, err := c.get(ctx, "fixtures/")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch fixtures: %w", err)
	}

	var fixtures []map[string]any
	if err := json.Unmarshal(body, &fixtures); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding fixtures: %v", ErrSourceFetch, err)
	}

	return body, fixtures, nil
}

// FetchEventLive fetches live per-player stats for one gameweek.
func (c *Client) FetchEventLive(ctx context.Context, event int) ([]byte, *EventLive, error) {
	body, err := c.get(ctx, fmt.Sprintf("event/%d/live/", event))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch event %d live: %w", event, err)
	}

	var doc EventLive
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding event live: %v", ErrSourceFetch, err)
	}

	return body, &doc, nil
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		return string(body[:n])
	}
	return string(body)
}
