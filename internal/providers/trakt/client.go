// Package trakt is a Trakt API client for reading public lists and
// watchlists, the source feeds for TRAKT_LIST and TRAKT_WATCHLIST
// collections.
package trakt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/media"
)

var (
	ErrClientIDMissing = errors.New("trakt client ID is not configured")
	ErrListNotFound    = errors.New("trakt list not found")
	ErrAPIError        = errors.New("trakt API error")
	ErrRateLimited     = errors.New("trakt API rate limited")
	ErrInvalidSourceID = errors.New("invalid trakt source id")
)

// Config holds Trakt client configuration.
type Config struct {
	BaseURL  string
	ClientID string
	Timeout  int // seconds
}

// Client is a Trakt API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new Trakt client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.trakt.tv"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "trakt").Logger(),
	}
}

// IsConfigured returns true if the client ID is set.
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != ""
}

// ListItems fetches the items of a user list. The source id has the form
// "user/list-slug".
func (c *Client) ListItems(ctx context.Context, sourceID string) ([]media.RawEntry, error) {
	user, slug, ok := strings.Cut(sourceID, "/")
	if !ok || user == "" || slug == "" {
		return nil, fmt.Errorf("%w: %q (want user/list-slug)", ErrInvalidSourceID, sourceID)
	}

	endpoint := fmt.Sprintf("%s/users/%s/lists/%s/items", c.config.BaseURL, user, slug)
	return c.fetchEntries(ctx, endpoint)
}

// WatchlistItems fetches a user's public watchlist. The source id is the
// Trakt username.
func (c *Client) WatchlistItems(ctx context.Context, sourceID string) ([]media.RawEntry, error) {
	if sourceID == "" || strings.Contains(sourceID, "/") {
		return nil, fmt.Errorf("%w: %q (want username)", ErrInvalidSourceID, sourceID)
	}

	endpoint := fmt.Sprintf("%s/users/%s/watchlist", c.config.BaseURL, sourceID)
	return c.fetchEntries(ctx, endpoint)
}

func (c *Client) fetchEntries(ctx context.Context, endpoint string) ([]media.RawEntry, error) {
	if !c.IsConfigured() {
		return nil, ErrClientIDMissing
	}

	var items []ListItem
	if err := c.doRequest(ctx, endpoint, &items); err != nil {
		return nil, err
	}

	entries := make([]media.RawEntry, 0, len(items))
	for _, item := range items {
		entry, ok := item.toRawEntry()
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	c.logger.Debug().
		Str("url", endpoint).
		Int("items", len(items)).
		Int("entries", len(entries)).
		Msg("Fetched trakt list")

	return entries, nil
}

// doRequest performs an authenticated GET request against the Trakt API.
func (c *Client) doRequest(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", c.config.ClientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrListNotFound
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
