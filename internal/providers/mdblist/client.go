// Package mdblist is an MDBList API client for reading list items, the
// source feed for MDBLIST collections.
package mdblist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/media"
)

var (
	ErrAPIKeyMissing = errors.New("mdblist API key is not configured")
	ErrListNotFound  = errors.New("mdblist list not found")
	ErrAPIError      = errors.New("mdblist API error")
	ErrRateLimited   = errors.New("mdblist API rate limited")
)

// Config holds MDBList client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds
}

// Client is an MDBList API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new MDBList client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mdblist.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "mdblist").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// ListItems fetches the items of an MDBList list by its numeric id or slug.
func (c *Client) ListItems(ctx context.Context, sourceID string) ([]media.RawEntry, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/lists/%s/items", c.config.BaseURL, url.PathEscape(sourceID))
	params := url.Values{}
	params.Set("apikey", c.config.APIKey)

	var items []Item
	if err := c.doRequest(ctx, endpoint, params, &items); err != nil {
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
		Str("list", sourceID).
		Int("items", len(items)).
		Int("entries", len(entries)).
		Msg("Fetched mdblist list")

	return entries, nil
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
