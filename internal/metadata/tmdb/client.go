// Package tmdb is a minimal TMDB client used by the identity resolver to
// triangulate external identifiers (IMDb/TMDb/TVDb) for list entries.
package tmdb

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
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Config holds TMDB client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds
}

// Client is a TMDB API client implementing media.IDLookup.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity by requesting the API configuration.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/configuration", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return c.doRequest(ctx, endpoint, params, &result)
}

// LookupMovieIDs fills identifier gaps for a movie, pivoting on whichever
// identifier is already known.
func (c *Client) LookupMovieIDs(ctx context.Context, ids media.ExternalIDs) (media.ExternalIDs, error) {
	if !c.IsConfigured() {
		return media.ExternalIDs{}, ErrAPIKeyMissing
	}

	found := media.ExternalIDs{}

	if ids.TMDB == 0 && ids.IMDB != "" {
		res, err := c.find(ctx, ids.IMDB, "imdb_id")
		if err != nil {
			return found, err
		}
		if len(res.MovieResults) > 0 {
			found.TMDB = res.MovieResults[0].ID
		}
	}

	tmdbID := ids.TMDB
	if tmdbID == 0 {
		tmdbID = found.TMDB
	}
	if tmdbID != 0 && ids.IMDB == "" {
		ext, err := c.movieExternalIDs(ctx, tmdbID)
		if err != nil {
			return found, err
		}
		found.IMDB = ext.ImdbID
	}

	c.logger.Debug().
		Str("imdb", ids.IMDB).
		Int("tmdb", ids.TMDB).
		Int("foundTmdb", found.TMDB).
		Msg("Movie identifier lookup completed")

	return found, nil
}

// LookupSeriesIDs fills identifier gaps for a TV series.
func (c *Client) LookupSeriesIDs(ctx context.Context, ids media.ExternalIDs) (media.ExternalIDs, error) {
	if !c.IsConfigured() {
		return media.ExternalIDs{}, ErrAPIKeyMissing
	}

	found := media.ExternalIDs{}

	if ids.TMDB == 0 {
		switch {
		case ids.IMDB != "":
			res, err := c.find(ctx, ids.IMDB, "imdb_id")
			if err != nil {
				return found, err
			}
			if len(res.TVResults) > 0 {
				found.TMDB = res.TVResults[0].ID
			}
		case ids.TVDB != 0:
			res, err := c.find(ctx, fmt.Sprintf("%d", ids.TVDB), "tvdb_id")
			if err != nil {
				return found, err
			}
			if len(res.TVResults) > 0 {
				found.TMDB = res.TVResults[0].ID
			}
		}
	}

	tmdbID := ids.TMDB
	if tmdbID == 0 {
		tmdbID = found.TMDB
	}
	if tmdbID != 0 && (ids.TVDB == 0 || ids.IMDB == "") {
		ext, err := c.tvExternalIDs(ctx, tmdbID)
		if err != nil {
			return found, err
		}
		found.IMDB = ext.ImdbID
		found.TVDB = ext.TvdbID
	}

	c.logger.Debug().
		Str("imdb", ids.IMDB).
		Int("tmdb", ids.TMDB).
		Int("tvdb", ids.TVDB).
		Int("foundTmdb", found.TMDB).
		Int("foundTvdb", found.TVDB).
		Msg("Series identifier lookup completed")

	return found, nil
}

// find queries the TMDB /find endpoint for an external identifier.
func (c *Client) find(ctx context.Context, externalID, source string) (*FindResponse, error) {
	endpoint := fmt.Sprintf("%s/find/%s", c.config.BaseURL, url.PathEscape(externalID))
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("external_source", source)

	var response FindResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) movieExternalIDs(ctx context.Context, tmdbID int) (*ExternalIDsResponse, error) {
	endpoint := fmt.Sprintf("%s/movie/%d/external_ids", c.config.BaseURL, tmdbID)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var response ExternalIDsResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) tvExternalIDs(ctx context.Context, tmdbID int) (*ExternalIDsResponse, error) {
	endpoint := fmt.Sprintf("%s/tv/%d/external_ids", c.config.BaseURL, tmdbID)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var response ExternalIDsResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

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
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
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
