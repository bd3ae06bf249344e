// Package radarr is a Radarr v3 API client used by the download request
// dispatcher for movies.
package radarr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnauthorized = errors.New("radarr rejected the API key")
	ErrAPIError     = errors.New("radarr API error")

	// ErrAlreadyExists reports that Radarr already tracks the movie. Callers
	// treat this as success: the item is, or will be, in the library.
	ErrAlreadyExists = errors.New("movie already exists in radarr")
)

// Client is a Radarr API client for one configured server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// NewClient creates a client for the given server.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger.With().Str("component", "radarr").Logger(),
	}
}

// Test verifies connectivity and the API key.
func (c *Client) Test(ctx context.Context) error {
	var status SystemStatus
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/system/status", nil, &status); err != nil {
		return err
	}
	c.logger.Debug().Str("version", status.Version).Msg("Radarr connection ok")
	return nil
}

// GetMovies returns the server's movie inventory.
func (c *Client) GetMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/movie", nil, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// AddMovie submits an add request. A duplicate is reported as
// ErrAlreadyExists, never as a generic failure.
func (c *Client) AddMovie(ctx context.Context, req AddMovieRequest) (*Movie, error) {
	req.Monitored = true
	req.AddOptions.SearchForMovie = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var movie Movie
	if err := c.doRequest(ctx, http.MethodPost, "/api/v3/movie", bytes.NewReader(body), &movie); err != nil {
		return nil, err
	}

	c.logger.Info().Int("tmdbId", req.TmdbID).Str("title", req.Title).Msg("Added movie to radarr")
	return &movie, nil
}

// QualityProfiles returns the configured quality profiles.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/qualityprofile", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// RootFolders returns the configured root folders.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/rootfolder", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// doRequest performs an authenticated request and decodes the JSON
// response when result is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrUnauthorized
		case http.StatusBadRequest, http.StatusConflict:
			if isDuplicateError(resp.Body) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// isDuplicateError inspects a validation error body for Radarr's
// "already been added" rejection. The substring match stays inside this
// client; everything above it sees the typed ErrAlreadyExists.
func isDuplicateError(body io.Reader) bool {
	var failures []ValidationFailure
	if err := json.NewDecoder(body).Decode(&failures); err != nil {
		return false
	}
	for _, f := range failures {
		msg := strings.ToLower(f.ErrorMessage)
		if strings.Contains(msg, "already been added") || strings.Contains(msg, "already exists") {
			return true
		}
	}
	return false
}
