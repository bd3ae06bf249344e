// Package emby is an Emby server client covering what the sync jobs need:
// library snapshots keyed by provider id and native collection management.
package emby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/presence"
)

var (
	ErrUnauthorized = errors.New("emby rejected the API key")
	ErrNotFound     = errors.New("emby item not found")
	ErrAPIError     = errors.New("emby API error")
)

// Client is an Emby API client for one configured server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// NewClient creates a client for the given server. timeout bounds every
// request; sync jobs additionally bound the whole per-server attempt.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger.With().Str("component", "emby").Logger(),
	}
}

// Test verifies connectivity and the API key via the system info endpoint.
func (c *Client) Test(ctx context.Context) error {
	var info SystemInfo
	if err := c.doRequest(ctx, http.MethodGet, "/System/Info", nil, &info); err != nil {
		return err
	}
	c.logger.Debug().Str("server", info.ServerName).Str("version", info.Version).Msg("Emby connection ok")
	return nil
}

// LibraryIndex snapshots the server's movie and series library keyed by
// provider identifiers.
func (c *Client) LibraryIndex(ctx context.Context) (*presence.Index, error) {
	params := url.Values{}
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Movie,Series")
	params.Set("Fields", "ProviderIds")

	var resp ItemsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/Items?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	items := make([]presence.LibraryItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, presence.LibraryItem{
			ID:  it.ID,
			IDs: it.ExternalIDs(),
		})
	}

	c.logger.Debug().Int("items", len(items)).Msg("Fetched emby library snapshot")
	return presence.NewIndex(items), nil
}

// FindCollection looks up a native collection (BoxSet) by exact name.
func (c *Client) FindCollection(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "BoxSet")
	params.Set("SearchTerm", name)

	var resp ItemsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/Items?"+params.Encode(), nil, &resp); err != nil {
		return "", err
	}
	for _, it := range resp.Items {
		if it.Name == name {
			return it.ID, nil
		}
	}
	return "", ErrNotFound
}

// CreateCollection creates a native collection containing the given library
// item ids and returns the collection's id.
func (c *Client) CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error) {
	params := url.Values{}
	params.Set("Name", name)
	if len(itemIDs) > 0 {
		params.Set("Ids", strings.Join(itemIDs, ","))
	}

	var created CreateCollectionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/Collections?"+params.Encode(), nil, &created); err != nil {
		return "", err
	}

	c.logger.Info().Str("name", name).Str("id", created.ID).Int("items", len(itemIDs)).Msg("Created emby collection")
	return created.ID, nil
}

// AddToCollection adds library items to an existing collection. Emby
// ignores ids already present, so re-adding is harmless.
func (c *Client) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	params := url.Values{}
	params.Set("Ids", strings.Join(itemIDs, ","))
	path := fmt.Sprintf("/Collections/%s/Items?%s", url.PathEscape(collectionID), params.Encode())
	return c.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// RemoveFromCollection removes library items from a collection.
func (c *Client) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	params := url.Values{}
	params.Set("Ids", strings.Join(itemIDs, ","))
	path := fmt.Sprintf("/Collections/%s/Items?%s", url.PathEscape(collectionID), params.Encode())
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

// CollectionItems returns the library items currently inside a collection.
func (c *Client) CollectionItems(ctx context.Context, collectionID string) ([]presence.LibraryItem, error) {
	params := url.Values{}
	params.Set("ParentId", collectionID)
	params.Set("Fields", "ProviderIds")

	var resp ItemsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/Items?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	items := make([]presence.LibraryItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, presence.LibraryItem{ID: it.ID, IDs: it.ExternalIDs()})
	}
	return items, nil
}

// DeleteCollection removes the collection object itself (not the media).
func (c *Client) DeleteCollection(ctx context.Context, collectionID string) error {
	path := fmt.Sprintf("/Items/%s", url.PathEscape(collectionID))
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

// doRequest performs an authenticated request and decodes the JSON
// response when result is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Emby-Token", c.apiKey)

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
		case http.StatusNotFound:
			return ErrNotFound
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

// ExternalIDs extracts the provider identifiers from an item's ProviderIds
// map, tolerating the key-casing variants Emby emits.
func (it *Item) ExternalIDs() media.ExternalIDs {
	ids := media.ExternalIDs{}
	for key, value := range it.ProviderIDs {
		if value == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "imdb":
			ids.IMDB = value
		case "tmdb":
			if n, err := strconv.Atoi(value); err == nil {
				ids.TMDB = n
			}
		case "tvdb":
			if n, err := strconv.Atoi(value); err == nil {
				ids.TVDB = n
			}
		}
	}
	return ids
}
