package sonarr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sonarr-key", 5*time.Second, zerolog.Nop())
}

func TestGetSeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/series", r.URL.Path)
		assert.Equal(t, "sonarr-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"title":"The Wire","year":2002,"tvdbId":79126}]`))
	})

	series, err := client.GetSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 79126, series[0].TvdbID)
}

func TestAddSeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req AddSeriesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 79126, req.TvdbID)
		assert.True(t, req.Monitored)
		assert.True(t, req.AddOptions.SearchForMissingEpisodes)
		assert.Equal(t, 6, req.QualityProfileID)
		assert.Equal(t, "/tv", req.RootFolderPath)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"title":"The Wire","year":2002,"tvdbId":79126}`))
	})

	series, err := client.AddSeries(context.Background(), AddSeriesRequest{
		Title:            "The Wire",
		TvdbID:           79126,
		QualityProfileID: 6,
		RootFolderPath:   "/tv",
		SeasonFolder:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, series.ID)
}

func TestAddSeriesDuplicateIsTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"propertyName":"TvdbId","errorMessage":"This series has already been added"}]`))
	})

	_, err := client.AddSeries(context.Background(), AddSeriesRequest{Title: "The Wire", TvdbID: 79126})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAddSeriesOtherValidationErrorIsNotDuplicate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"propertyName":"RootFolderPath","errorMessage":"Path does not exist"}]`))
	})

	_, err := client.AddSeries(context.Background(), AddSeriesRequest{Title: "The Wire", TvdbID: 79126})
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrAPIError)
}

func TestUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := client.Test(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
