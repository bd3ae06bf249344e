// Package dispatch sends download requests for collection items to Radarr
// (movies) and Sonarr (series). Items the manager already tracks are
// reported as such, a distinct outcome from both success and failure.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/presence"
	"github.com/collectarr/collectarr/internal/providers/radarr"
	"github.com/collectarr/collectarr/internal/providers/sonarr"
	"github.com/collectarr/collectarr/internal/servers"
)

var (
	ErrMissingIdentifier = errors.New("item lacks the identifier the download manager requires")
	ErrWrongMediaType    = errors.New("item media type does not match the download manager")
	ErrWrongServerType   = errors.New("server is not the expected type")
)

// Status is the outcome class of one dispatch attempt.
type Status string

const (
	StatusAdded         Status = "ADDED"
	StatusAlreadyExists Status = "ALREADY_EXISTS"
	StatusError         Status = "ERROR"
)

// Outcome is the result of dispatching one item.
type Outcome struct {
	ItemID  string `json:"itemId"`
	Title   string `json:"title"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// RadarrClient is the slice of the Radarr API the dispatcher needs.
type RadarrClient interface {
	GetMovies(ctx context.Context) ([]radarr.Movie, error)
	AddMovie(ctx context.Context, req radarr.AddMovieRequest) (*radarr.Movie, error)
}

// SonarrClient is the slice of the Sonarr API the dispatcher needs.
type SonarrClient interface {
	GetSeries(ctx context.Context) ([]sonarr.Series, error)
	AddSeries(ctx context.Context, req sonarr.AddSeriesRequest) (*sonarr.Series, error)
}

// RadarrFactory builds a Radarr client for one configured server.
type RadarrFactory func(server *servers.Server) RadarrClient

// SonarrFactory builds a Sonarr client for one configured server.
type SonarrFactory func(server *servers.Server) SonarrClient

// Service dispatches download requests.
type Service struct {
	collections *collection.Store
	servers     *servers.Store
	newRadarr   RadarrFactory
	newSonarr   SonarrFactory
	logger      zerolog.Logger
}

// NewService creates a dispatch service.
func NewService(collections *collection.Store, srvStore *servers.Store, newRadarr RadarrFactory, newSonarr SonarrFactory, logger zerolog.Logger) *Service {
	return &Service{
		collections: collections,
		servers:     srvStore,
		newRadarr:   newRadarr,
		newSonarr:   newSonarr,
		logger:      logger.With().Str("component", "dispatch").Logger(),
	}
}

// server loads a server and checks its type before any network traffic.
func (s *Service) server(ctx context.Context, serverID string, want servers.Type) (*servers.Server, error) {
	srv, err := s.servers.Get(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if srv.Type != want {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongServerType, srv.Name, srv.Type)
	}
	return srv, nil
}

// DispatchMovie sends one movie item to a Radarr server.
func (s *Service) DispatchMovie(ctx context.Context, serverID, itemID string) (*Outcome, error) {
	item, err := s.collections.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	srv, err := s.server(ctx, serverID, servers.TypeRadarr)
	if err != nil {
		return nil, err
	}
	if item.MediaType != media.TypeMovie {
		return nil, fmt.Errorf("%w: %s is a %s", ErrWrongMediaType, item.Title, item.MediaType)
	}
	// Radarr identifies movies by TMDB id only; validated before any call.
	if item.TMDB == 0 {
		return nil, fmt.Errorf("%w: %s has no tmdb id", ErrMissingIdentifier, item.Title)
	}

	client := s.newRadarr(srv)
	inventory, err := s.radarrInventory(ctx, client)
	if err != nil {
		return nil, err
	}
	return s.dispatchMovie(ctx, client, srv, item, inventory), nil
}

func (s *Service) dispatchMovie(ctx context.Context, client RadarrClient, srv *servers.Server, item *collection.Item, inventory presence.InventoryIndex) *Outcome {
	out := &Outcome{ItemID: item.ID, Title: item.Title}

	if inventory.Contains(item.TMDB) {
		out.Status = StatusAlreadyExists
		return out
	}

	_, err := client.AddMovie(ctx, radarr.AddMovieRequest{
		Title:            item.Title,
		Year:             item.Year,
		TmdbID:           item.TMDB,
		QualityProfileID: srv.QualityProfileID,
		RootFolderPath:   srv.RootFolderPath,
	})
	switch {
	case errors.Is(err, radarr.ErrAlreadyExists):
		// Raced past the inventory snapshot; same outcome as a pre-check hit.
		out.Status = StatusAlreadyExists
	case err != nil:
		out.Status = StatusError
		out.Message = err.Error()
		s.logger.Error().Err(err).Str("title", item.Title).Str("server", srv.Name).Msg("Radarr dispatch failed")
	default:
		out.Status = StatusAdded
		s.logger.Info().Str("title", item.Title).Str("server", srv.Name).Msg("Dispatched movie to radarr")
	}
	return out
}

// DispatchSeries sends one series item to a Sonarr server.
func (s *Service) DispatchSeries(ctx context.Context, serverID, itemID string) (*Outcome, error) {
	item, err := s.collections.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	srv, err := s.server(ctx, serverID, servers.TypeSonarr)
	if err != nil {
		return nil, err
	}
	if item.MediaType != media.TypeShow {
		return nil, fmt.Errorf("%w: %s is a %s", ErrWrongMediaType, item.Title, item.MediaType)
	}
	// Sonarr identifies series by TVDB id only.
	if item.TVDB == 0 {
		return nil, fmt.Errorf("%w: %s has no tvdb id", ErrMissingIdentifier, item.Title)
	}

	client := s.newSonarr(srv)
	inventory, err := s.sonarrInventory(ctx, client)
	if err != nil {
		return nil, err
	}
	return s.dispatchSeries(ctx, client, srv, item, inventory), nil
}

func (s *Service) dispatchSeries(ctx context.Context, client SonarrClient, srv *servers.Server, item *collection.Item, inventory presence.InventoryIndex) *Outcome {
	out := &Outcome{ItemID: item.ID, Title: item.Title}

	if inventory.Contains(item.TVDB) {
		out.Status = StatusAlreadyExists
		return out
	}

	_, err := client.AddSeries(ctx, sonarr.AddSeriesRequest{
		Title:            item.Title,
		TvdbID:           item.TVDB,
		QualityProfileID: srv.QualityProfileID,
		RootFolderPath:   srv.RootFolderPath,
		SeasonFolder:     true,
	})
	switch {
	case errors.Is(err, sonarr.ErrAlreadyExists):
		out.Status = StatusAlreadyExists
	case err != nil:
		out.Status = StatusError
		out.Message = err.Error()
		s.logger.Error().Err(err).Str("title", item.Title).Str("server", srv.Name).Msg("Sonarr dispatch failed")
	default:
		out.Status = StatusAdded
		s.logger.Info().Str("title", item.Title).Str("server", srv.Name).Msg("Dispatched series to sonarr")
	}
	return out
}

// DispatchMissingMovies sends every movie in the collection that is absent
// from the Radarr inventory. Items without a TMDB id are skipped with an
// ERROR outcome rather than aborting the batch.
func (s *Service) DispatchMissingMovies(ctx context.Context, serverID, collectionID string) ([]*Outcome, error) {
	items, err := s.collections.ListItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	srv, err := s.server(ctx, serverID, servers.TypeRadarr)
	if err != nil {
		return nil, err
	}

	client := s.newRadarr(srv)
	inventory, err := s.radarrInventory(ctx, client)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*Outcome, 0)
	for _, item := range items {
		if item.MediaType != media.TypeMovie {
			continue
		}
		if item.TMDB == 0 {
			outcomes = append(outcomes, &Outcome{
				ItemID: item.ID, Title: item.Title,
				Status: StatusError, Message: "no tmdb id",
			})
			continue
		}
		outcomes = append(outcomes, s.dispatchMovie(ctx, client, srv, item, inventory))
	}
	return outcomes, nil
}

// DispatchMissingSeries is the Sonarr counterpart of DispatchMissingMovies.
func (s *Service) DispatchMissingSeries(ctx context.Context, serverID, collectionID string) ([]*Outcome, error) {
	items, err := s.collections.ListItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	srv, err := s.server(ctx, serverID, servers.TypeSonarr)
	if err != nil {
		return nil, err
	}

	client := s.newSonarr(srv)
	inventory, err := s.sonarrInventory(ctx, client)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*Outcome, 0)
	for _, item := range items {
		if item.MediaType != media.TypeShow {
			continue
		}
		if item.TVDB == 0 {
			outcomes = append(outcomes, &Outcome{
				ItemID: item.ID, Title: item.Title,
				Status: StatusError, Message: "no tvdb id",
			})
			continue
		}
		outcomes = append(outcomes, s.dispatchSeries(ctx, client, srv, item, inventory))
	}
	return outcomes, nil
}

// RadarrInventory returns the tmdb ids a Radarr server already tracks.
func (s *Service) RadarrInventory(ctx context.Context, serverID string) ([]int, error) {
	srv, err := s.server(ctx, serverID, servers.TypeRadarr)
	if err != nil {
		return nil, err
	}
	movies, err := s.newRadarr(srv).GetMovies(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(movies))
	for _, m := range movies {
		if m.TmdbID != 0 {
			ids = append(ids, m.TmdbID)
		}
	}
	return ids, nil
}

// SonarrInventory returns the tvdb ids a Sonarr server already tracks.
func (s *Service) SonarrInventory(ctx context.Context, serverID string) ([]int, error) {
	srv, err := s.server(ctx, serverID, servers.TypeSonarr)
	if err != nil {
		return nil, err
	}
	series, err := s.newSonarr(srv).GetSeries(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(series))
	for _, sr := range series {
		if sr.TvdbID != 0 {
			ids = append(ids, sr.TvdbID)
		}
	}
	return ids, nil
}

func (s *Service) radarrInventory(ctx context.Context, client RadarrClient) (presence.InventoryIndex, error) {
	movies, err := client.GetMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch radarr inventory: %w", err)
	}
	ids := make([]int, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.TmdbID)
	}
	return presence.NewInventoryIndex(ids), nil
}

func (s *Service) sonarrInventory(ctx context.Context, client SonarrClient) (presence.InventoryIndex, error) {
	series, err := client.GetSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sonarr inventory: %w", err)
	}
	ids := make([]int, 0, len(series))
	for _, sr := range series {
		ids = append(ids, sr.TvdbID)
	}
	return presence.NewInventoryIndex(ids), nil
}
