package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/providers/radarr"
	"github.com/collectarr/collectarr/internal/providers/sonarr"
	"github.com/collectarr/collectarr/internal/servers"
	"github.com/collectarr/collectarr/internal/testutil"
)

type fakeRadarr struct {
	movies   []radarr.Movie
	addErr   error
	addCalls []radarr.AddMovieRequest
}

func (f *fakeRadarr) GetMovies(ctx context.Context) ([]radarr.Movie, error) {
	return f.movies, nil
}

func (f *fakeRadarr) AddMovie(ctx context.Context, req radarr.AddMovieRequest) (*radarr.Movie, error) {
	f.addCalls = append(f.addCalls, req)
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &radarr.Movie{ID: 1, Title: req.Title, TmdbID: req.TmdbID}, nil
}

type fakeSonarr struct {
	series   []sonarr.Series
	addErr   error
	addCalls []sonarr.AddSeriesRequest
}

func (f *fakeSonarr) GetSeries(ctx context.Context) ([]sonarr.Series, error) {
	return f.series, nil
}

func (f *fakeSonarr) AddSeries(ctx context.Context, req sonarr.AddSeriesRequest) (*sonarr.Series, error) {
	f.addCalls = append(f.addCalls, req)
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &sonarr.Series{ID: 1, Title: req.Title, TvdbID: req.TvdbID}, nil
}

type env struct {
	collections *collection.Store
	servers     *servers.Store
	radarr      *fakeRadarr
	sonarr      *fakeSonarr
	service     *Service
	cleanup     func()
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	e := &env{
		collections: collection.NewStore(tdb.Conn, tdb.Logger),
		servers:     servers.NewStore(tdb.Conn, tdb.Logger),
		radarr:      &fakeRadarr{},
		sonarr:      &fakeSonarr{},
		cleanup:     tdb.Close,
	}
	e.service = NewService(
		e.collections, e.servers,
		func(*servers.Server) RadarrClient { return e.radarr },
		func(*servers.Server) SonarrClient { return e.sonarr },
		tdb.Logger,
	)
	return e
}

func (e *env) addServer(t *testing.T, typ servers.Type) *servers.Server {
	t.Helper()
	srv, err := e.servers.Create(context.Background(), servers.Server{
		Type: typ, Name: string(typ) + "-main", URL: "http://arr", APIKey: "key",
		QualityProfileID: 4, RootFolderPath: "/media",
	})
	if err != nil {
		t.Fatalf("Create server failed: %v", err)
	}
	return srv
}

func (e *env) addItem(t *testing.T, m media.Item) *collection.Item {
	t.Helper()
	ctx := context.Background()
	col, err := e.collections.Create(ctx, &collection.Collection{
		Name: "Queue", SourceType: collection.SourceManual,
	})
	if err != nil {
		t.Fatalf("Create collection failed: %v", err)
	}
	item, err := e.collections.UpsertItem(ctx, collection.FromMedia(col.ID, m))
	if err != nil {
		t.Fatalf("UpsertItem failed: %v", err)
	}
	return item
}

func TestDispatchMovieAdds(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "Heat", Year: 1995, MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 949},
	})

	outcome, err := e.service.DispatchMovie(context.Background(), srv.ID, item.ID)
	if err != nil {
		t.Fatalf("DispatchMovie failed: %v", err)
	}
	if outcome.Status != StatusAdded {
		t.Errorf("expected ADDED, got %s", outcome.Status)
	}
	if len(e.radarr.addCalls) != 1 {
		t.Fatalf("expected 1 add call, got %d", len(e.radarr.addCalls))
	}
	req := e.radarr.addCalls[0]
	if req.TmdbID != 949 || req.QualityProfileID != 4 || req.RootFolderPath != "/media" {
		t.Errorf("unexpected add request: %+v", req)
	}
}

func TestDispatchMovieInventoryPreCheck(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "The Matrix", MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 603},
	})
	e.radarr.movies = []radarr.Movie{{ID: 7, Title: "The Matrix", TmdbID: 603}}

	outcome, err := e.service.DispatchMovie(context.Background(), srv.ID, item.ID)
	if err != nil {
		t.Fatalf("DispatchMovie failed: %v", err)
	}
	if outcome.Status != StatusAlreadyExists {
		t.Errorf("expected ALREADY_EXISTS, got %s", outcome.Status)
	}
	if len(e.radarr.addCalls) != 0 {
		t.Errorf("expected no add call for item already in inventory")
	}
}

func TestDispatchMovieDuplicateRejectionIsNotAnError(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "The Matrix", MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 603},
	})
	e.radarr.addErr = radarr.ErrAlreadyExists

	outcome, err := e.service.DispatchMovie(context.Background(), srv.ID, item.ID)
	if err != nil {
		t.Fatalf("DispatchMovie failed: %v", err)
	}
	if outcome.Status != StatusAlreadyExists {
		t.Errorf("expected ALREADY_EXISTS for duplicate rejection, got %s", outcome.Status)
	}
}

func TestDispatchMovieAPIFailure(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "Heat", MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 949},
	})
	e.radarr.addErr = errors.New("root folder missing")

	outcome, err := e.service.DispatchMovie(context.Background(), srv.ID, item.ID)
	if err != nil {
		t.Fatalf("DispatchMovie failed: %v", err)
	}
	if outcome.Status != StatusError || outcome.Message == "" {
		t.Errorf("expected ERROR outcome with message, got %+v", outcome)
	}
}

func TestDispatchMovieRequiresTmdbID(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "Heat", MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{IMDB: "tt0113277"},
	})

	_, err := e.service.DispatchMovie(context.Background(), srv.ID, item.ID)
	if !errors.Is(err, ErrMissingIdentifier) {
		t.Errorf("expected ErrMissingIdentifier, got %v", err)
	}
	if len(e.radarr.addCalls) != 0 {
		t.Error("expected validation before any network call")
	}
}

func TestDispatchMovieRejectsShows(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "The Wire", MediaType: media.TypeShow,
		IDs: media.ExternalIDs{TVDB: 79126},
	})

	_, err := e.service.DispatchMovie(context.Background(), srv.ID, item.ID)
	if !errors.Is(err, ErrWrongMediaType) {
		t.Errorf("expected ErrWrongMediaType, got %v", err)
	}
}

func TestDispatchSeriesToWrongServerType(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeRadarr)
	item := e.addItem(t, media.Item{
		Title: "The Wire", MediaType: media.TypeShow,
		IDs: media.ExternalIDs{TVDB: 79126},
	})

	_, err := e.service.DispatchSeries(context.Background(), srv.ID, item.ID)
	if !errors.Is(err, ErrWrongServerType) {
		t.Errorf("expected ErrWrongServerType, got %v", err)
	}
}

func TestDispatchSeriesAdds(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	srv := e.addServer(t, servers.TypeSonarr)
	item := e.addItem(t, media.Item{
		Title: "The Wire", MediaType: media.TypeShow,
		IDs: media.ExternalIDs{TVDB: 79126},
	})

	outcome, err := e.service.DispatchSeries(context.Background(), srv.ID, item.ID)
	if err != nil {
		t.Fatalf("DispatchSeries failed: %v", err)
	}
	if outcome.Status != StatusAdded {
		t.Errorf("expected ADDED, got %s", outcome.Status)
	}
	if len(e.sonarr.addCalls) != 1 || e.sonarr.addCalls[0].TvdbID != 79126 {
		t.Errorf("unexpected add calls: %+v", e.sonarr.addCalls)
	}
}

func TestDispatchMissingMovies(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()
	ctx := context.Background()

	srv := e.addServer(t, servers.TypeRadarr)
	col, err := e.collections.Create(ctx, &collection.Collection{
		Name: "Queue", SourceType: collection.SourceManual,
	})
	if err != nil {
		t.Fatalf("Create collection failed: %v", err)
	}
	for _, m := range []media.Item{
		{Title: "In Inventory", MediaType: media.TypeMovie, IDs: media.ExternalIDs{TMDB: 603}},
		{Title: "Missing", MediaType: media.TypeMovie, IDs: media.ExternalIDs{TMDB: 604}},
		{Title: "No ID", MediaType: media.TypeMovie},
		{Title: "A Show", MediaType: media.TypeShow, IDs: media.ExternalIDs{TVDB: 1}},
	} {
		if _, err := e.collections.UpsertItem(ctx, collection.FromMedia(col.ID, m)); err != nil {
			t.Fatalf("UpsertItem failed: %v", err)
		}
	}
	e.radarr.movies = []radarr.Movie{{ID: 7, TmdbID: 603}}

	outcomes, err := e.service.DispatchMissingMovies(ctx, srv.ID, col.ID)
	if err != nil {
		t.Fatalf("DispatchMissingMovies failed: %v", err)
	}

	// Shows are skipped entirely; the other three each get an outcome.
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	byTitle := make(map[string]Status)
	for _, o := range outcomes {
		byTitle[o.Title] = o.Status
	}
	if byTitle["In Inventory"] != StatusAlreadyExists {
		t.Errorf("expected ALREADY_EXISTS, got %s", byTitle["In Inventory"])
	}
	if byTitle["Missing"] != StatusAdded {
		t.Errorf("expected ADDED, got %s", byTitle["Missing"])
	}
	if byTitle["No ID"] != StatusError {
		t.Errorf("expected ERROR for id-less item, got %s", byTitle["No ID"])
	}
	if len(e.radarr.addCalls) != 1 {
		t.Errorf("expected exactly 1 add call, got %d", len(e.radarr.addCalls))
	}
}
