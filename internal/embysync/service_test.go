package embysync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/presence"
	"github.com/collectarr/collectarr/internal/providers/emby"
	"github.com/collectarr/collectarr/internal/servers"
	"github.com/collectarr/collectarr/internal/synclog"
	"github.com/collectarr/collectarr/internal/testutil"
)

// fakeClient is an in-memory Emby server.
type fakeClient struct {
	library      []presence.LibraryItem
	libraryErr   error
	libraryStall bool // block LibraryIndex until the context expires

	collections map[string]string                 // name -> id
	members     map[string][]presence.LibraryItem // id -> members
	added       map[string][]string
	removed     map[string][]string
	deleted     []string
}

func newFakeClient(library ...presence.LibraryItem) *fakeClient {
	return &fakeClient{
		library:     library,
		collections: make(map[string]string),
		members:     make(map[string][]presence.LibraryItem),
		added:       make(map[string][]string),
		removed:     make(map[string][]string),
	}
}

func (f *fakeClient) LibraryIndex(ctx context.Context) (*presence.Index, error) {
	if f.libraryStall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.libraryErr != nil {
		return nil, f.libraryErr
	}
	return presence.NewIndex(f.library), nil
}

func (f *fakeClient) FindCollection(ctx context.Context, name string) (string, error) {
	if id, ok := f.collections[name]; ok {
		return id, nil
	}
	return "", emby.ErrNotFound
}

func (f *fakeClient) CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error) {
	id := "boxset-" + name
	f.collections[name] = id
	f.added[id] = append(f.added[id], itemIDs...)
	return id, nil
}

func (f *fakeClient) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	f.added[collectionID] = append(f.added[collectionID], itemIDs...)
	return nil
}

func (f *fakeClient) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	f.removed[collectionID] = append(f.removed[collectionID], itemIDs...)
	return nil
}

func (f *fakeClient) CollectionItems(ctx context.Context, collectionID string) ([]presence.LibraryItem, error) {
	return f.members[collectionID], nil
}

func (f *fakeClient) DeleteCollection(ctx context.Context, collectionID string) error {
	f.deleted = append(f.deleted, collectionID)
	return nil
}

type env struct {
	collections *collection.Store
	servers     *servers.Store
	logs        *synclog.Store
	clients     map[string]*fakeClient // server id -> client
	service     *Service
	cleanup     func()
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	e := &env{
		collections: collection.NewStore(tdb.Conn, tdb.Logger),
		servers:     servers.NewStore(tdb.Conn, tdb.Logger),
		logs:        synclog.NewStore(tdb.Conn, tdb.Logger),
		clients:     make(map[string]*fakeClient),
		cleanup:     tdb.Close,
	}
	factory := func(srv *servers.Server) EmbyClient {
		return e.clients[srv.ID]
	}
	e.service = NewService(e.collections, e.servers, e.logs, factory, nil, tdb.Logger)
	return e
}

func (e *env) addServer(t *testing.T, name string, client *fakeClient) *servers.Server {
	t.Helper()
	srv, err := e.servers.Create(context.Background(), servers.Server{
		Type: servers.TypeEmby, Name: name, URL: "http://" + name, APIKey: "key",
	})
	if err != nil {
		t.Fatalf("Create server failed: %v", err)
	}
	e.clients[srv.ID] = client
	return srv
}

func (e *env) addCollection(t *testing.T, serverIDs []string, tmdbIDs ...int) *collection.Collection {
	t.Helper()
	ctx := context.Background()
	col, err := e.collections.Create(ctx, &collection.Collection{
		Name: "Heist Movies", SourceType: collection.SourceManual,
		EmbyServerIDs: serverIDs,
	})
	if err != nil {
		t.Fatalf("Create collection failed: %v", err)
	}
	for _, tmdb := range tmdbIDs {
		item := collection.FromMedia(col.ID, media.Item{
			Title: "Movie", MediaType: media.TypeMovie,
			IDs: media.ExternalIDs{TMDB: tmdb},
		})
		if _, err := e.collections.UpsertItem(ctx, item); err != nil {
			t.Fatalf("UpsertItem failed: %v", err)
		}
	}
	return col
}

func libItem(id string, tmdb int) presence.LibraryItem {
	return presence.LibraryItem{ID: id, IDs: media.ExternalIDs{TMDB: tmdb}}
}

func TestSyncCreatesCollectionWithMatchedItems(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient(libItem("e1", 603), libItem("e2", 604))
	srv := e.addServer(t, "emby-main", client)
	col := e.addCollection(t, []string{srv.ID}, 603, 604, 605)

	report, err := e.service.SyncCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}
	if len(report.Servers) != 1 {
		t.Fatalf("expected 1 server result, got %d", len(report.Servers))
	}

	entry := report.Servers[0]
	if entry.Status != synclog.StatusPartial {
		t.Errorf("expected PARTIAL (2 of 3 matched), got %s", entry.Status)
	}
	if entry.ItemsMatched != 2 || entry.ItemsTotal != 3 {
		t.Errorf("unexpected counts: %+v", entry)
	}

	boxset := client.collections["Heist Movies"]
	if boxset == "" {
		t.Fatal("expected emby collection to be created")
	}
	if len(client.added[boxset]) != 2 {
		t.Errorf("expected 2 items added, got %v", client.added[boxset])
	}
}

func TestSyncPersistsPresenceFlags(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient(libItem("e1", 603))
	srv := e.addServer(t, "emby-main", client)
	col := e.addCollection(t, []string{srv.ID}, 603, 604)

	if _, err := e.service.SyncCollection(context.Background(), col.ID); err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}

	total, inEmby, err := e.collections.ItemCounts(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("ItemCounts failed: %v", err)
	}
	if total != 2 || inEmby != 1 {
		t.Errorf("expected 2 total / 1 in emby, got %d / %d", total, inEmby)
	}
}

func TestSyncOneServerFailingDoesNotBlockOthers(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	healthy := newFakeClient(libItem("e1", 603))
	broken := newFakeClient()
	broken.libraryErr = errors.New("connection refused")

	srvA := e.addServer(t, "emby-a", healthy)
	srvB := e.addServer(t, "emby-b", broken)
	col := e.addCollection(t, []string{srvA.ID, srvB.ID}, 603)

	report, err := e.service.SyncCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}

	byServer := make(map[string]*synclog.Log)
	for _, entry := range report.Servers {
		byServer[entry.ServerID] = entry
	}
	if byServer[srvA.ID].Status != synclog.StatusSuccess {
		t.Errorf("healthy server: expected SUCCESS, got %s", byServer[srvA.ID].Status)
	}
	if byServer[srvB.ID].Status != synclog.StatusFailed {
		t.Errorf("broken server: expected FAILED, got %s", byServer[srvB.ID].Status)
	}
	if byServer[srvB.ID].ErrorMessage == "" {
		t.Error("broken server: expected error message")
	}

	// Both outcomes persisted.
	logs, err := e.logs.List(context.Background(), 10, col.ID)
	if err != nil {
		t.Fatalf("List logs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("expected 2 sync log entries, got %d", len(logs))
	}
}

func TestSyncServerTimeoutStillRecordsLog(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	stalled := newFakeClient()
	stalled.libraryStall = true
	srv := e.addServer(t, "emby-stalled", stalled)
	col := e.addCollection(t, []string{srv.ID}, 603)

	e.service.SetServerTimeout(20 * time.Millisecond)

	report, err := e.service.SyncCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}
	if len(report.Servers) != 1 || report.Servers[0].Status != synclog.StatusFailed {
		t.Fatalf("expected one FAILED result, got %+v", report.Servers)
	}

	// The expired attempt must still show up in sync history.
	logs, err := e.logs.List(context.Background(), 10, col.ID)
	if err != nil {
		t.Fatalf("List logs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected timed-out attempt persisted, got %d entries", len(logs))
	}
	if logs[0].Status != synclog.StatusFailed || logs[0].ErrorMessage == "" {
		t.Errorf("unexpected persisted entry: %+v", logs[0])
	}
}

func TestSyncAddsToExistingCollection(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient(libItem("e1", 603))
	client.collections["Heist Movies"] = "boxset-existing"
	srv := e.addServer(t, "emby-main", client)
	col := e.addCollection(t, []string{srv.ID}, 603)

	if _, err := e.service.SyncCollection(context.Background(), col.ID); err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}
	if len(client.added["boxset-existing"]) != 1 {
		t.Errorf("expected add to existing boxset, got %v", client.added)
	}
	if len(client.collections) != 1 {
		t.Errorf("expected no new boxset, got %v", client.collections)
	}
}

func TestSyncEmptyMatchSkipsCreation(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient() // empty library
	srv := e.addServer(t, "emby-main", client)
	col := e.addCollection(t, []string{srv.ID}, 603)

	report, err := e.service.SyncCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}
	if len(client.collections) != 0 {
		t.Errorf("expected no boxset for zero matches, got %v", client.collections)
	}
	if report.Servers[0].Status != synclog.StatusSuccess {
		// Nothing matched but nothing errored either.
		t.Errorf("expected SUCCESS, got %s", report.Servers[0].Status)
	}
}

func TestSyncFallsBackToDefaultServer(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient(libItem("e1", 603))
	srv := e.addServer(t, "emby-main", client)
	// Sole Emby server acts as default even without the flag.
	_ = srv
	col := e.addCollection(t, nil, 603)

	report, err := e.service.SyncCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("SyncCollection failed: %v", err)
	}
	if len(report.Servers) != 1 || report.Servers[0].ServerID != srv.ID {
		t.Errorf("expected fallback to sole emby server, got %+v", report.Servers)
	}
}

func TestSyncNoServersConfigured(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	col := e.addCollection(t, nil, 603)
	_, err := e.service.SyncCollection(context.Background(), col.ID)
	if !errors.Is(err, ErrNoTargetServers) {
		t.Errorf("expected ErrNoTargetServers, got %v", err)
	}
}

func TestRemoveItems(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient(libItem("e1", 603), libItem("e2", 604))
	client.collections["Heist Movies"] = "boxset-1"
	client.members["boxset-1"] = []presence.LibraryItem{libItem("e1", 603), libItem("e2", 604)}

	srv := e.addServer(t, "emby-main", client)
	col := e.addCollection(t, []string{srv.ID}, 603)

	gone := collection.FromMedia(col.ID, media.Item{
		Title: "Movie", MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 604},
	})
	if err := e.service.RemoveItems(context.Background(), col.ID, []*collection.Item{gone}); err != nil {
		t.Fatalf("RemoveItems failed: %v", err)
	}
	if got := client.removed["boxset-1"]; len(got) != 1 || got[0] != "e2" {
		t.Errorf("expected e2 removed, got %v", got)
	}
}

func TestDeleteRemote(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	client := newFakeClient()
	client.collections["Heist Movies"] = "boxset-1"
	srv := e.addServer(t, "emby-main", client)
	col := e.addCollection(t, []string{srv.ID})

	if err := e.service.DeleteRemote(context.Background(), col); err != nil {
		t.Fatalf("DeleteRemote failed: %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "boxset-1" {
		t.Errorf("expected boxset deletion, got %v", client.deleted)
	}
}

func TestSyncAllToServerOnlyTouchesItsCollections(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()
	ctx := context.Background()

	c1 := newFakeClient(libItem("e1", 100))
	c2 := newFakeClient(libItem("e2", 200))
	s1 := e.addServer(t, "living-room", c1)
	s2 := e.addServer(t, "bedroom", c2)

	colA := e.addCollection(t, []string{s1.ID}, 100)
	e.addCollection(t, []string{s2.ID}, 200)

	logs, err := e.service.SyncAllToServer(ctx, s1.ID)
	if err != nil {
		t.Fatalf("SyncAllToServer failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].CollectionID != colA.ID {
		t.Errorf("synced wrong collection: %s", logs[0].CollectionID)
	}
	if len(c2.collections) != 0 {
		t.Error("other server should not have been touched")
	}
}

func TestSyncAllToServerRejectsNonEmby(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()
	ctx := context.Background()

	srv, err := e.servers.Create(ctx, servers.Server{
		Type: servers.TypeRadarr, Name: "movies", URL: "http://radarr", APIKey: "key",
	})
	if err != nil {
		t.Fatalf("Create server failed: %v", err)
	}

	if _, err := e.service.SyncAllToServer(ctx, srv.ID); !errors.Is(err, ErrNotEmbyServer) {
		t.Errorf("expected ErrNotEmbyServer, got %v", err)
	}
	if _, err := e.service.SyncAllToServer(ctx, "missing"); !errors.Is(err, servers.ErrServerNotFound) {
		t.Errorf("expected ErrServerNotFound, got %v", err)
	}
}
