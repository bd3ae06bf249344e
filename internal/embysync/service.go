// Package embysync mirrors collections into native Emby collections
// (BoxSets). Each linked server is synced independently and records its own
// sync log entry; one unreachable server never blocks the others.
package embysync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/presence"
	"github.com/collectarr/collectarr/internal/providers/emby"
	"github.com/collectarr/collectarr/internal/servers"
	"github.com/collectarr/collectarr/internal/synclog"
)

var (
	ErrNoTargetServers = errors.New("collection has no emby servers configured")
	ErrNotEmbyServer   = errors.New("not an emby server")
)

// defaultServerTimeout bounds the whole per-server sync attempt, on top of
// the client's per-request timeout.
const defaultServerTimeout = 30 * time.Second

// EmbyClient is the slice of the Emby API the sync needs.
type EmbyClient interface {
	LibraryIndex(ctx context.Context) (*presence.Index, error)
	FindCollection(ctx context.Context, name string) (string, error)
	CreateCollection(ctx context.Context, name string, itemIDs []string) (string, error)
	AddToCollection(ctx context.Context, collectionID string, itemIDs []string) error
	RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) error
	CollectionItems(ctx context.Context, collectionID string) ([]presence.LibraryItem, error)
	DeleteCollection(ctx context.Context, collectionID string) error
}

// ClientFactory builds a client for one configured server.
type ClientFactory func(server *servers.Server) EmbyClient

// Broadcaster pushes sync events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Report is the outcome of syncing one collection: one log entry per server.
type Report struct {
	CollectionID string         `json:"collectionId"`
	Servers      []*synclog.Log `json:"results"`
}

// Service syncs collections to Emby servers.
type Service struct {
	collections   *collection.Store
	servers       *servers.Store
	logs          *synclog.Store
	factory       ClientFactory
	hub           Broadcaster
	logger        zerolog.Logger
	serverTimeout time.Duration
}

// NewService creates an Emby sync service. hub may be nil.
func NewService(collections *collection.Store, srvStore *servers.Store, logs *synclog.Store, factory ClientFactory, hub Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		collections:   collections,
		servers:       srvStore,
		logs:          logs,
		factory:       factory,
		hub:           hub,
		logger:        logger.With().Str("component", "embysync").Logger(),
		serverTimeout: defaultServerTimeout,
	}
}

// SetServerTimeout overrides the per-server sync deadline.
func (s *Service) SetServerTimeout(d time.Duration) {
	if d > 0 {
		s.serverTimeout = d
	}
}

// targetServers resolves the Emby servers a collection syncs to: its linked
// servers, or the default Emby server when none are linked.
func (s *Service) targetServers(ctx context.Context, col *collection.Collection) ([]*servers.Server, error) {
	if len(col.EmbyServerIDs) > 0 {
		targets := make([]*servers.Server, 0, len(col.EmbyServerIDs))
		for _, id := range col.EmbyServerIDs {
			srv, err := s.servers.Get(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load linked server %s: %w", id, err)
			}
			targets = append(targets, srv)
		}
		return targets, nil
	}

	def, err := s.servers.GetDefault(ctx, servers.TypeEmby)
	if err != nil {
		if errors.Is(err, servers.ErrServerNotFound) {
			return nil, ErrNoTargetServers
		}
		return nil, err
	}
	return []*servers.Server{def}, nil
}

// SyncCollection mirrors one collection to all its target servers. Servers
// are synced concurrently; the report carries one log entry per server.
func (s *Service) SyncCollection(ctx context.Context, collectionID string) (*Report, error) {
	col, err := s.collections.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	items, err := s.collections.ListItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	targets, err := s.targetServers(ctx, col)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("collectionId", col.ID).
		Str("name", col.Name).
		Int("items", len(items)).
		Int("servers", len(targets)).
		Msg("Syncing collection to emby")

	results := make([]*synclog.Log, len(targets))
	p := pool.New()
	for i, srv := range targets {
		i, srv := i, srv
		p.Go(func() {
			results[i] = s.syncOne(ctx, col, items, srv)
		})
	}
	p.Wait()

	report := &Report{CollectionID: col.ID, Servers: results}
	s.broadcast("collection:sync:completed", report)
	return report, nil
}

// syncOne syncs one collection to one server and records a sync log entry.
// Errors are captured in the log entry, never returned: the caller's other
// servers must not be affected.
func (s *Service) syncOne(ctx context.Context, col *collection.Collection, items []*collection.Item, srv *servers.Server) *synclog.Log {
	// The log write must survive the per-server deadline: a timed-out
	// attempt still belongs in sync history.
	logCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.serverTimeout)
	defer cancel()

	entry := synclog.Log{
		CollectionID: col.ID,
		ServerID:     srv.ID,
		ItemsTotal:   len(items),
		StartedAt:    time.Now().UTC(),
	}

	client := s.factory(srv)

	matched, presenceByKey, err := s.matchItems(ctx, client, items)
	if err != nil {
		return s.record(logCtx, entry, 0, true, fmt.Sprintf("library snapshot failed: %v", err))
	}
	entry.ItemsMatched = len(matched)

	if err := s.collections.SetItemPresence(ctx, col.ID, presenceByKey); err != nil {
		s.logger.Warn().Err(err).Str("collectionId", col.ID).Msg("Failed to persist presence flags")
	}

	embyColID, err := s.ensureCollection(ctx, client, col.Name, matched)
	if err != nil {
		return s.record(logCtx, entry, entry.ItemsMatched, true, fmt.Sprintf("collection update failed: %v", err))
	}

	if col.RemoveFromEmby && embyColID != "" {
		if err := s.removeStrays(ctx, client, embyColID, items); err != nil {
			s.logger.Warn().Err(err).Str("server", srv.Name).Msg("Failed to remove strays from emby collection")
		}
	}

	return s.record(logCtx, entry, entry.ItemsMatched, false, "")
}

// matchItems snapshots the server library and matches collection items
// against it, returning the matched Emby item ids and a presence map keyed
// by canonical key.
func (s *Service) matchItems(ctx context.Context, client EmbyClient, items []*collection.Item) ([]string, map[string]bool, error) {
	index, err := client.LibraryIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	matched := make([]string, 0, len(items))
	presenceByKey := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Unmatched() {
			// No identifiers, so never presence-matched.
			presenceByKey[item.CanonicalKey] = false
			continue
		}
		embyID, ok := index.Lookup(item.ExternalIDs)
		presenceByKey[item.CanonicalKey] = ok
		if ok {
			matched = append(matched, embyID)
		}
	}
	return matched, presenceByKey, nil
}

// ensureCollection creates the Emby collection if absent, otherwise adds the
// matched items to the existing one. Returns the Emby collection id, which
// is empty when nothing matched and no collection exists yet.
func (s *Service) ensureCollection(ctx context.Context, client EmbyClient, name string, matched []string) (string, error) {
	embyColID, err := client.FindCollection(ctx, name)
	if err != nil {
		if !errors.Is(err, emby.ErrNotFound) {
			return "", err
		}
		if len(matched) == 0 {
			// Emby cannot create an empty BoxSet; nothing to do yet.
			return "", nil
		}
		return client.CreateCollection(ctx, name, matched)
	}
	if err := client.AddToCollection(ctx, embyColID, matched); err != nil {
		return embyColID, err
	}
	return embyColID, nil
}

// removeStrays drops Emby collection members that no longer correspond to
// any stored item.
func (s *Service) removeStrays(ctx context.Context, client EmbyClient, embyColID string, items []*collection.Item) error {
	members, err := client.CollectionItems(ctx, embyColID)
	if err != nil {
		return err
	}

	wanted := presence.NewIndex(libraryItems(items))
	strays := make([]string, 0)
	for _, member := range members {
		if !wanted.Contains(member.IDs) {
			strays = append(strays, member.ID)
		}
	}
	return client.RemoveFromCollection(ctx, embyColID, strays)
}

func libraryItems(items []*collection.Item) []presence.LibraryItem {
	out := make([]presence.LibraryItem, 0, len(items))
	for _, it := range items {
		out = append(out, presence.LibraryItem{ID: it.ID, IDs: it.ExternalIDs})
	}
	return out
}

// record classifies and persists a sync log entry.
func (s *Service) record(ctx context.Context, entry synclog.Log, matched int, failed bool, errMsg string) *synclog.Log {
	entry.ItemsMatched = matched
	if failed {
		entry.ItemsFailed = entry.ItemsTotal - matched
	}
	entry.Status = synclog.Classify(matched, entry.ItemsTotal, failed)
	entry.ErrorMessage = errMsg
	entry.CompletedAt = time.Now().UTC()

	stored, err := s.logs.Create(ctx, entry)
	if err != nil {
		s.logger.Error().Err(err).Str("collectionId", entry.CollectionID).Msg("Failed to persist sync log")
		return &entry
	}
	return stored
}

// UpdatePresence recomputes every item's in-Emby flag from the first
// reachable target server's library.
func (s *Service) UpdatePresence(ctx context.Context, collectionID string) error {
	col, err := s.collections.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	items, err := s.collections.ListItems(ctx, collectionID)
	if err != nil {
		return err
	}
	targets, err := s.targetServers(ctx, col)
	if err != nil {
		if errors.Is(err, ErrNoTargetServers) {
			return nil
		}
		return err
	}

	var lastErr error
	for _, srv := range targets {
		client := s.factory(srv)
		_, presenceByKey, err := s.matchItems(ctx, client, items)
		if err != nil {
			lastErr = err
			continue
		}
		return s.collections.SetItemPresence(ctx, collectionID, presenceByKey)
	}
	return fmt.Errorf("no emby server reachable: %w", lastErr)
}

// RemoveItems removes the given items from the collection's Emby
// counterparts on every target server.
func (s *Service) RemoveItems(ctx context.Context, collectionID string, removed []*collection.Item) error {
	if len(removed) == 0 {
		return nil
	}
	col, err := s.collections.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	targets, err := s.targetServers(ctx, col)
	if err != nil {
		if errors.Is(err, ErrNoTargetServers) {
			return nil
		}
		return err
	}

	goneIndex := presence.NewIndex(libraryItems(removed))
	var lastErr error
	for _, srv := range targets {
		client := s.factory(srv)
		embyColID, err := client.FindCollection(ctx, col.Name)
		if err != nil {
			continue // no remote collection, nothing to remove
		}
		members, err := client.CollectionItems(ctx, embyColID)
		if err != nil {
			lastErr = err
			continue
		}
		ids := make([]string, 0)
		for _, member := range members {
			if goneIndex.Contains(member.IDs) {
				ids = append(ids, member.ID)
			}
		}
		if err := client.RemoveFromCollection(ctx, embyColID, ids); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// DeleteRemote removes the collection's BoxSet from every target server.
// Media files are never touched, only the collection object.
func (s *Service) DeleteRemote(ctx context.Context, col *collection.Collection) error {
	targets, err := s.targetServers(ctx, col)
	if err != nil {
		if errors.Is(err, ErrNoTargetServers) {
			return nil
		}
		return err
	}

	var lastErr error
	for _, srv := range targets {
		client := s.factory(srv)
		embyColID, err := client.FindCollection(ctx, col.Name)
		if err != nil {
			continue
		}
		if err := client.DeleteCollection(ctx, embyColID); err != nil {
			lastErr = err
			s.logger.Warn().Err(err).Str("server", srv.Name).Str("collection", col.Name).Msg("Failed to delete emby collection")
		}
	}
	return lastErr
}

// SyncAll syncs every collection that has at least one target server.
func (s *Service) SyncAll(ctx context.Context) ([]*Report, error) {
	collections, err := s.collections.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*Report, 0, len(collections))
	for _, col := range collections {
		report, err := s.SyncCollection(ctx, col.ID)
		if err != nil {
			if errors.Is(err, ErrNoTargetServers) {
				continue
			}
			s.logger.Error().Err(err).Str("collectionId", col.ID).Msg("Sync failed")
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// SyncAllToServer syncs every collection targeting the given server to that
// server only. Collections whose target set does not include it are skipped.
func (s *Service) SyncAllToServer(ctx context.Context, serverID string) ([]*synclog.Log, error) {
	srv, err := s.servers.Get(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if srv.Type != servers.TypeEmby {
		return nil, fmt.Errorf("%w: %s is a %s server", ErrNotEmbyServer, srv.Name, srv.Type)
	}

	collections, err := s.collections.List(ctx)
	if err != nil {
		return nil, err
	}

	logs := make([]*synclog.Log, 0, len(collections))
	for _, col := range collections {
		targets, err := s.targetServers(ctx, col)
		if err != nil {
			if errors.Is(err, ErrNoTargetServers) {
				continue
			}
			s.logger.Error().Err(err).Str("collectionId", col.ID).Msg("Failed to resolve targets")
			continue
		}
		if !containsServer(targets, serverID) {
			continue
		}

		items, err := s.collections.ListItems(ctx, col.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("collectionId", col.ID).Msg("Failed to load items")
			continue
		}
		logs = append(logs, s.syncOne(ctx, col, items, srv))
	}
	return logs, nil
}

func containsServer(targets []*servers.Server, id string) bool {
	for _, srv := range targets {
		if srv.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) broadcast(msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(msgType, payload); err != nil {
		s.logger.Debug().Err(err).Str("type", msgType).Msg("Broadcast failed")
	}
}
