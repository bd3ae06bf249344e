// Package refresh pulls collections from their upstream list sources and
// reconciles the stored items: new entries are resolved and inserted,
// surviving entries gain any newly discovered identifiers, and entries that
// left the upstream list are pruned when the collection opts into removal.
// Items are written one at a time so
// clients polling during a refresh see the collection grow incrementally.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/media"
)

var (
	ErrRefreshInProgress = errors.New("collection refresh already in progress")
	ErrNotRefreshable    = errors.New("collection has no refreshable source")
)

// fetchAttempts is the number of tries against a flaky list source before
// the refresh is abandoned with the previous items intact.
const fetchAttempts = 3

// EmbyUpdater is the downstream hook the refresh job drives after
// reconciling items. Implemented by the Emby sync service.
type EmbyUpdater interface {
	// UpdatePresence recomputes the in-Emby flag for every item.
	UpdatePresence(ctx context.Context, collectionID string) error
	// SyncCollection mirrors the collection to its linked Emby servers.
	SyncCollection(ctx context.Context, collectionID string) error
	// RemoveItems removes the given items from the Emby collections.
	RemoveItems(ctx context.Context, collectionID string, items []*collection.Item) error
}

// Broadcaster pushes progress events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Result summarizes one refresh run.
type Result struct {
	CollectionID string        `json:"collectionId"`
	Fetched      int           `json:"fetched"`
	Unmatched    int           `json:"unmatched"`
	Removed      int           `json:"removed"`
	Duration     time.Duration `json:"-"`
}

// Service runs collection refreshes.
type Service struct {
	store    *collection.Store
	resolver *media.Resolver
	registry *Registry
	emby     EmbyUpdater
	hub      Broadcaster
	logger   zerolog.Logger

	mu      sync.Mutex
	running map[string]*sync.Mutex
}

// NewService creates a refresh service. emby and hub may be nil.
func NewService(store *collection.Store, resolver *media.Resolver, registry *Registry, emby EmbyUpdater, hub Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		registry: registry,
		emby:     emby,
		hub:      hub,
		logger:   logger.With().Str("component", "refresh").Logger(),
		running:  make(map[string]*sync.Mutex),
	}
}

// tryLock acquires the per-collection refresh lock without blocking.
// Refreshes of different collections run concurrently; a second refresh of
// the same collection is rejected rather than queued.
func (s *Service) tryLock(collectionID string) (func(), bool) {
	s.mu.Lock()
	lock, ok := s.running[collectionID]
	if !ok {
		lock = &sync.Mutex{}
		s.running[collectionID] = lock
	}
	s.mu.Unlock()

	if !lock.TryLock() {
		return nil, false
	}
	return lock.Unlock, true
}

// InProgress reports whether a refresh currently holds the collection's
// lock. Probe only; the lock is released immediately when acquired.
func (s *Service) InProgress(collectionID string) bool {
	s.mu.Lock()
	lock, ok := s.running[collectionID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if lock.TryLock() {
		lock.Unlock()
		return false
	}
	return true
}

// Refresh pulls the collection's source list and reconciles stored items.
func (s *Service) Refresh(ctx context.Context, collectionID string) (*Result, error) {
	col, err := s.store.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !col.SourceType.Refreshable() {
		return nil, fmt.Errorf("%w: %s", ErrNotRefreshable, col.SourceType)
	}

	unlock, ok := s.tryLock(col.ID)
	if !ok {
		return nil, ErrRefreshInProgress
	}
	defer unlock()

	return s.run(ctx, col)
}

// StartRefresh validates the request and runs the refresh in the
// background. Validation failures and lock contention surface immediately;
// everything after that is observable through the websocket events, the
// collection's refreshing flag, and its item count.
func (s *Service) StartRefresh(ctx context.Context, collectionID string) error {
	col, err := s.store.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	if !col.SourceType.Refreshable() {
		return fmt.Errorf("%w: %s", ErrNotRefreshable, col.SourceType)
	}

	unlock, ok := s.tryLock(col.ID)
	if !ok {
		return ErrRefreshInProgress
	}

	go func() {
		defer unlock()
		// Detached from the request context: the job runs to completion.
		if _, err := s.run(context.Background(), col); err != nil {
			s.logger.Error().Err(err).Str("collectionId", col.ID).Msg("Background refresh failed")
		}
	}()
	return nil
}

// run executes the refresh pipeline. The caller holds the collection lock.
func (s *Service) run(ctx context.Context, col *collection.Collection) (*Result, error) {
	start := time.Now()
	s.logger.Info().
		Str("collectionId", col.ID).
		Str("name", col.Name).
		Str("sourceType", string(col.SourceType)).
		Msg("Refreshing collection")
	s.broadcast("collection:refresh:started", map[string]interface{}{
		"collectionId": col.ID,
		"name":         col.Name,
	})

	entries, err := retry.DoWithData(func() ([]media.RawEntry, error) {
		return s.registry.Fetch(ctx, col.SourceType, col.SourceID)
	},
		retry.Context(ctx),
		retry.Attempts(fetchAttempts),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		// Source unreachable: stored items stay untouched.
		s.logger.Error().Err(err).Str("collectionId", col.ID).Msg("Source fetch failed")
		s.broadcast("collection:refresh:failed", map[string]interface{}{
			"collectionId": col.ID,
			"error":        err.Error(),
		})
		return nil, fmt.Errorf("failed to fetch source list: %w", err)
	}

	result := &Result{CollectionID: col.ID, Fetched: len(entries)}
	keep := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		item := s.resolver.Resolve(ctx, entry)
		if item.Unmatched() {
			result.Unmatched++
		}
		stored, err := s.store.UpsertItem(ctx, collection.FromMedia(col.ID, item))
		if err != nil {
			return nil, fmt.Errorf("failed to store item %q: %w", item.Title, err)
		}
		keep[stored.CanonicalKey] = struct{}{}

		if (i+1)%25 == 0 || i+1 == len(entries) {
			s.broadcast("collection:refresh:progress", map[string]interface{}{
				"collectionId": col.ID,
				"processed":    i + 1,
				"total":        len(entries),
			})
		}
	}

	// The pull drained completely, so absence from keep means the entry
	// genuinely left the upstream list. Stale entries are only pruned when
	// the collection opts in; otherwise manually curated extras survive.
	if col.RemoveFromEmby {
		removed, err := s.store.DeleteItemsNotIn(ctx, col.ID, keep)
		if err != nil {
			return nil, fmt.Errorf("failed to remove stale items: %w", err)
		}
		result.Removed = len(removed)
		if s.emby != nil && len(removed) > 0 {
			if err := s.emby.RemoveItems(ctx, col.ID, removed); err != nil {
				s.logger.Warn().Err(err).Str("collectionId", col.ID).Msg("Failed to remove stale items from Emby")
			}
		}
	}

	if s.emby != nil {
		if err := s.emby.UpdatePresence(ctx, col.ID); err != nil {
			s.logger.Warn().Err(err).Str("collectionId", col.ID).Msg("Failed to update Emby presence")
		}
		if col.SyncToEmbyOnRefresh {
			if err := s.emby.SyncCollection(ctx, col.ID); err != nil {
				s.logger.Warn().Err(err).Str("collectionId", col.ID).Msg("Post-refresh Emby sync failed")
			}
		}
	}

	if err := s.store.SetLastRefreshed(ctx, col.ID, time.Now().UTC()); err != nil {
		s.logger.Warn().Err(err).Str("collectionId", col.ID).Msg("Failed to record refresh time")
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Str("collectionId", col.ID).
		Int("fetched", result.Fetched).
		Int("removed", result.Removed).
		Int("unmatched", result.Unmatched).
		Dur("duration", result.Duration).
		Msg("Collection refreshed")
	s.broadcast("collection:refresh:completed", result)

	return result, nil
}

// RefreshDue refreshes every collection whose interval or time-of-day
// schedule has come around. tick is the scheduler period.
func (s *Service) RefreshDue(ctx context.Context, tick time.Duration) error {
	collections, err := s.store.ListRefreshable(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var failures int
	for _, col := range collections {
		if !col.DueForRefresh(now, tick) {
			continue
		}
		if _, err := s.Refresh(ctx, col.ID); err != nil {
			if errors.Is(err, ErrRefreshInProgress) {
				s.logger.Debug().Str("collectionId", col.ID).Msg("Skipping refresh, already running")
				continue
			}
			failures++
			s.logger.Error().Err(err).Str("collectionId", col.ID).Msg("Scheduled refresh failed")
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d collection refresh(es) failed", failures)
	}
	return nil
}

func (s *Service) broadcast(msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(msgType, payload); err != nil {
		s.logger.Debug().Err(err).Str("type", msgType).Msg("Broadcast failed")
	}
}
