package collection

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/presence"
)

var ErrInvalidCollection = errors.New("invalid collection")

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Service owns collection business rules on top of the store.
type Service struct {
	store    *Store
	resolver *media.Resolver
	logger   zerolog.Logger

	// onDelete runs before a collection flagged deleteFromEmbyOnDelete is
	// removed, giving the Emby sync layer a chance to drop the remote
	// counterpart.
	onDelete func(ctx context.Context, col *Collection) error

	// activityProbe reports whether a refresh is running for a collection,
	// surfaced on GET responses so clients can poll for completion.
	activityProbe func(collectionID string) bool
}

// NewService creates a collection service. resolver fills identifier gaps on
// manually added items and may be nil.
func NewService(store *Store, resolver *media.Resolver, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		logger:   logger.With().Str("component", "collections").Logger(),
	}
}

// Store exposes the underlying store for jobs that operate on items directly.
func (s *Service) Store() *Store {
	return s.store
}

// Create validates and persists a new collection.
func (s *Service) Create(ctx context.Context, c *Collection) (*Collection, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, c)
}

// Update validates and persists changes to an existing collection.
func (s *Service) Update(ctx context.Context, c *Collection) (*Collection, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, c)
}

func validate(c *Collection) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCollection)
	}
	if !c.SourceType.Valid() {
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidCollection, c.SourceType)
	}
	// A list-backed collection must point at a list; a manual one must not.
	if c.SourceType == SourceManual && c.SourceID != "" {
		return fmt.Errorf("%w: manual collections cannot have a source id", ErrInvalidCollection)
	}
	if c.SourceType != SourceManual && c.SourceID == "" {
		return fmt.Errorf("%w: source id is required for %s collections", ErrInvalidCollection, c.SourceType)
	}
	if c.RefreshIntervalHours < 0 {
		return fmt.Errorf("%w: refresh interval cannot be negative", ErrInvalidCollection)
	}
	if c.RefreshTimeOfDay != "" && !timeOfDayPattern.MatchString(c.RefreshTimeOfDay) {
		return fmt.Errorf("%w: refresh time must be HH:MM", ErrInvalidCollection)
	}
	return nil
}

// Get returns one collection without items.
func (s *Service) Get(ctx context.Context, id string) (*Collection, error) {
	return s.store.Get(ctx, id)
}

// GetWithItems returns one collection with its items loaded.
func (s *Service) GetWithItems(ctx context.Context, id string) (*Collection, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items, err = s.store.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all collections.
func (s *Service) List(ctx context.Context) ([]*Collection, error) {
	return s.store.List(ctx)
}

// SetDeleteHook registers the remote cleanup callback.
func (s *Service) SetDeleteHook(hook func(ctx context.Context, col *Collection) error) {
	s.onDelete = hook
}

// SetActivityProbe registers the refresh-in-progress check.
func (s *Service) SetActivityProbe(probe func(collectionID string) bool) {
	s.activityProbe = probe
}

// Refreshing reports whether a refresh is currently running for the
// collection. False when no probe is registered.
func (s *Service) Refreshing(collectionID string) bool {
	if s.activityProbe == nil {
		return false
	}
	return s.activityProbe(collectionID)
}

// Delete removes a collection. When the collection is flagged for remote
// cleanup, the Emby counterpart is removed first; a cleanup failure is
// logged but never blocks the local delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	col, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if col.DeleteFromEmbyOnDelete && s.onDelete != nil {
		if err := s.onDelete(ctx, col); err != nil {
			s.logger.Warn().Err(err).Str("collectionId", id).Msg("Remote collection cleanup failed")
		}
	}
	return s.store.Delete(ctx, id)
}

// AddItem resolves a raw entry and upserts it into the collection. Adding an
// item that is already present (same canonical identity) merges identifiers
// instead of duplicating.
func (s *Service) AddItem(ctx context.Context, collectionID string, entry media.RawEntry) (*Item, error) {
	if _, err := s.store.Get(ctx, collectionID); err != nil {
		return nil, err
	}
	if entry.Title == "" {
		return nil, fmt.Errorf("%w: item title is required", ErrInvalidCollection)
	}
	if !entry.MediaType.Valid() {
		return nil, fmt.Errorf("%w: unknown media type %q", ErrInvalidCollection, entry.MediaType)
	}

	var resolved media.Item
	if s.resolver != nil {
		resolved = s.resolver.Resolve(ctx, entry)
	} else {
		resolved = media.Item{
			Title:      entry.Title,
			Year:       entry.Year,
			MediaType:  entry.MediaType,
			PosterPath: entry.PosterPath,
			Rating:     entry.Rating,
			IDs:        entry.IDs,
		}
	}

	item, err := s.store.UpsertItem(ctx, FromMedia(collectionID, resolved))
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("collectionId", collectionID).
		Str("title", item.Title).
		Str("key", item.CanonicalKey).
		Msg("Added item to collection")
	return item, nil
}

// RemoveItem deletes one item from a collection.
func (s *Service) RemoveItem(ctx context.Context, collectionID, itemID string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.CollectionID != collectionID {
		return ErrItemNotFound
	}
	return s.store.DeleteItem(ctx, itemID)
}

// Stats returns presence figures for a collection.
func (s *Service) Stats(ctx context.Context, collectionID string) (presence.Stats, error) {
	if _, err := s.store.Get(ctx, collectionID); err != nil {
		return presence.Stats{}, err
	}
	total, inEmby, err := s.store.ItemCounts(ctx, collectionID)
	if err != nil {
		return presence.Stats{}, err
	}
	return presence.ComputeStats(total, inEmby), nil
}
