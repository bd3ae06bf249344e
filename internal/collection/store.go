package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/media"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrItemNotFound       = errors.New("collection item not found")
)

// Store persists collections and their items.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a collection store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "collectionstore").Logger(),
	}
}

// Create inserts a collection and its Emby server links.
func (s *Store) Create(ctx context.Context, c *Collection) (*Collection, error) {
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (id, name, description, source_type, source_id, poster_path,
			refresh_interval_hours, refresh_time_of_day, sync_to_emby_on_refresh,
			remove_from_emby, delete_from_emby_on_delete, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, string(c.SourceType), c.SourceID, c.PosterPath,
		c.RefreshIntervalHours, c.RefreshTimeOfDay, c.SyncToEmbyOnRefresh,
		c.RemoveFromEmby, c.DeleteFromEmbyOnDelete, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert collection: %w", err)
	}

	if err := replaceEmbyServers(ctx, tx, c.ID, c.EmbyServerIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info().Str("collectionId", c.ID).Str("name", c.Name).Msg("Created collection")
	return c, nil
}

// Update rewrites a collection's mutable fields and server links.
func (s *Store) Update(ctx context.Context, c *Collection) (*Collection, error) {
	c.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE collections SET name = ?, description = ?, source_type = ?, source_id = ?,
			poster_path = ?, refresh_interval_hours = ?, refresh_time_of_day = ?,
			sync_to_emby_on_refresh = ?, remove_from_emby = ?, delete_from_emby_on_delete = ?,
			updated_at = ?
		WHERE id = ?`,
		c.Name, c.Description, string(c.SourceType), c.SourceID,
		c.PosterPath, c.RefreshIntervalHours, c.RefreshTimeOfDay,
		c.SyncToEmbyOnRefresh, c.RemoveFromEmby, c.DeleteFromEmbyOnDelete,
		c.UpdatedAt, c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrCollectionNotFound
	}

	if err := replaceEmbyServers(ctx, tx, c.ID, c.EmbyServerIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return c, nil
}

func replaceEmbyServers(ctx context.Context, tx *sql.Tx, collectionID string, serverIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_emby_servers WHERE collection_id = ?`, collectionID); err != nil {
		return fmt.Errorf("failed to clear emby server links: %w", err)
	}
	for _, serverID := range serverIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collection_emby_servers (collection_id, server_id) VALUES (?, ?)`,
			collectionID, serverID); err != nil {
			return fmt.Errorf("failed to link emby server: %w", err)
		}
	}
	return nil
}

// Get returns one collection without its items.
func (s *Store) Get(ctx context.Context, id string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, collectionSelect+` WHERE id = ?`, id)

	c, err := scanCollection(row)
	if err != nil {
		return nil, err
	}

	c.EmbyServerIDs, err = s.embyServerIDs(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all collections, most recently created first, without items.
func (s *Store) List(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx, collectionSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	collections := make([]*Collection, 0)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range collections {
		c.EmbyServerIDs, err = s.embyServerIDs(ctx, c.ID)
		if err != nil {
			return nil, err
		}
	}
	return collections, nil
}

// Delete removes a collection; items and server links cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCollectionNotFound
	}
	s.logger.Info().Str("collectionId", id).Msg("Deleted collection")
	return nil
}

func (s *Store) embyServerIDs(ctx context.Context, collectionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT server_id FROM collection_emby_servers WHERE collection_id = ? ORDER BY server_id`,
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load emby server links: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const collectionSelect = `
	SELECT id, name, description, source_type, source_id, poster_path,
		refresh_interval_hours, refresh_time_of_day, sync_to_emby_on_refresh,
		remove_from_emby, delete_from_emby_on_delete, last_refreshed_at,
		created_at, updated_at
	FROM collections`

func scanCollection(row interface{ Scan(...any) error }) (*Collection, error) {
	var c Collection
	var sourceType string
	var sourceID, refreshTime sql.NullString
	var lastRefreshed sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Description, &sourceType, &sourceID, &c.PosterPath,
		&c.RefreshIntervalHours, &refreshTime, &c.SyncToEmbyOnRefresh,
		&c.RemoveFromEmby, &c.DeleteFromEmbyOnDelete, &lastRefreshed,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}
	c.SourceType = SourceType(sourceType)
	c.SourceID = sourceID.String
	c.RefreshTimeOfDay = refreshTime.String
	if lastRefreshed.Valid {
		t := lastRefreshed.Time
		c.LastRefreshedAt = &t
	}
	return &c, nil
}

// SetLastRefreshed records the completion time of a successful refresh.
func (s *Store) SetLastRefreshed(ctx context.Context, collectionID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE collections SET last_refreshed_at = ? WHERE id = ?`, at, collectionID)
	if err != nil {
		return fmt.Errorf("failed to set last refreshed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// UpsertItem inserts an item or, when the collection already holds the same
// identity, merges identifiers into the stored row. Identity is matched by
// canonical key first, then by any shared external id: a row stored before
// metadata resolution filled its preferred id carries a weaker key
// (imdb: instead of tmdb:), and must not be duplicated once the stronger id
// arrives. Identifier merge is monotonic: populated ids are never
// overwritten or cleared. The stored canonical key migrates to the
// preferred form after a merge.
func (s *Store) UpsertItem(ctx context.Context, item *Item) (*Item, error) {
	existing, err := s.getItemByKey(ctx, item.CollectionID, item.CanonicalKey)
	if errors.Is(err, ErrItemNotFound) && !item.ExternalIDs.IsEmpty() {
		existing, err = s.getItemByExternalID(ctx, item.CollectionID, item.MediaType, item.ExternalIDs)
	}
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		return nil, err
	}

	if existing == nil {
		item.ID = uuid.NewString()
		if item.AddedAt.IsZero() {
			item.AddedAt = time.Now().UTC()
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO collection_items (id, collection_id, title, year, media_type,
				poster_path, rating, imdb_id, tmdb_id, tvdb_id, canonical_key, in_emby, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.CollectionID, item.Title, item.Year, string(item.MediaType),
			item.PosterPath, item.Rating, item.IMDB, item.TMDB, item.TVDB,
			item.CanonicalKey, item.InEmby, item.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item: %w", err)
		}
		return item, nil
	}

	existing.ExternalIDs = existing.ExternalIDs.Merge(item.ExternalIDs)
	if existing.PosterPath == "" {
		existing.PosterPath = item.PosterPath
	}
	if existing.Rating == 0 {
		existing.Rating = item.Rating
	}
	existing.CanonicalKey = media.CanonicalKey(existing.MediaType, existing.ExternalIDs, existing.Title, existing.Year)
	_, err = s.db.ExecContext(ctx, `
		UPDATE collection_items SET imdb_id = ?, tmdb_id = ?, tvdb_id = ?, poster_path = ?, rating = ?, canonical_key = ?
		WHERE id = ?`,
		existing.IMDB, existing.TMDB, existing.TVDB, existing.PosterPath, existing.Rating,
		existing.CanonicalKey, existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to merge item: %w", err)
	}
	return existing, nil
}

func (s *Store) getItemByKey(ctx context.Context, collectionID, key string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, itemSelect+` WHERE collection_id = ? AND canonical_key = ?`,
		collectionID, key)
	return scanItem(row)
}

// getItemByExternalID finds an item of the same media type sharing any
// populated external identifier.
func (s *Store) getItemByExternalID(ctx context.Context, collectionID string, mediaType media.MediaType, ids media.ExternalIDs) (*Item, error) {
	row := s.db.QueryRowContext(ctx, itemSelect+`
		WHERE collection_id = ? AND media_type = ?
			AND ((imdb_id != '' AND imdb_id = ?)
				OR (tmdb_id != 0 AND tmdb_id = ?)
				OR (tvdb_id != 0 AND tvdb_id = ?))`,
		collectionID, string(mediaType), ids.IMDB, ids.TMDB, ids.TVDB)
	return scanItem(row)
}

// GetItem returns one item by id.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, itemSelect+` WHERE id = ?`, id)
	return scanItem(row)
}

const itemSelect = `
	SELECT id, collection_id, title, year, media_type, poster_path, rating,
		imdb_id, tmdb_id, tvdb_id, canonical_key, in_emby, added_at
	FROM collection_items`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var mediaType string
	err := row.Scan(&it.ID, &it.CollectionID, &it.Title, &it.Year, &mediaType,
		&it.PosterPath, &it.Rating, &it.IMDB, &it.TMDB, &it.TVDB,
		&it.CanonicalKey, &it.InEmby, &it.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	it.MediaType = media.MediaType(mediaType)
	return &it, nil
}

// ListItems returns a collection's items in insertion order.
func (s *Store) ListItems(ctx context.Context, collectionID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, itemSelect+` WHERE collection_id = ? ORDER BY added_at, id`,
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteItem removes a single item.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collection_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// DeleteItemsNotIn removes every item of the collection whose canonical key
// is absent from keep, returning the removed items so callers can clean up
// downstream state. An empty keep set removes everything.
func (s *Store) DeleteItemsNotIn(ctx context.Context, collectionID string, keep map[string]struct{}) ([]*Item, error) {
	items, err := s.ListItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	removed := make([]*Item, 0)
	for _, it := range items {
		if _, ok := keep[it.CanonicalKey]; ok {
			continue
		}
		if err := s.DeleteItem(ctx, it.ID); err != nil {
			return removed, err
		}
		removed = append(removed, it)
	}
	return removed, nil
}

// SetItemPresence bulk-updates the in_emby flag for a collection. Keys not
// present in inEmby are marked absent.
func (s *Store) SetItemPresence(ctx context.Context, collectionID string, inEmby map[string]bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE collection_items SET in_emby = 0 WHERE collection_id = ?`, collectionID); err != nil {
		return fmt.Errorf("failed to reset presence: %w", err)
	}
	for key, present := range inEmby {
		if !present {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE collection_items SET in_emby = 1 WHERE collection_id = ? AND canonical_key = ?`,
			collectionID, key); err != nil {
			return fmt.Errorf("failed to mark presence: %w", err)
		}
	}
	return tx.Commit()
}

// ItemCounts returns total and in-Emby item counts for a collection.
func (s *Store) ItemCounts(ctx context.Context, collectionID string) (total, inEmby int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(in_emby), 0)
		FROM collection_items WHERE collection_id = ?`, collectionID)
	if err := row.Scan(&total, &inEmby); err != nil {
		return 0, 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, inEmby, nil
}

// ListRefreshable returns collections whose source can be re-pulled.
func (s *Store) ListRefreshable(ctx context.Context) ([]*Collection, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	refreshable := make([]*Collection, 0, len(all))
	for _, c := range all {
		if c.SourceType.Refreshable() {
			refreshable = append(refreshable, c)
		}
	}
	return refreshable, nil
}
