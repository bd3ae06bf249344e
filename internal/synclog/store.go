package synclog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store persists sync log entries.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a sync log store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "synclog").Logger(),
	}
}

// Create inserts a new log entry. The entry's ID is assigned here; counts
// and status are taken as given (callers classify via Classify).
func (s *Store) Create(ctx context.Context, entry Log) (*Log, error) {
	if entry.ItemsMatched > entry.ItemsTotal {
		return nil, fmt.Errorf("invalid sync log: matched %d > total %d", entry.ItemsMatched, entry.ItemsTotal)
	}

	entry.ID = uuid.NewString()
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, collection_id, server_id, status, items_matched, items_total, items_failed, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CollectionID, entry.ServerID, string(entry.Status),
		entry.ItemsMatched, entry.ItemsTotal, entry.ItemsFailed,
		entry.ErrorMessage, entry.StartedAt, entry.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sync log: %w", err)
	}

	return &entry, nil
}

// List returns entries most-recent-first, optionally filtered by collection.
func (s *Store) List(ctx context.Context, limit int, collectionID string) ([]*Log, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, collection_id, server_id, status, items_matched, items_total, items_failed, error_message, started_at, completed_at
		FROM sync_logs`
	args := []any{}
	if collectionID != "" {
		query += ` WHERE collection_id = ?`
		args = append(args, collectionID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*Log, 0)
	for rows.Next() {
		var l Log
		var status string
		if err := rows.Scan(&l.ID, &l.CollectionID, &l.ServerID, &status,
			&l.ItemsMatched, &l.ItemsTotal, &l.ItemsFailed,
			&l.ErrorMessage, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		l.Status = Status(status)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// Prune deletes entries older than the cutoff and returns the count removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_logs WHERE started_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync logs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info().Int64("removed", n).Time("olderThan", olderThan).Msg("Pruned sync logs")
	}
	return n, nil
}
