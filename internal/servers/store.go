package servers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrInvalidServer  = errors.New("invalid server data")
)

// Store persists external server records.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a server store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "servers").Logger(),
	}
}

const serverColumns = `id, type, name, url, api_key, is_default, quality_profile_id, root_folder_path, created_at, updated_at`

func scanServer(row interface{ Scan(...any) error }) (*Server, error) {
	var s Server
	var typ string
	err := row.Scan(&s.ID, &typ, &s.Name, &s.URL, &s.APIKey, &s.IsDefault,
		&s.QualityProfileID, &s.RootFolderPath, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Type = Type(typ)
	return &s, nil
}

// Create inserts a server. When the new server is flagged default, any
// existing default of the same type is cleared in the same transaction so
// at most one default per type exists.
func (s *Store) Create(ctx context.Context, srv Server) (*Server, error) {
	if !srv.Type.Valid() || srv.Name == "" || srv.URL == "" || srv.APIKey == "" {
		return nil, ErrInvalidServer
	}

	srv.ID = uuid.NewString()
	now := time.Now().UTC()
	srv.CreatedAt = now
	srv.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if srv.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE servers SET is_default = 0 WHERE type = ?`, string(srv.Type)); err != nil {
			return nil, fmt.Errorf("failed to clear default flag: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO servers (`+serverColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		srv.ID, string(srv.Type), srv.Name, srv.URL, srv.APIKey, srv.IsDefault,
		srv.QualityProfileID, srv.RootFolderPath, srv.CreatedAt, srv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert server: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info().Str("id", srv.ID).Str("type", string(srv.Type)).Str("name", srv.Name).Msg("Server added")
	return &srv, nil
}

// Get retrieves a server by ID.
func (s *Store) Get(ctx context.Context, id string) (*Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	srv, err := scanServer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return srv, nil
}

// ListByType returns all servers of one type, defaults first.
func (s *Store) ListByType(ctx context.Context, t Type) ([]*Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+serverColumns+` FROM servers WHERE type = ?
		ORDER BY is_default DESC, name`, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	out := make([]*Server, 0)
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}

// GetDefault returns the default server of a type, or the only configured
// one when no default is flagged.
func (s *Store) GetDefault(ctx context.Context, t Type) (*Server, error) {
	all, err := s.ListByType(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrServerNotFound
	}
	for _, srv := range all {
		if srv.IsDefault {
			return srv, nil
		}
	}
	if len(all) == 1 {
		return all[0], nil
	}
	return nil, ErrServerNotFound
}

// Update modifies a server record. An empty APIKey in the input keeps the
// stored key (the client never has the full key to echo back).
func (s *Store) Update(ctx context.Context, srv Server) (*Server, error) {
	existing, err := s.Get(ctx, srv.ID)
	if err != nil {
		return nil, err
	}
	if srv.APIKey == "" {
		srv.APIKey = existing.APIKey
	}
	if srv.Name == "" || srv.URL == "" {
		return nil, ErrInvalidServer
	}
	srv.Type = existing.Type
	srv.CreatedAt = existing.CreatedAt
	srv.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if srv.IsDefault && !existing.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE servers SET is_default = 0 WHERE type = ?`, string(srv.Type)); err != nil {
			return nil, fmt.Errorf("failed to clear default flag: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE servers
		SET name = ?, url = ?, api_key = ?, is_default = ?, quality_profile_id = ?, root_folder_path = ?, updated_at = ?
		WHERE id = ?`,
		srv.Name, srv.URL, srv.APIKey, srv.IsDefault,
		srv.QualityProfileID, srv.RootFolderPath, srv.UpdatedAt, srv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update server: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &srv, nil
}

// Delete removes a server.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrServerNotFound
	}
	return nil
}
