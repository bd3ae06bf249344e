package servers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

var ErrUnsupportedOperation = errors.New("operation not supported for this server type")

// QualityProfile is a download manager quality profile, normalized across
// Radarr and Sonarr.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a download manager root folder.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// Prober is the type-independent view of a remote server used for
// connection tests and configuration discovery.
type Prober interface {
	Test(ctx context.Context) error
	QualityProfiles(ctx context.Context) ([]QualityProfile, error)
	RootFolders(ctx context.Context) ([]RootFolder, error)
}

// ProberFactory builds a prober for a configured server.
type ProberFactory func(srv *Server) Prober

// Service owns server management rules on top of the store.
type Service struct {
	store   *Store
	factory ProberFactory
	logger  zerolog.Logger
}

// NewService creates a servers service.
func NewService(store *Store, factory ProberFactory, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		factory: factory,
		logger:  logger.With().Str("component", "servers").Logger(),
	}
}

func validate(srv Server) error {
	if !srv.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidServer, srv.Type)
	}
	if srv.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidServer)
	}
	if srv.APIKey == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidServer)
	}
	u, err := url.Parse(srv.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute", ErrInvalidServer)
	}
	return nil
}

// Create validates and persists a new server.
func (s *Service) Create(ctx context.Context, srv Server) (*Server, error) {
	if err := validate(srv); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, srv)
}

// Update validates and persists changes. An empty API key keeps the stored
// one, so the UI never has to echo the secret back.
func (s *Service) Update(ctx context.Context, srv Server) (*Server, error) {
	if srv.APIKey == "" {
		existing, err := s.store.Get(ctx, srv.ID)
		if err != nil {
			return nil, err
		}
		srv.APIKey = existing.APIKey
	}
	if err := validate(srv); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, srv)
}

// Get returns one server.
func (s *Service) Get(ctx context.Context, id string) (*Server, error) {
	return s.store.Get(ctx, id)
}

// ListByType returns all servers of one type, defaults first.
func (s *Service) ListByType(ctx context.Context, t Type) ([]*Server, error) {
	return s.store.ListByType(ctx, t)
}

// Delete removes a server.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// TestConnection verifies the stored server is reachable with its key.
func (s *Service) TestConnection(ctx context.Context, id string) error {
	srv, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.factory(srv).Test(ctx)
}

// TestSettings verifies unsaved settings, used by the create/edit form.
func (s *Service) TestSettings(ctx context.Context, srv Server) error {
	if err := validate(srv); err != nil {
		return err
	}
	return s.factory(&srv).Test(ctx)
}

// QualityProfiles lists the quality profiles of a Radarr or Sonarr server.
func (s *Service) QualityProfiles(ctx context.Context, id string) ([]QualityProfile, error) {
	srv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if srv.Type == TypeEmby {
		return nil, ErrUnsupportedOperation
	}
	return s.factory(srv).QualityProfiles(ctx)
}

// RootFolders lists the root folders of a Radarr or Sonarr server.
func (s *Service) RootFolders(ctx context.Context, id string) ([]RootFolder, error) {
	srv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if srv.Type == TypeEmby {
		return nil, ErrUnsupportedOperation
	}
	return s.factory(srv).RootFolders(ctx)
}
