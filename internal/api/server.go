// Package api wires the HTTP surface together: middleware, route groups,
// and the lifecycle of the underlying echo server.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/api/ratelimit"
	"github.com/collectarr/collectarr/internal/auth"
	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/config"
	"github.com/collectarr/collectarr/internal/dispatch"
	"github.com/collectarr/collectarr/internal/embysync"
	"github.com/collectarr/collectarr/internal/refresh"
	"github.com/collectarr/collectarr/internal/scheduler"
	"github.com/collectarr/collectarr/internal/servers"
	"github.com/collectarr/collectarr/internal/synclog"
	"github.com/collectarr/collectarr/internal/websocket"
)

// Dependencies collects everything the HTTP layer serves. The services are
// constructed and owned by the caller; the server only routes to them.
type Dependencies struct {
	Auth        *auth.Service
	Collections *collection.Service
	Refresh     *refresh.Service
	EmbySync    *embysync.Service
	Servers     *servers.Service
	Dispatch    *dispatch.Service
	SyncLogs    *synclog.Store
	Scheduler   *scheduler.Scheduler
	Hub         *websocket.Hub
}

// Server is the HTTP API server.
type Server struct {
	echo        *echo.Echo
	config      *config.Config
	deps        Dependencies
	authLimiter *ratelimit.AuthLimiter
	logger      zerolog.Logger
}

// NewServer creates a configured API server.
func NewServer(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		config:      cfg,
		deps:        deps,
		authLimiter: ratelimit.NewAuthLimiter(),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.authLimiter.StartCleanup(10 * time.Minute)

	return s
}

// Start begins listening on the configured address. Blocks until the server
// stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.logger.Info().Str("address", addr).Msg("starting HTTP server")
	if err := s.echo.Start(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
