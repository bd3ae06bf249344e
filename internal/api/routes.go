package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apimw "github.com/collectarr/collectarr/internal/api/middleware"
	"github.com/collectarr/collectarr/internal/auth"
	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/dispatch"
	"github.com/collectarr/collectarr/internal/embysync"
	"github.com/collectarr/collectarr/internal/refresh"
	"github.com/collectarr/collectarr/internal/servers"
	"github.com/collectarr/collectarr/internal/synclog"
)

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Security headers
	s.echo.Use(apimw.SecurityHeaders())

	// Request body size limit (2MB)
	s.echo.Use(middleware.BodyLimit("2M"))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	v1 := s.echo.Group("/api/v1")

	// Auth routes stay outside the protected group so login and first-run
	// setup can reach them. Rate limited per client IP.
	authGroup := v1.Group("/auth", s.authLimiter.Middleware())
	auth.NewHandlers(s.deps.Auth).RegisterRoutes(authGroup)

	protected := v1.Group("", s.deps.Auth.Middleware())

	collections := protected.Group("/collections")
	collection.NewHandlers(s.deps.Collections).RegisterRoutes(collections)
	refresh.NewHandlers(s.deps.Refresh).RegisterRoutes(collections)

	embyHandlers := embysync.NewHandlers(s.deps.EmbySync)
	embyHandlers.RegisterCollectionRoutes(collections)
	embyHandlers.RegisterRoutes(protected.Group("/sync"))

	servers.NewHandlers(s.deps.Servers).RegisterRoutes(protected.Group("/servers"))

	dispatch.NewHandlers(s.deps.Dispatch).RegisterRoutes(
		protected.Group("/requests"),
		protected.Group("/inventory"),
	)

	synclog.NewHandlers(s.deps.SyncLogs).RegisterRoutes(protected.Group("/synclogs"))

	tasks := protected.Group("/system/tasks")
	tasks.GET("", s.listTasks)
	tasks.GET("/:id", s.getTask)
	tasks.POST("/:id/run", s.runTask)

	protected.GET("/ws", s.deps.Hub.HandleWebSocket)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
