package embysync

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/servers"
)

// Handlers exposes Emby sync triggering over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates sync handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterCollectionRoutes registers the per-collection sync route on the
// collections group.
func (h *Handlers) RegisterCollectionRoutes(g *echo.Group) {
	g.POST("/:id/sync", h.SyncCollection)
}

// RegisterRoutes registers the global sync routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/emby", h.SyncAll)
	g.POST("/emby/:serverId", h.SyncAllToServer)
}

// SyncCollection handles POST /api/v1/collections/:id/sync
func (h *Handlers) SyncCollection(c echo.Context) error {
	report, err := h.service.SyncCollection(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, collection.ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNoTargetServers):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, report)
}

// SyncAll handles POST /api/v1/sync/emby
func (h *Handlers) SyncAll(c echo.Context) error {
	reports, err := h.service.SyncAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reports)
}

// SyncAllToServer handles POST /api/v1/sync/emby/:serverId
func (h *Handlers) SyncAllToServer(c echo.Context) error {
	logs, err := h.service.SyncAllToServer(c.Request().Context(), c.Param("serverId"))
	if err != nil {
		switch {
		case errors.Is(err, servers.ErrServerNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotEmbyServer):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, logs)
}
