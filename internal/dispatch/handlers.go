package dispatch

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/servers"
)

// Handlers exposes download request dispatch over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates dispatch handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers request and inventory routes.
func (h *Handlers) RegisterRoutes(requests, inventory *echo.Group) {
	requests.POST("/radarr/:serverId", h.RequestMovie)
	requests.POST("/sonarr/:serverId", h.RequestSeries)
	inventory.GET("/radarr/:serverId", h.RadarrInventory)
	inventory.GET("/sonarr/:serverId", h.SonarrInventory)
}

type dispatchRequest struct {
	ItemID       string `json:"itemId"`
	CollectionID string `json:"collectionId"`
}

// RequestMovie handles POST /api/v1/requests/radarr/:serverId
// The body names either a single item or a whole collection.
func (h *Handlers) RequestMovie(c echo.Context) error {
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	serverID := c.Param("serverId")

	if req.CollectionID != "" {
		outcomes, err := h.service.DispatchMissingMovies(ctx, serverID, req.CollectionID)
		if err != nil {
			return dispatchError(err)
		}
		return c.JSON(http.StatusOK, outcomes)
	}
	if req.ItemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "itemId or collectionId is required")
	}

	outcome, err := h.service.DispatchMovie(ctx, serverID, req.ItemID)
	if err != nil {
		return dispatchError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// RequestSeries handles POST /api/v1/requests/sonarr/:serverId
func (h *Handlers) RequestSeries(c echo.Context) error {
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	serverID := c.Param("serverId")

	if req.CollectionID != "" {
		outcomes, err := h.service.DispatchMissingSeries(ctx, serverID, req.CollectionID)
		if err != nil {
			return dispatchError(err)
		}
		return c.JSON(http.StatusOK, outcomes)
	}
	if req.ItemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "itemId or collectionId is required")
	}

	outcome, err := h.service.DispatchSeries(ctx, serverID, req.ItemID)
	if err != nil {
		return dispatchError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// RadarrInventory handles GET /api/v1/inventory/radarr/:serverId
func (h *Handlers) RadarrInventory(c echo.Context) error {
	ids, err := h.service.RadarrInventory(c.Request().Context(), c.Param("serverId"))
	if err != nil {
		return dispatchError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tmdbIds": ids})
}

// SonarrInventory handles GET /api/v1/inventory/sonarr/:serverId
func (h *Handlers) SonarrInventory(c echo.Context) error {
	ids, err := h.service.SonarrInventory(c.Request().Context(), c.Param("serverId"))
	if err != nil {
		return dispatchError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tvdbIds": ids})
}

func dispatchError(err error) error {
	switch {
	case errors.Is(err, collection.ErrItemNotFound),
		errors.Is(err, collection.ErrCollectionNotFound),
		errors.Is(err, servers.ErrServerNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMissingIdentifier),
		errors.Is(err, ErrWrongMediaType),
		errors.Is(err, ErrWrongServerType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
