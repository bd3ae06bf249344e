package refresh

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectarr/collectarr/internal/collection"
)

// Handlers exposes manual refresh triggering over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates refresh handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers refresh routes on the collections group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/:id/refresh", h.Refresh)
}

// Refresh handles POST /api/v1/collections/:id/refresh. The refresh runs in
// the background; clients follow progress over the websocket or by polling.
func (h *Handlers) Refresh(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.StartRefresh(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, collection.ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotRefreshable):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrRefreshInProgress):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"collectionId": id,
		"status":       "started",
	})
}
