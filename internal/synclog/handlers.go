package synclog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for sync log queries.
type Handlers struct {
	store *Store
}

// NewHandlers creates new sync log handlers.
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers the sync log routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
}

// List returns sync log entries, most recent first.
// GET /api/v1/synclogs?limit=&collectionId=
func (h *Handlers) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	collectionID := c.QueryParam("collectionId")

	logs, err := h.store.List(c.Request().Context(), limit, collectionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, logs)
}
