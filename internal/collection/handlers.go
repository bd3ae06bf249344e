package collection

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectarr/collectarr/internal/media"
)

// Handlers exposes collection CRUD over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates collection handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers collection routes on the given group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/stats", h.Stats)
	g.GET("/:id/items", h.ListItems)
	g.POST("/:id/items", h.AddItem)
	g.DELETE("/:id/items/:itemId", h.RemoveItem)
}

// List handles GET /api/v1/collections
func (h *Handlers) List(c echo.Context) error {
	collections, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, collections)
}

// Create handles POST /api/v1/collections
func (h *Handlers) Create(c echo.Context) error {
	var col Collection
	if err := c.Bind(&col); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Request().Context(), &col)
	if err != nil {
		if errors.Is(err, ErrInvalidCollection) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/v1/collections/:id
func (h *Handlers) Get(c echo.Context) error {
	col, err := h.service.GetWithItems(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, struct {
		*Collection
		Refreshing bool `json:"refreshing"`
	}{col, h.service.Refreshing(col.ID)})
}

// Update handles PUT /api/v1/collections/:id
func (h *Handlers) Update(c echo.Context) error {
	var col Collection
	if err := c.Bind(&col); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	col.ID = c.Param("id")

	updated, err := h.service.Update(c.Request().Context(), &col)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCollection):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/collections/:id
func (h *Handlers) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats handles GET /api/v1/collections/:id/stats
func (h *Handlers) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// ListItems handles GET /api/v1/collections/:id/items
func (h *Handlers) ListItems(c echo.Context) error {
	col, err := h.service.GetWithItems(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, col.Items)
}

type addItemRequest struct {
	Title     string          `json:"title"`
	Year      int             `json:"year"`
	MediaType media.MediaType `json:"mediaType"`
	ImdbID    string          `json:"imdbId"`
	TmdbID    int             `json:"tmdbId"`
	TvdbID    int             `json:"tvdbId"`
}

// AddItem handles POST /api/v1/collections/:id/items
func (h *Handlers) AddItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, err := h.service.AddItem(c.Request().Context(), c.Param("id"), media.RawEntry{
		Title:     req.Title,
		Year:      req.Year,
		MediaType: req.MediaType,
		IDs:       media.ExternalIDs{IMDB: req.ImdbID, TMDB: req.TmdbID, TVDB: req.TvdbID},
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCollection):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, item)
}

// RemoveItem handles DELETE /api/v1/collections/:id/items/:itemId
func (h *Handlers) RemoveItem(c echo.Context) error {
	err := h.service.RemoveItem(c.Request().Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}
