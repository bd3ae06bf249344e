package servers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes server management over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates server handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers server routes on the given group. The server
// type ("emby", "radarr", "sonarr") is a path segment.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/:type", h.List)
	g.POST("/:type", h.Create)
	g.POST("/:type/test", h.TestSettings)
	g.GET("/:type/:id", h.Get)
	g.PUT("/:type/:id", h.Update)
	g.DELETE("/:type/:id", h.Delete)
	g.POST("/:type/:id/test", h.TestConnection)
	g.GET("/:type/:id/qualityprofiles", h.QualityProfiles)
	g.GET("/:type/:id/rootfolders", h.RootFolders)
}

// serverRequest is the create/update payload. The API key is writable here
// but never echoed back.
type serverRequest struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	APIKey           string `json:"apiKey"`
	IsDefault        bool   `json:"isDefault"`
	QualityProfileID int    `json:"qualityProfileId"`
	RootFolderPath   string `json:"rootFolderPath"`
}

// serverResponse adds the masked key to the serialized server.
type serverResponse struct {
	*Server
	MaskedAPIKey string `json:"maskedApiKey"`
}

func toResponse(srv *Server) serverResponse {
	return serverResponse{Server: srv, MaskedAPIKey: srv.MaskedAPIKey()}
}

func pathType(c echo.Context) (Type, error) {
	t, ok := ParseType(c.Param("type"))
	if !ok {
		return "", echo.NewHTTPError(http.StatusBadRequest, "unknown server type")
	}
	return t, nil
}

// List handles GET /api/v1/servers/:type
func (h *Handlers) List(c echo.Context) error {
	t, err := pathType(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListByType(c.Request().Context(), t)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]serverResponse, 0, len(list))
	for _, srv := range list {
		out = append(out, toResponse(srv))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /api/v1/servers/:type
func (h *Handlers) Create(c echo.Context) error {
	t, err := pathType(c)
	if err != nil {
		return err
	}
	var req serverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Request().Context(), Server{
		Type: t, Name: req.Name, URL: req.URL, APIKey: req.APIKey,
		IsDefault: req.IsDefault, QualityProfileID: req.QualityProfileID,
		RootFolderPath: req.RootFolderPath,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidServer) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, toResponse(created))
}

// Get handles GET /api/v1/servers/:type/:id
func (h *Handlers) Get(c echo.Context) error {
	if _, err := pathType(c); err != nil {
		return err
	}
	srv, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrServerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toResponse(srv))
}

// Update handles PUT /api/v1/servers/:type/:id
func (h *Handlers) Update(c echo.Context) error {
	t, err := pathType(c)
	if err != nil {
		return err
	}
	var req serverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(c.Request().Context(), Server{
		ID: c.Param("id"), Type: t, Name: req.Name, URL: req.URL,
		APIKey: req.APIKey, IsDefault: req.IsDefault,
		QualityProfileID: req.QualityProfileID, RootFolderPath: req.RootFolderPath,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidServer):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrServerNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, toResponse(updated))
}

// Delete handles DELETE /api/v1/servers/:type/:id
func (h *Handlers) Delete(c echo.Context) error {
	if _, err := pathType(c); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrServerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// TestConnection handles POST /api/v1/servers/:type/:id/test
func (h *Handlers) TestConnection(c echo.Context) error {
	if _, err := pathType(c); err != nil {
		return err
	}
	if err := h.service.TestConnection(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrServerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// TestSettings handles POST /api/v1/servers/:type/test
func (h *Handlers) TestSettings(c echo.Context) error {
	t, err := pathType(c)
	if err != nil {
		return err
	}
	var req serverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err = h.service.TestSettings(c.Request().Context(), Server{
		Type: t, Name: req.Name, URL: req.URL, APIKey: req.APIKey,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidServer) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// QualityProfiles handles GET /api/v1/servers/:type/:id/qualityprofiles
func (h *Handlers) QualityProfiles(c echo.Context) error {
	if _, err := pathType(c); err != nil {
		return err
	}
	profiles, err := h.service.QualityProfiles(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrServerNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrUnsupportedOperation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	}
	return c.JSON(http.StatusOK, profiles)
}

// RootFolders handles GET /api/v1/servers/:type/:id/rootfolders
func (h *Handlers) RootFolders(c echo.Context) error {
	if _, err := pathType(c); err != nil {
		return err
	}
	folders, err := h.service.RootFolders(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrServerNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrUnsupportedOperation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	}
	return c.JSON(http.StatusOK, folders)
}
