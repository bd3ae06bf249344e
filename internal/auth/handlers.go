package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes the login flow. These routes stay outside the
// authenticated group.
type Handlers struct {
	service *Service
}

// NewHandlers creates auth handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers auth routes on the given group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.Status)
	g.POST("/setup", h.Setup)
	g.POST("/login", h.Login)
	g.POST("/password", h.ChangePassword)
}

// Status handles GET /api/v1/auth/status
func (h *Handlers) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{
		"passwordSet": h.service.IsPasswordSet(c.Request().Context()),
	})
}

type setupRequest struct {
	Password string `json:"password"`
}

// Setup handles POST /api/v1/auth/setup, the first-run password creation.
func (h *Handlers) Setup(c echo.Context) error {
	if h.service.IsPasswordSet(c.Request().Context()) {
		return echo.NewHTTPError(http.StatusConflict, "password already set")
	}

	var req setupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.SetPassword(c.Request().Context(), req.Password); err != nil {
		if errors.Is(err, ErrPasswordRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.issueToken(c)
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ValidatePassword(c.Request().Context(), req.Password); err != nil {
		switch {
		case errors.Is(err, ErrNoPasswordSet):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return h.issueToken(c)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword handles POST /api/v1/auth/password
func (h *Handlers) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ValidatePassword(c.Request().Context(), req.CurrentPassword); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
	}
	if err := h.service.SetPassword(c.Request().Context(), req.NewPassword); err != nil {
		if errors.Is(err, ErrPasswordRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) issueToken(c echo.Context) error {
	token, err := h.service.GenerateToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
