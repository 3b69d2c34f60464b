package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/events"
	"github.com/hvkoch/verleihsystem/internal/logging"
	authmw "github.com/hvkoch/verleihsystem/internal/middleware/auth"
	"github.com/hvkoch/verleihsystem/internal/service"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Producer *events.Producer
}

type userPayload struct {
	ID                  uint     `json:"id"`
	Username            string   `json:"username"`
	Role                string   `json:"role"`
	Roles               []string `json:"roles"`
	Permissions         []string `json:"permissions"`
	ForcePasswordChange bool     `json:"force_password_change"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}

	publish(c, h.Producer, events.TopicAuth, map[string]any{
		"type":     "user_logged_in",
		"user_id":  res.User.ID,
		"username": res.User.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user": userPayload{
			ID:                  res.User.ID,
			Username:            res.User.Username,
			Role:                res.Claims.Role,
			Roles:               res.Claims.Roles,
			Permissions:         res.Claims.Permissions,
			ForcePasswordChange: res.User.ForcePasswordChange,
		},
	})
}

// Me mirrors the claims of the presented token back to the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	claims := authmw.ClaimsFrom(c)
	if claims == nil {
		return apperr.HTTPError(apperr.ErrNotAuthenticated)
	}
	return c.JSON(http.StatusOK, userPayload{
		ID:          claims.UserID(),
		Username:    claims.Username,
		Role:        claims.Role,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	})
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ChangePassword(ctx, actorID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}
