package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/events"
	"github.com/hvkoch/verleihsystem/internal/service"
)

type UserHandler struct {
	DB       *gorm.DB
	Svc      *service.UserService
	Producer *events.Producer
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Create(c echo.Context) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		RoleIDs   []uint `json:"role_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Create(c.Request().Context(), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleIDs:   req.RoleIDs,
	})
	if err != nil {
		return apperr.HTTPError(err)
	}

	recordAudit(c, h.DB, "user_created", user.Username)
	publish(c, h.Producer, events.TopicAuth, map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		Email     *string `json:"email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Update(c.Request().Context(), id, service.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.SetActive(c.Request().Context(), id, req.Active); err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "user_active_changed", fmt.Sprintf("user %d active=%t", id, req.Active))
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": req.Active})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "user_deleted", fmt.Sprintf("user %d", id))
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) AssignRoles(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		RoleIDs []uint `json:"role_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.AssignRoles(c.Request().Context(), id, req.RoleIDs); err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "user_roles_assigned", fmt.Sprintf("user %d", id))
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role_ids": req.RoleIDs})
}

func (h *UserHandler) Grant(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		Permission string `json:"permission"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Grant(c.Request().Context(), id, req.Permission); err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "permission_granted", fmt.Sprintf("user %d: %s", id, req.Permission))
	return c.JSON(http.StatusOK, echo.Map{"id": id, "permission": req.Permission})
}

func (h *UserHandler) Revoke(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	permission := c.Param("permission")

	if err := h.Svc.Revoke(c.Request().Context(), id, permission); err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "permission_revoked", fmt.Sprintf("user %d: %s", id, permission))
	return c.NoContent(http.StatusNoContent)
}
