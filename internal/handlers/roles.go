package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/service"
)

type RoleHandler struct {
	DB  *gorm.DB
	Svc *service.RoleService
}

func (h *RoleHandler) List(c echo.Context) error {
	roles, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, roles)
}

// Permissions returns the recognized permission catalog for the UI.
func (h *RoleHandler) Permissions(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"permissions": authz.Catalog()})
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	role, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, role)
}

type roleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	role, err := h.Svc.Create(c.Request().Context(), req.Name, req.Permissions)
	if err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "role_created", role.Name)
	return c.JSON(http.StatusCreated, role)
}

func (h *RoleHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	role, err := h.Svc.Update(c.Request().Context(), id, req.Name, req.Permissions)
	if err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "role_updated", role.Name)
	return c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "role_deleted", fmt.Sprintf("role %d", id))
	return c.NoContent(http.StatusNoContent)
}
