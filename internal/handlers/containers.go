package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/models"
)

type ContainerHandler struct {
	DB *gorm.DB
}

type containerRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func (h *ContainerHandler) List(c echo.Context) error {
	var items []models.Container
	if err := h.DB.Order("name ASC").Find(&items).Error; err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ContainerHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var container models.Container
	if err := h.DB.First(&container, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.HTTPError(apperr.ErrNotFound)
		}
		return apperr.HTTPError(err)
	}

	var devices []models.Device
	if err := h.DB.Where("container_id = ?", container.ID).Find(&devices).Error; err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"container": container, "devices": devices})
}

func (h *ContainerHandler) Create(c echo.Context) error {
	var req containerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	container := models.Container{Name: req.Name, Location: req.Location, Description: req.Description}
	if err := h.DB.Create(&container).Error; err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "container_created", container.Name)
	return c.JSON(http.StatusCreated, container)
}

func (h *ContainerHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req containerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var container models.Container
	if err := h.DB.First(&container, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.HTTPError(apperr.ErrNotFound)
		}
		return apperr.HTTPError(err)
	}
	if req.Name != "" {
		container.Name = req.Name
	}
	container.Location = req.Location
	container.Description = req.Description

	if err := h.DB.Save(&container).Error; err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "container_updated", container.Name)
	return c.JSON(http.StatusOK, container)
}

// Delete removes a container; devices stored in it keep existing and lose
// their container reference.
func (h *ContainerHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).
			Where("container_id = ?", id).
			Update("container_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Container{}, id).Error
	})
	if err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "container_deleted", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
