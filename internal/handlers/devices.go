package handlers

import (
	"errors"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/es"
	"github.com/hvkoch/verleihsystem/internal/events"
	"github.com/hvkoch/verleihsystem/internal/logging"
	"github.com/hvkoch/verleihsystem/internal/models"
	"github.com/hvkoch/verleihsystem/internal/util"
)

type DeviceHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

type deviceRequest struct {
	Name            string `json:"name"`
	InventoryNumber string `json:"inventory_number"`
	DeviceType      string `json:"device_type"`
	ContainerID     *uint  `json:"container_id"`
	Available       *bool  `json:"available"`
	Notes           string `json:"notes"`
}

func (h *DeviceHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Device{}).Count(&total).Error; err != nil {
		return apperr.HTTPError(err)
	}

	var items []models.Device
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return apperr.HTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *DeviceHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var device models.Device
	if err := h.DB.First(&device, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.HTTPError(apperr.ErrNotFound)
		}
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, device)
}

func (h *DeviceHandler) Create(c echo.Context) error {
	var req deviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.InventoryNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and inventory_number are required")
	}

	device := models.Device{
		Name:            req.Name,
		InventoryNumber: req.InventoryNumber,
		DeviceType:      req.DeviceType,
		ContainerID:     req.ContainerID,
		Available:       true,
		Notes:           req.Notes,
	}
	if err := h.DB.Create(&device).Error; err != nil {
		return apperr.HTTPError(err)
	}

	h.index(c, &device)
	recordAudit(c, h.DB, "device_created", device.InventoryNumber)
	publish(c, h.Producer, events.TopicAssets, map[string]any{
		"type":      "device_created",
		"device_id": device.ID,
		"name":      device.Name,
	})
	return c.JSON(http.StatusCreated, device)
}

func (h *DeviceHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req deviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var device models.Device
	if err := h.DB.First(&device, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.HTTPError(apperr.ErrNotFound)
		}
		return apperr.HTTPError(err)
	}

	if req.Name != "" {
		device.Name = req.Name
	}
	if req.InventoryNumber != "" {
		device.InventoryNumber = req.InventoryNumber
	}
	if req.DeviceType != "" {
		device.DeviceType = req.DeviceType
	}
	if req.ContainerID != nil {
		device.ContainerID = req.ContainerID
	}
	if req.Available != nil {
		device.Available = *req.Available
	}
	device.Notes = req.Notes

	if err := h.DB.Save(&device).Error; err != nil {
		return apperr.HTTPError(err)
	}

	h.index(c, &device)
	recordAudit(c, h.DB, "device_updated", device.InventoryNumber)
	publish(c, h.Producer, events.TopicAssets, map[string]any{
		"type":      "device_updated",
		"device_id": device.ID,
		"name":      device.Name,
	})
	return c.JSON(http.StatusOK, device)
}

func (h *DeviceHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.DB.Delete(&models.Device{}, id).Error; err != nil {
		return apperr.HTTPError(err)
	}

	if h.ES != nil {
		if err := es.DeleteDevice(c.Request().Context(), h.ES, h.ESIndex, id); err != nil {
			logging.FromContext(c.Request().Context()).Warn("es delete failed", "device_id", id, "error", err)
		}
	}
	recordAudit(c, h.DB, "device_deleted", c.Param("id"))
	publish(c, h.Producer, events.TopicAssets, map[string]any{
		"type":      "device_deleted",
		"device_id": id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *DeviceHandler) index(c echo.Context, device *models.Device) {
	if h.ES == nil {
		return
	}
	if err := es.IndexDevice(c.Request().Context(), h.ES, h.ESIndex, device); err != nil {
		logging.FromContext(c.Request().Context()).Warn("es index failed", "device_id", device.ID, "error", err)
	}
}
