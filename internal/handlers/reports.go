package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/models"
)

type ReportHandler struct {
	DB *gorm.DB
}

// Create files a defect report for a device. Any authenticated user may
// report; triage is permission-gated.
func (h *ReportHandler) Create(c echo.Context) error {
	var req struct {
		DeviceID    uint   `json:"device_id"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.DeviceID == 0 || req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id and description are required")
	}

	var device models.Device
	if err := h.DB.First(&device, req.DeviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.HTTPError(apperr.ErrNotFound)
		}
		return apperr.HTTPError(err)
	}

	report := models.ErrorReport{
		DeviceID:    req.DeviceID,
		ReporterID:  actorID(c),
		Description: req.Description,
	}
	if err := h.DB.Create(&report).Error; err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) List(c echo.Context) error {
	q := h.DB.Order("created_at DESC")
	if c.QueryParam("open") == "true" {
		q = q.Where("resolved = ?", false)
	}
	var reports []models.ErrorReport
	if err := q.Find(&reports).Error; err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *ReportHandler) Resolve(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var report models.ErrorReport
	if err := h.DB.First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.HTTPError(apperr.ErrNotFound)
		}
		return apperr.HTTPError(err)
	}
	if err := h.DB.Model(&report).Update("resolved", true).Error; err != nil {
		return apperr.HTTPError(err)
	}
	recordAudit(c, h.DB, "report_resolved", c.Param("id"))
	return c.JSON(http.StatusOK, report)
}
