package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/events"
	"github.com/hvkoch/verleihsystem/internal/models"
)

type LendingHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *LendingHandler) List(c echo.Context) error {
	q := h.DB.Order("started_at DESC")
	if c.QueryParam("open") == "true" {
		q = q.Where("returned_at IS NULL")
	}
	var items []models.Lending
	if err := q.Find(&items).Error; err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// Mine lists the caller's own lendings.
func (h *LendingHandler) Mine(c echo.Context) error {
	var items []models.Lending
	if err := h.DB.Where("user_id = ?", actorID(c)).
		Order("started_at DESC").
		Find(&items).Error; err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// Create lends a device out. The device is marked unavailable in the same
// transaction that records the lending.
func (h *LendingHandler) Create(c echo.Context) error {
	var req struct {
		DeviceID     uint       `json:"device_id"`
		UserID       uint       `json:"user_id"`
		BorrowerName string     `json:"borrower_name"`
		DueAt        *time.Time `json:"due_at"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.DeviceID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id is required")
	}

	userID := req.UserID
	if userID == 0 {
		userID = actorID(c)
	}
	dueAt := time.Now().Add(7 * 24 * time.Hour)
	if req.DueAt != nil {
		dueAt = *req.DueAt
	}

	lending := models.Lending{
		DeviceID:     req.DeviceID,
		UserID:       userID,
		BorrowerName: req.BorrowerName,
		StartedAt:    time.Now(),
		DueAt:        dueAt,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var device models.Device
		if err := tx.First(&device, req.DeviceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if !device.Available {
			return echo.NewHTTPError(http.StatusConflict, "device is not available")
		}
		if err := tx.Model(&device).Update("available", false).Error; err != nil {
			return err
		}
		return tx.Create(&lending).Error
	})
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return apperr.HTTPError(err)
	}

	recordAudit(c, h.DB, "lending_created", lending.BorrowerName)
	publish(c, h.Producer, events.TopicLendings, map[string]any{
		"type":       "lending_created",
		"lending_id": lending.ID,
		"device_id":  lending.DeviceID,
	})
	return c.JSON(http.StatusCreated, lending)
}

// Return closes a lending and frees the device, atomically.
func (h *LendingHandler) Return(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var lending models.Lending
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lending, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if lending.ReturnedAt != nil {
			return echo.NewHTTPError(http.StatusConflict, "lending already returned")
		}
		now := time.Now()
		lending.ReturnedAt = &now
		if err := tx.Save(&lending).Error; err != nil {
			return err
		}
		return tx.Model(&models.Device{}).
			Where("id = ?", lending.DeviceID).
			Update("available", true).Error
	})
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return apperr.HTTPError(err)
	}

	recordAudit(c, h.DB, "lending_returned", c.Param("id"))
	publish(c, h.Producer, events.TopicLendings, map[string]any{
		"type":       "lending_returned",
		"lending_id": lending.ID,
		"device_id":  lending.DeviceID,
	})
	return c.JSON(http.StatusOK, lending)
}
