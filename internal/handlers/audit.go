package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/models"
	"github.com/hvkoch/verleihsystem/internal/util"
)

type AuditHandler struct {
	DB *gorm.DB
}

func (h *AuditHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.AuditEntry{}).Count(&total).Error; err != nil {
		return apperr.HTTPError(err)
	}

	var entries []models.AuditEntry
	if err := h.DB.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return apperr.HTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": entries,
		"meta": echo.Map{"page": page, "size": limit, "total": total},
	})
}
