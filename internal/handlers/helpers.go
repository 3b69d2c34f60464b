package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/events"
	"github.com/hvkoch/verleihsystem/internal/logging"
	authmw "github.com/hvkoch/verleihsystem/internal/middleware/auth"
	"github.com/hvkoch/verleihsystem/internal/models"
)

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(400, "invalid id")
	}
	return uint(id), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func actorID(c echo.Context) uint {
	id, _ := c.Get(authmw.CtxUserID).(uint)
	return id
}

// publish sends an audit event to Kafka, best-effort. A nil producer (tests,
// broker not configured) is a no-op.
func publish(c echo.Context, p *events.Producer, topic string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key := strconv.FormatUint(uint64(actorID(c)), 10)
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("kafka publish failed", "topic", topic, "error", err)
	}
}

// recordAudit appends to the DB-backed audit log read via logs.view.
func recordAudit(c echo.Context, db *gorm.DB, action, detail string) {
	entry := models.AuditEntry{
		ActorID:   actorID(c),
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := db.WithContext(c.Request().Context()).Create(&entry).Error; err != nil {
		logging.FromContext(c.Request().Context()).Warn("audit write failed", "action", action, "error", err)
	}
}
