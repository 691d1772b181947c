package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/monitor"
	"github.com/spec-kit/triage-service/internal/store"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// MonitorHandler exposes start/stop/status for the view monitor.
type MonitorHandler struct {
	monitor  *monitor.Monitor
	sessions *store.SessionStore
}

// NewMonitorHandler constructs handler.
func NewMonitorHandler(mon *monitor.Monitor, sessions *store.SessionStore) *MonitorHandler {
	return &MonitorHandler{monitor: mon, sessions: sessions}
}

// Start POST /monitor/start.
func (h *MonitorHandler) Start(c *fiber.Ctx) error {
	if err := h.monitor.Start(c.Context()); err != nil {
		if errors.Is(err, monitor.ErrAlreadyRunning) {
			return apperrors.NewConflict("monitoring already running", nil)
		}
		return apperrors.NewUpstreamError("failed to start monitoring", err)
	}
	return c.JSON(fiber.Map{"data": h.monitor.CurrentStatus()})
}

// Stop POST /monitor/stop.
func (h *MonitorHandler) Stop(c *fiber.Ctx) error {
	record, err := h.monitor.Stop(c.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			return apperrors.NewConflict("monitoring not running", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": record})
}

// Status GET /monitor/status.
func (h *MonitorHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.monitor.CurrentStatus()})
}

// Sessions GET /monitor/sessions.
func (h *MonitorHandler) Sessions(c *fiber.Ctx) error {
	records, err := h.sessions.List(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": records})
}
