package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/helpdesk"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/processor"
)

// StatsHandler aggregates session counters, API metrics and breaker state.
type StatsHandler struct {
	stats   *processor.SessionStats
	metrics *observability.Metrics
	client  *helpdesk.Client
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *processor.SessionStats, metrics *observability.Metrics, client *helpdesk.Client) *StatsHandler {
	return &StatsHandler{stats: stats, metrics: metrics, client: client}
}

// Stats GET /stats.
func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	apiCalls, apiErrors, ticketCounts := h.metrics.Snapshot()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"session":       h.stats.Snapshot(),
		"api_calls":     apiCalls,
		"api_errors":    apiErrors,
		"ticket_counts": ticketCounts,
		"breaker":       h.client.BreakerStats(),
	}})
}
