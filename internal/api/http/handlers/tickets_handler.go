package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/helpdesk"
	"github.com/spec-kit/triage-service/internal/processor"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/store"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// mapProcessingError translates helpdesk client failures into the error
// taxonomy the HTTP layer renders.
func mapProcessingError(err error) error {
	switch {
	case errors.Is(err, helpdesk.ErrRateLimited):
		return apperrors.NewRateLimited("helpdesk rate limit reached")
	case errors.Is(err, helpdesk.ErrCircuitOpen):
		return apperrors.NewCircuitOpen("helpdesk circuit breaker open")
	case helpdesk.IsForbidden(err):
		return apperrors.NewForbidden("helpdesk rejected credentials")
	}
	var httpErr *helpdesk.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.NewUpstreamError("ticket processing failed", err)
}

// TicketsHandler exposes manual processing and history lookups.
type TicketsHandler struct {
	processor *processor.Processor
	history   *store.HistoryStore
	audit     repository.AuditRepository
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(proc *processor.Processor, history *store.HistoryStore, audit repository.AuditRepository) *TicketsHandler {
	return &TicketsHandler{processor: proc, history: history, audit: audit}
}

// Process POST /tickets/:id/process. Operator-triggered runs carry manual
// provenance in the audit trail.
func (h *TicketsHandler) Process(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}
	var req dto.ProcessTicketRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.processor.Process(c.Context(), ticketID, req.QueueName, domain.ProvenanceManual)
	if err != nil {
		return mapProcessingError(err)
	}
	return c.JSON(fiber.Map{"data": dto.ProcessTicketResponse{
		Processed: result.Processed,
		Action:    result.Action,
		NewStatus: result.NewStatus,
		Reason:    result.Reason,
	}})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}

	entry, err := h.history.Get(c.Context(), ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}

	response := dto.HistoryResponse{Audit: []dto.AuditEntry{}}
	if entry != nil {
		response.Entry = &dto.StatusHistory{
			TicketID:        entry.TicketID,
			Status:          entry.Status,
			LastProcessedAt: entry.LastProcessedAt,
			WasProcessed:    entry.WasProcessed,
		}
	}
	if h.audit != nil {
		entries, err := h.audit.ListByTicket(c.Context(), ticketID, 20)
		if err != nil {
			return apperrors.MapError(err)
		}
		for _, audit := range entries {
			response.Audit = append(response.Audit, dto.AuditEntry{
				ID:         audit.ID,
				Action:     audit.Action,
				OldStatus:  audit.OldStatus,
				NewStatus:  audit.NewStatus,
				AssigneeID: audit.AssigneeID,
				Provenance: audit.Provenance,
				Reason:     audit.Reason,
				DryRun:     audit.DryRun,
				CreatedAt:  audit.CreatedAt,
			})
		}
	}
	return c.JSON(fiber.Map{"data": response})
}
