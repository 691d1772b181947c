package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// ProcessTicketRequest payload for the manual processing endpoint.
type ProcessTicketRequest struct {
	QueueName string `json:"queue_name"`
}

// ProcessTicketResponse reports the processing outcome.
type ProcessTicketResponse struct {
	Processed bool                  `json:"processed"`
	Action    domain.DecisionAction `json:"action,omitempty"`
	NewStatus domain.TicketStatus   `json:"new_status,omitempty"`
	Reason    string                `json:"reason,omitempty"`
}

// HistoryResponse combines the suppression record with recent audit entries.
type HistoryResponse struct {
	Entry *StatusHistory `json:"entry"`
	Audit []AuditEntry   `json:"audit"`
}

// StatusHistory mirrors the stored suppression record.
type StatusHistory struct {
	TicketID        int64               `json:"ticket_id"`
	Status          domain.TicketStatus `json:"status"`
	LastProcessedAt time.Time           `json:"last_processed_at"`
	WasProcessed    bool                `json:"was_processed"`
}

// AuditEntry mirrors one applied transition.
type AuditEntry struct {
	ID         string                 `json:"id"`
	Action     domain.DecisionAction  `json:"action"`
	OldStatus  domain.TicketStatus    `json:"old_status"`
	NewStatus  domain.TicketStatus    `json:"new_status"`
	AssigneeID int64                  `json:"assignee_id"`
	Provenance domain.AuditProvenance `json:"provenance"`
	Reason     string                 `json:"reason"`
	DryRun     bool                   `json:"dry_run"`
	CreatedAt  time.Time              `json:"created_at"`
}
