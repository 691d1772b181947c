package domain

import "time"

// AuditProvenance distinguishes unattended polling decisions from
// operator-triggered ones.
type AuditProvenance string

const (
	ProvenanceAutomatic AuditProvenance = "automatic"
	ProvenanceManual    AuditProvenance = "manual"
)

// AuditEntry is one applied (or dry-run) state transition.
type AuditEntry struct {
	ID         string
	TicketID   int64
	QueueName  string
	Action     DecisionAction
	OldStatus  TicketStatus
	NewStatus  TicketStatus
	AssigneeID int64
	Provenance AuditProvenance
	Reason     string
	DryRun     bool
	CreatedAt  time.Time
}
