package events

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// EventType enumerates published event kinds.
type EventType string

const (
	EventMonitorStarted  EventType = "monitor.started"
	EventMonitorStopped  EventType = "monitor.stopped"
	EventCircuitPaused   EventType = "monitor.circuit_paused"
	EventCircuitResumed  EventType = "monitor.circuit_resumed"
	EventTicketProcessed EventType = "ticket.processed"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID        string
	Type      EventType
	TicketID  int64
	Timestamp time.Time
	Payload   any
}

// TicketProcessedPayload describes one processing outcome, consumed by
// display-refresh callbacks.
type TicketProcessedPayload struct {
	QueueName  string
	Processed  bool
	Action     domain.DecisionAction
	NewStatus  domain.TicketStatus
	Reason     string
	Provenance domain.AuditProvenance
}

// MonitorStoppedPayload carries the finished session record.
type MonitorStoppedPayload struct {
	Session domain.SessionRecord
}
