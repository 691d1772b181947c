package domain

import "time"

// StatusHistoryEntry records the last processing attempt for a ticket at a
// given target status. Created on first observation, overwritten on every
// attempt (apply or deliberate skip), deleted only by retention pruning.
type StatusHistoryEntry struct {
	TicketID        int64        `json:"ticket_id"`
	Status          TicketStatus `json:"status"`
	LastProcessedAt time.Time    `json:"last_processed_at"`
	WasProcessed    bool         `json:"was_processed"`
}
