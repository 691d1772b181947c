package domain

import "time"

// TicketStatus enumerates helpdesk lifecycle states the engine reads or
// writes. StatusRTA is a pseudo-status: it is recorded in processing history
// after a routing-tag reassignment but never sent to the helpdesk.
type TicketStatus string

const (
	TicketStatusNew     TicketStatus = "new"
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusSolved  TicketStatus = "solved"
	TicketStatusRTA     TicketStatus = "rta"
)

// TicketPriority enumerates helpdesk urgency values.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the read-through view of a helpdesk ticket. The helpdesk owns the
// record; the engine caches it only for the duration of one processing cycle.
type Ticket struct {
	ID         int64
	Status     TicketStatus
	Priority   TicketPriority
	AssigneeID int64
	GroupID    int64
	Tags       []string
	Subject    string
	UpdatedAt  time.Time
}

// HasTag reports whether the ticket carries the given tag.
func (t *Ticket) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// TicketUpdate is the mutable subset sent to the helpdesk. Nil fields are
// omitted from the request body.
type TicketUpdate struct {
	Status     *TicketStatus
	AssigneeID *int64
	GroupID    *int64
	Priority   *TicketPriority
}
