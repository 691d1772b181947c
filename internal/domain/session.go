package domain

import "time"

// SessionRecord summarizes one monitoring session, appended when the monitor
// stops. The session-history list is bounded; oldest records fall off.
type SessionRecord struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	Ticks            int64     `json:"ticks"`
	TicketsObserved  int64     `json:"tickets_observed"`
	TicketsProcessed int64     `json:"tickets_processed"`
}

// Duration returns the session length.
func (s SessionRecord) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}
