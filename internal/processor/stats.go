package processor

import (
	"sync"

	"github.com/spec-kit/triage-service/internal/domain"
)

// SessionStats accumulates in-memory processing counters for the current
// monitoring session.
type SessionStats struct {
	mu        sync.Mutex
	processed int64
	skipped   int64
	errors    int64
	byAction  map[domain.DecisionAction]int64
}

// NewSessionStats initializes empty counters.
func NewSessionStats() *SessionStats {
	return &SessionStats{byAction: make(map[domain.DecisionAction]int64)}
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Processed int64                           `json:"processed"`
	Skipped   int64                           `json:"skipped"`
	Errors    int64                           `json:"errors"`
	ByAction  map[domain.DecisionAction]int64 `json:"by_action"`
}

func (s *SessionStats) recordProcessed(action domain.DecisionAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.byAction[action]++
}

func (s *SessionStats) recordSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

func (s *SessionStats) recordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// Reset clears all counters. Called when a monitoring session starts.
func (s *SessionStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed, s.skipped, s.errors = 0, 0, 0
	s.byAction = make(map[domain.DecisionAction]int64)
}

// Snapshot returns a copy of the counters.
func (s *SessionStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAction := make(map[domain.DecisionAction]int64, len(s.byAction))
	for action, count := range s.byAction {
		byAction[action] = count
	}
	return StatsSnapshot{
		Processed: s.processed,
		Skipped:   s.skipped,
		Errors:    s.errors,
		ByAction:  byAction,
	}
}
