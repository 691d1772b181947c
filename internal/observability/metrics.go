package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for API calls and ticket
// processing outcomes.
type Metrics struct {
	mu           sync.Mutex
	apiCalls     map[string]int64
	apiErrors    map[string]int64
	ticketCounts map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		apiCalls:     make(map[string]int64),
		apiErrors:    make(map[string]int64),
		ticketCounts: make(map[string]int64),
	}
}

// RecordAPICall increments the counter for a helpdesk endpoint.
func (m *Metrics) RecordAPICall(endpoint string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiCalls[endpoint]++
}

// RecordAPIError increments error counters keyed by endpoint and error code.
func (m *Metrics) RecordAPIError(endpoint, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiErrors[endpoint+"|"+code]++
}

// RecordTicketOutcome increments counters keyed by processing category and
// outcome (processed, skipped, error).
func (m *Metrics) RecordTicketOutcome(category, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketCounts[category+"|"+outcome]++
}

// Snapshot returns copies of all counter maps.
func (m *Metrics) Snapshot() (apiCalls, apiErrors, ticketCounts map[string]int64) {
	if m == nil {
		return nil, nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCounts(m.apiCalls), copyCounts(m.apiErrors), copyCounts(m.ticketCounts)
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
