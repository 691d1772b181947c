package helpdesk

import (
	"sync"
	"time"
)

// BreakerStats is a point-in-time snapshot of breaker and rate-window state.
type BreakerStats struct {
	ConsecutiveErrors int       `json:"consecutive_errors"`
	TotalCalls        int64     `json:"total_calls"`
	WindowStart       time.Time `json:"window_start"`
	CallsInWindow     int64     `json:"calls_in_window"`
	Open              bool      `json:"open"`
	OpenUntil         time.Time `json:"open_until,omitempty"`
}

// circuitBreaker tracks consecutive failures and a rolling rate-limit window.
// After threshold consecutive failures it opens for the cooldown period and
// rejects calls without touching the network. Expected outcomes (429, 400) do
// not advance the failure counter.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	window    time.Duration
	now       func() time.Time

	consecutive   int
	openedAt      time.Time
	open          bool
	totalCalls    int64
	windowStart   time.Time
	callsInWindow int64
}

func newCircuitBreaker(threshold int, cooldown, window time.Duration, now func() time.Time) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 120 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &circuitBreaker{
		threshold:   threshold,
		cooldown:    cooldown,
		window:      window,
		now:         now,
		windowStart: now(),
	}
}

// allow reports whether a call may proceed. While open, calls are rejected
// until the cooldown elapses; the first call after the cooldown is attempted
// normally with the failure counter cleared.
func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.open = false
		b.consecutive = 0
	}
	b.rollWindowLocked()
	return true
}

// recordSuccess clears the failure counter and counts the call.
func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
	b.countCallLocked()
}

// recordFailure advances the failure counter and opens the breaker at the
// threshold.
func (b *circuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.countCallLocked()
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.open = true
		b.openedAt = b.now()
	}
}

// recordExpected counts the call without touching the failure counter. Used
// for 429 and 400 responses, which signal upstream policy rather than
// systemic failure.
func (b *circuitBreaker) recordExpected() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.countCallLocked()
}

// resetCycle clears the failure counter after an explicitly successful
// polling cycle.
func (b *circuitBreaker) resetCycle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
}

func (b *circuitBreaker) stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := BreakerStats{
		ConsecutiveErrors: b.consecutive,
		TotalCalls:        b.totalCalls,
		WindowStart:       b.windowStart,
		CallsInWindow:     b.callsInWindow,
		Open:              b.open,
	}
	if b.open {
		stats.OpenUntil = b.openedAt.Add(b.cooldown)
	}
	return stats
}

func (b *circuitBreaker) countCallLocked() {
	b.totalCalls++
	b.rollWindowLocked()
	b.callsInWindow++
}

func (b *circuitBreaker) rollWindowLocked() {
	if b.window <= 0 {
		return
	}
	if b.now().Sub(b.windowStart) >= b.window {
		b.windowStart = b.now()
		b.callsInWindow = 0
	}
}
