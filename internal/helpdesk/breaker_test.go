package helpdesk

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	current := time.Unix(1000, 0)
	b := newCircuitBreaker(3, 2*time.Minute, time.Minute, func() time.Time { return current })

	for i := 0; i < 2; i++ {
		if !b.allow() {
			t.Fatalf("breaker must stay closed below threshold")
		}
		b.recordFailure()
	}
	if !b.allow() {
		t.Fatalf("breaker must stay closed at threshold-1 failures")
	}
	b.recordFailure()

	if b.allow() {
		t.Fatalf("breaker must reject calls after threshold failures")
	}
	if stats := b.stats(); !stats.Open {
		t.Fatalf("stats must report open")
	}
}

func TestBreakerHalfOpensAfterCooldown(t *testing.T) {
	current := time.Unix(1000, 0)
	b := newCircuitBreaker(1, time.Minute, 0, func() time.Time { return current })

	b.allow()
	b.recordFailure()
	if b.allow() {
		t.Fatalf("breaker must be open immediately after tripping")
	}

	current = current.Add(59 * time.Second)
	if b.allow() {
		t.Fatalf("breaker must stay open within the cooldown")
	}

	current = current.Add(2 * time.Second)
	if !b.allow() {
		t.Fatalf("breaker must allow the first call after the cooldown")
	}
	if stats := b.stats(); stats.Open || stats.ConsecutiveErrors != 0 {
		t.Fatalf("cooldown expiry must clear open state and counter, got %+v", stats)
	}
}

func TestBreakerSuccessClearsCounter(t *testing.T) {
	b := newCircuitBreaker(3, time.Minute, 0, nil)
	b.recordFailure()
	b.recordFailure()
	b.recordSuccess()
	b.recordFailure()
	b.recordFailure()
	if !b.allow() {
		t.Fatalf("success must reset the consecutive counter")
	}
}

func TestBreakerExpectedOutcomesDoNotAdvanceCounter(t *testing.T) {
	b := newCircuitBreaker(2, time.Minute, 0, nil)
	b.recordFailure()
	for i := 0; i < 10; i++ {
		b.recordExpected()
	}
	if !b.allow() {
		t.Fatalf("expected outcomes must not trip the breaker")
	}
	if stats := b.stats(); stats.ConsecutiveErrors != 1 {
		t.Fatalf("counter must be unchanged by expected outcomes, got %d", stats.ConsecutiveErrors)
	}
}

func TestBreakerResetCycle(t *testing.T) {
	b := newCircuitBreaker(3, time.Minute, 0, nil)
	b.recordFailure()
	b.recordFailure()
	b.resetCycle()
	if stats := b.stats(); stats.ConsecutiveErrors != 0 {
		t.Fatalf("resetCycle must clear the counter, got %d", stats.ConsecutiveErrors)
	}
}

func TestBreakerRateWindowRolls(t *testing.T) {
	current := time.Unix(1000, 0)
	b := newCircuitBreaker(5, time.Minute, time.Minute, func() time.Time { return current })

	b.recordSuccess()
	b.recordSuccess()
	if stats := b.stats(); stats.CallsInWindow != 2 {
		t.Fatalf("expected 2 calls in window, got %d", stats.CallsInWindow)
	}

	current = current.Add(61 * time.Second)
	b.recordSuccess()
	stats := b.stats()
	if stats.CallsInWindow != 1 {
		t.Fatalf("window must roll over, got %d calls", stats.CallsInWindow)
	}
	if stats.TotalCalls != 3 {
		t.Fatalf("total calls must accumulate, got %d", stats.TotalCalls)
	}
}
