package helpdesk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/observability"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.HelpdeskConfig{
		BaseURL:          server.URL,
		APIToken:         "test-token",
		CSRFToken:        "csrf-token",
		BreakerThreshold: 3,
	}, zap.NewNop(), observability.NewMetrics())
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client
}

func TestClientSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotCSRF string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCSRF = r.Header.Get("X-CSRF-Token")
		w.Write([]byte(`{}`))
	}))

	status := domain.TicketStatusSolved
	if err := client.UpdateTicket(context.Background(), 42, domain.TicketUpdate{Status: &status}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotCSRF != "csrf-token" {
		t.Fatalf("write requests must carry the anti-forgery token, got %q", gotCSRF)
	}
}

func TestClientOmitsCSRFOnReads(t *testing.T) {
	var gotCSRF string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCSRF = r.Header.Get("X-CSRF-Token")
		w.Write([]byte(`{"views":[]}`))
	}))

	if _, err := client.ListViews(context.Background()); err != nil {
		t.Fatalf("list views failed: %v", err)
	}
	if gotCSRF != "" {
		t.Fatalf("GET requests must not carry the anti-forgery token")
	}
}

func TestClientRetriesOnceOnServerError(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ticket":{"id":7,"status":"open"}}`))
	}))

	ticket, err := client.GetTicket(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if ticket.ID != 7 || ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestClientDoesNotRetryRateLimit(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.GetTicket(context.Background(), 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("rate-limited calls must not be retried, got %d attempts", calls)
	}
	if stats := client.BreakerStats(); stats.ConsecutiveErrors != 0 {
		t.Fatalf("429 must not advance the breaker, got %d", stats.ConsecutiveErrors)
	}
}

func TestClientDoesNotRetryForbidden(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.GetTicket(context.Background(), 1)
	if !IsForbidden(err) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("forbidden calls must not be retried, got %d attempts", calls)
	}
}

func TestClientBadRequestDoesNotAdvanceBreaker(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := client.GetTicket(context.Background(), 1)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if stats := client.BreakerStats(); stats.ConsecutiveErrors != 0 {
		t.Fatalf("400 must not advance the breaker, got %d", stats.ConsecutiveErrors)
	}
}

func TestClientCircuitOpensWithoutNetworkCalls(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	// Threshold 3, each failing call retried once: two calls trip the breaker.
	for i := 0; i < 2; i++ {
		if _, err := client.GetTicket(context.Background(), 1); err == nil {
			t.Fatalf("expected failure")
		}
	}
	before := atomic.LoadInt32(&calls)

	_, err := client.GetTicket(context.Background(), 1)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatalf("open circuit must short-circuit without a network call")
	}
}

func TestClientMalformedResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))

	_, err := client.ListViews(context.Background())
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestClientListViewTicketsPagination(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`{"tickets":[{"id":1,"status":"new"}],"next_page":"page2"}`))
			return
		}
		w.Write([]byte(`{"tickets":[{"id":2,"status":"open"}],"next_page":null}`))
	}))

	tickets, more, err := client.ListViewTickets(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != 1 || !more {
		t.Fatalf("unexpected page 1 result: %v more=%v", tickets, more)
	}

	tickets, more, err = client.ListViewTickets(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != 2 || more {
		t.Fatalf("unexpected page 2 result: %v more=%v", tickets, more)
	}
}

func TestClientGetUserNormalizesRole(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":5,"name":"svc","role":"system"}}`))
	}))

	user, err := client.GetUser(context.Background(), 5)
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if user.Role != domain.UserRoleOther {
		t.Fatalf("unknown roles must normalize to other, got %q", user.Role)
	}
}
