package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/observability"
)

// API is the surface of the external ticketing system the engine consumes.
type API interface {
	ListViews(ctx context.Context) ([]domain.Queue, error)
	ListViewTickets(ctx context.Context, viewID int64, page int) ([]domain.Ticket, bool, error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateTicket(ctx context.Context, id int64, update domain.TicketUpdate) error
}

// Client issues HTTP calls to the ticketing API with a consecutive-error
// circuit breaker and rolling rate-limit bookkeeping.
type Client struct {
	baseURL    string
	apiToken   string
	csrfToken  string
	httpClient *http.Client
	breaker    *circuitBreaker
	retryDelay time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client from configuration.
func NewClient(cfg config.HelpdeskConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiToken:  cfg.APIToken,
		csrfToken: cfg.CSRFToken,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		breaker:    newCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown(), cfg.RateWindow(), nil),
		retryDelay: cfg.RetryDelay(),
		logger:     logger,
		metrics:    metrics,
		sleep:      sleepCtx,
	}
}

// BreakerStats exposes breaker and rate-window state for observability.
func (c *Client) BreakerStats() BreakerStats {
	return c.breaker.stats()
}

// ResetCycle clears the consecutive-error counter after a fully successful
// polling cycle.
func (c *Client) ResetCycle() {
	c.breaker.resetCycle()
}

// viewsResponse mirrors GET /views.
type viewsResponse struct {
	Views []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"views"`
}

// ListViews fetches the configured queue descriptors.
func (c *Client) ListViews(ctx context.Context) ([]domain.Queue, error) {
	var resp viewsResponse
	if err := c.callWithRetry(ctx, http.MethodGet, "/api/v2/views.json", "views", nil, &resp); err != nil {
		return nil, err
	}
	queues := make([]domain.Queue, 0, len(resp.Views))
	for _, view := range resp.Views {
		queues = append(queues, domain.Queue{ID: view.ID, Name: view.Title})
	}
	return queues, nil
}

type ticketPayload struct {
	ID         int64    `json:"id"`
	Status     string   `json:"status"`
	Priority   string   `json:"priority"`
	AssigneeID int64    `json:"assignee_id"`
	GroupID    int64    `json:"group_id"`
	Tags       []string `json:"tags"`
	Subject    string   `json:"subject"`
	UpdatedAt  string   `json:"updated_at"`
}

type viewTicketsResponse struct {
	Tickets  []ticketPayload `json:"tickets"`
	NextPage *string         `json:"next_page"`
}

// ListViewTickets fetches one page of a queue's current membership, newest
// first. The second return value reports whether more pages remain.
func (c *Client) ListViewTickets(ctx context.Context, viewID int64, page int) ([]domain.Ticket, bool, error) {
	path := fmt.Sprintf("/api/v2/views/%d/tickets.json?page=%d&sort_order=desc", viewID, page)
	var resp viewTicketsResponse
	if err := c.callWithRetry(ctx, http.MethodGet, path, "view_tickets", nil, &resp); err != nil {
		return nil, false, err
	}
	tickets := make([]domain.Ticket, 0, len(resp.Tickets))
	for _, payload := range resp.Tickets {
		tickets = append(tickets, toTicket(payload))
	}
	return tickets, resp.NextPage != nil && *resp.NextPage != "", nil
}

type ticketResponse struct {
	Ticket ticketPayload `json:"ticket"`
}

// GetTicket fetches the full live ticket.
func (c *Client) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var resp ticketResponse
	path := fmt.Sprintf("/api/v2/tickets/%d.json", id)
	if err := c.callWithRetry(ctx, http.MethodGet, path, "ticket", nil, &resp); err != nil {
		return nil, err
	}
	ticket := toTicket(resp.Ticket)
	return &ticket, nil
}

type commentsResponse struct {
	Comments []struct {
		ID        int64  `json:"id"`
		AuthorID  int64  `json:"author_id"`
		Body      string `json:"body"`
		HTMLBody  string `json:"html_body"`
		Public    bool   `json:"public"`
		CreatedAt string `json:"created_at"`
	} `json:"comments"`
}

// ListComments fetches a ticket's comment log in API order, newest first.
func (c *Client) ListComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	path := fmt.Sprintf("/api/v2/tickets/%d/comments.json?sort_order=desc", ticketID)
	var resp commentsResponse
	if err := c.callWithRetry(ctx, http.MethodGet, path, "comments", nil, &resp); err != nil {
		return nil, err
	}
	comments := make([]domain.Comment, 0, len(resp.Comments))
	for _, payload := range resp.Comments {
		comments = append(comments, domain.Comment{
			ID:        payload.ID,
			AuthorID:  payload.AuthorID,
			Body:      payload.Body,
			HTMLBody:  payload.HTMLBody,
			Public:    payload.Public,
			CreatedAt: parseTime(payload.CreatedAt),
		})
	}
	return comments, nil
}

type userResponse struct {
	User struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

// GetUser resolves a helpdesk account, including its role.
func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var resp userResponse
	path := fmt.Sprintf("/api/v2/users/%d.json", id)
	if err := c.callWithRetry(ctx, http.MethodGet, path, "user", nil, &resp); err != nil {
		return nil, err
	}
	role := domain.UserRole(resp.User.Role)
	switch role {
	case domain.UserRoleAgent, domain.UserRoleAdmin, domain.UserRoleEndUser:
	default:
		role = domain.UserRoleOther
	}
	return &domain.User{ID: resp.User.ID, Name: resp.User.Name, Role: role}, nil
}

type ticketUpdateBody struct {
	Ticket struct {
		Status     *domain.TicketStatus   `json:"status,omitempty"`
		AssigneeID *int64                 `json:"assignee_id,omitempty"`
		GroupID    *int64                 `json:"group_id,omitempty"`
		Priority   *domain.TicketPriority `json:"priority,omitempty"`
	} `json:"ticket"`
}

// UpdateTicket issues the PUT carrying status/assignee/group/priority changes.
// The anti-forgery token header is required by the upstream for writes.
func (c *Client) UpdateTicket(ctx context.Context, id int64, update domain.TicketUpdate) error {
	var body ticketUpdateBody
	body.Ticket.Status = update.Status
	body.Ticket.AssigneeID = update.AssigneeID
	body.Ticket.GroupID = update.GroupID
	body.Ticket.Priority = update.Priority
	path := fmt.Sprintf("/api/v2/tickets/%d.json", id)
	return c.callWithRetry(ctx, http.MethodPut, path, "ticket_update", &body, nil)
}

// callWithRetry retries exactly once, only for network-class failures, after
// a fixed delay. Rate-limited, circuit-open and forbidden outcomes are never
// retried at this layer.
func (c *Client) callWithRetry(ctx context.Context, method, path, endpoint string, body, out any) error {
	err := c.call(ctx, method, path, endpoint, body, out)
	if err == nil || !retryable(err) {
		return err
	}
	c.logger.Warn("helpdesk call failed, retrying once",
		zap.String("endpoint", endpoint),
		zap.Error(err))
	if sleepErr := c.sleep(ctx, c.retryDelay); sleepErr != nil {
		return sleepErr
	}
	return c.call(ctx, method, path, endpoint, body, out)
}

func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrCircuitOpen):
		return false
	case IsForbidden(err), isBadRequest(err):
		return false
	}
	return true
}

// call performs one HTTP round trip with breaker accounting.
func (c *Client) call(ctx context.Context, method, path, endpoint string, body, out any) error {
	if !c.breaker.allow() {
		c.metrics.RecordAPIError(endpoint, "CIRCUIT_OPEN")
		return ErrCircuitOpen
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.csrfToken != "" {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.recordFailure()
		c.metrics.RecordAPIError(endpoint, "NETWORK")
		return fmt.Errorf("helpdesk: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.breaker.recordExpected()
		c.metrics.RecordAPIError(endpoint, "RATE_LIMITED")
		return ErrRateLimited
	case resp.StatusCode == http.StatusBadRequest:
		c.breaker.recordExpected()
		c.metrics.RecordAPIError(endpoint, "BAD_REQUEST")
		return &HTTPError{Status: resp.StatusCode, Endpoint: endpoint}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.breaker.recordFailure()
		c.metrics.RecordAPIError(endpoint, fmt.Sprintf("HTTP_%d", resp.StatusCode))
		return &HTTPError{Status: resp.StatusCode, Endpoint: endpoint}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.breaker.recordFailure()
			c.metrics.RecordAPIError(endpoint, "MALFORMED")
			return &MalformedResponseError{Endpoint: endpoint, Err: err}
		}
	}

	c.breaker.recordSuccess()
	c.metrics.RecordAPICall(endpoint)
	return nil
}

func toTicket(payload ticketPayload) domain.Ticket {
	return domain.Ticket{
		ID:         payload.ID,
		Status:     domain.TicketStatus(payload.Status),
		Priority:   domain.TicketPriority(payload.Priority),
		AssigneeID: payload.AssigneeID,
		GroupID:    payload.GroupID,
		Tags:       payload.Tags,
		Subject:    payload.Subject,
		UpdatedAt:  parseTime(payload.UpdatedAt),
	}
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
