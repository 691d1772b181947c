package helpdesk

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited reports an upstream 429. It is never retried by the client;
// the caller decides whether to skip the cycle or defer the ticket.
var ErrRateLimited = errors.New("helpdesk: rate limited")

// ErrCircuitOpen reports that the consecutive-error breaker is open. No
// network request was made; the condition clears after the cooldown.
var ErrCircuitOpen = errors.New("helpdesk: circuit open")

// HTTPError reports a non-2xx response other than 429.
type HTTPError struct {
	Status   int
	Endpoint string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("helpdesk: %s returned status %d", e.Endpoint, e.Status)
}

// MalformedResponseError reports an undecodable response body. Treated as a
// transient network-class failure for retry and breaker purposes.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("helpdesk: malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsForbidden reports whether the error is an upstream 401/403. Forbidden
// calls are surfaced and never retried.
func IsForbidden(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusForbidden || httpErr.Status == http.StatusUnauthorized
	}
	return false
}

func isBadRequest(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusBadRequest
	}
	return false
}
