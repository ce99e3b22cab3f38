// Package fetch retrieves provider responses over HTTP.
//
// The client is deliberately thin: one GET per locator, no retries. A
// caller that loses interest cancels the request through its context; the
// input controller does this whenever a newer locator supersedes an
// in-flight one.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single provider round-trip.
const DefaultTimeout = 10 * time.Second

// TransportError reports a failed retrieval: either a non-2xx HTTP status
// or an underlying network error.
type TransportError struct {
	Locator string
	Status  int   // HTTP status code, 0 when the request never completed
	Err     error // underlying error, nil for status failures
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.Locator, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client performs provider requests.
type Client struct {
	http *http.Client
}

// NewClient creates a Client. A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Get retrieves the body at locator. Any failure is reported as a
// *TransportError; context cancellation surfaces through its Err.
func (c *Client) Get(ctx context.Context, locator string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", &TransportError{Locator: locator, Err: err}
	}
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{Locator: locator, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Locator: locator, Err: err}
	}

	return string(body), nil
}
