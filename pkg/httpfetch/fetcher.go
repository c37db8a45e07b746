// Package httpfetch provides the retrying HTTP client spec.md §4.1/§4.9/§5
// implies: per-vendor User-Agent, per-operation timeouts, and bounded retry
// on transient failures.
//
// Grounded on the teacher's pkg/mcp/client.go / recovery.go retry-with-
// backoff shape, but using github.com/avast/retry-go (a real corpus
// dependency whose job is exactly this) instead of hand-rolling the loop.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	retry "github.com/avast/retry-go"
)

// Timeouts per spec.md §5.
const (
	ListingTimeout  = 10 * time.Second
	PDFTimeout      = 60 * time.Second
	FallbackTimeout = 30 * time.Second
)

const maxAttempts = 3

// Fetcher is a retrying HTTP client with a configurable per-vendor User-
// Agent.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a Fetcher. timeout bounds each individual attempt; retries use
// the same timeout per attempt, not a shared deadline, so the overall call
// can take up to maxAttempts*timeout in the worst case.
func New(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// HTTPTransientError marks a retryable transport-level failure (spec.md
// §7): timeouts, 5xx, and connection resets.
type HTTPTransientError struct {
	StatusCode int
	Inner      error
}

func (e *HTTPTransientError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("transient HTTP error (status %d): %v", e.StatusCode, e.Inner)
	}
	return fmt.Sprintf("transient HTTP error (status %d)", e.StatusCode)
}

func (e *HTTPTransientError) Unwrap() error { return e.Inner }

// Retryable satisfies the Queue.Fail retryable-flag convention (spec.md §7).
func (e *HTTPTransientError) Retryable() bool { return true }

// Get performs a GET request, making up to three attempts in total on
// transient failures, with exponential backoff (spec.md §7: "Retried with exponential backoff
// inside HTTPFetcher, up to 3 tries").
func (f *Fetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", f.userAgent)

			r, err := f.client.Do(req)
			if err != nil {
				return &HTTPTransientError{Inner: err}
			}
			if r.StatusCode >= 500 {
				body, _ := io.ReadAll(io.LimitReader(r.Body, 512))
				_ = r.Body.Close()
				return &HTTPTransientError{StatusCode: r.StatusCode, Inner: fmt.Errorf("%s", body)}
			}
			resp = r
			return nil
		},
		retry.Attempts(maxAttempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("httpfetch: retrying request", "attempt", n+1, "url", url, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBytes performs Get and reads the full response body.
func (f *Fetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
