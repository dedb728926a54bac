// Package fetch provides the shared rate-limited, retrying page fetcher.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"sipwatcher/internal/ports"
)

const (
	defaultRetries  = 3
	baseRetryDelay  = 1500 * time.Millisecond
	maxRetryDelay   = 30 * time.Second
	maxResponseSize = 8 << 20
)

// Error reports an exhausted fetch attempt. Status is zero for transport
// failures that never produced a response.
type Error struct {
	URL     string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

// Client fetches pages with a minimum interval between requests and
// exponential backoff on transient failures.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
	logger     *slog.Logger
}

var _ ports.Fetcher = (*Client)(nil)

// Options tune a Client; zero values fall back to defaults.
type Options struct {
	MinInterval time.Duration
	Timeout     time.Duration
	MaxRetries  int
	UserAgent   string
}

// New builds a fetcher. A nil httpClient gets a timeout-bound default.
func New(httpClient *http.Client, opts Options, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultRetries
	}

	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		maxRetries: retries,
		logger:     logger,
	}
}

// Fetch retrieves the raw markup at url. Transport errors, 5xx and 429
// responses are retried with exponential backoff and jitter; exhaustion
// returns a *Error.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr *Error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, fErr := c.attempt(ctx, url)
		if fErr == nil {
			return body, nil
		}
		lastErr = fErr

		if !retryable(fErr) {
			break
		}
		c.warn("fetch retry", "url", url, "attempt", attempt+1, "status", fErr.Status, "error", fErr.Message)
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, url string) ([]byte, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Message: fmt.Sprintf("build request: %v", err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{URL: url, Status: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{URL: url, Message: fmt.Sprintf("read body: %v", err)}
	}

	return body, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

// retryable treats transport failures, rate limiting and server errors as
// transient; client errors are permanent.
func retryable(e *Error) bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay << (attempt - 1)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}
