// Package httpx provides the retrying HTTP doer shared by the recognition adapters.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/version"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	maxErrorBodyBytes  = 512
	maxRetryAfter      = 10 * time.Second
)

// Client wraps an *http.Client with retry on transport errors, 429, and 5xx.
type Client struct {
	HTTP        *http.Client
	MaxAttempts int
	BaseBackoff time.Duration
	Logger      *slog.Logger
	Name        string
}

// New constructs a retrying client for one named upstream.
func New(name string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		HTTP:        httpClient,
		MaxAttempts: defaultMaxAttempts,
		BaseBackoff: defaultBackoff,
		Logger:      logger,
		Name:        name,
	}
}

// StatusError reports a non-2xx response that was not retried away.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Do sends req, replaying its body on each retry. The caller owns the returned body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := c.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", version.UserAgent())
	}

	if req.Body != nil && req.GetBody == nil {
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: read request body: %w", c.name(), err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}

	ctx := req.Context()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: request canceled: %w", c.name(), err)
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("%s: reset request body: %w", c.name(), err)
			}
			req.Body = body
		}

		resp, err := httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}

		if err != nil {
			lastErr = err
			c.warn("http retry", "attempt", attempt+1, "max_attempts", attempts, "error", err.Error())
		} else {
			lastErr = readStatusError(c.name(), resp)
			c.warn("http retry", "attempt", attempt+1, "max_attempts", attempts, "status", resp.StatusCode)
		}

		if attempt == attempts-1 {
			break
		}

		if err := sleepWithContext(ctx, retryWait(backoff, attempt, retryAfter)); err != nil {
			return nil, fmt.Errorf("%s: request canceled: %w", c.name(), err)
		}
	}

	return nil, fmt.Errorf("%s: request failed after %d attempts: %w", c.name(), attempts, lastErr)
}

// retryWait prefers the server's Retry-After, capped at maxRetryAfter, over
// exponential backoff.
func retryWait(backoff time.Duration, attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, maxRetryAfter)
	}
	return backoff * time.Duration(1<<attempt)
}

// CheckStatus converts a non-2xx response into a *StatusError and closes its body.
func CheckStatus(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return readStatusError(service, resp)
}

func readStatusError(service string, resp *http.Response) error {
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, false
		}
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

// SleepWithContext waits for delay or until ctx is done.
func SleepWithContext(ctx context.Context, delay time.Duration) error {
	return sleepWithContext(ctx, delay)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) name() string {
	if c.Name == "" {
		return "http"
	}
	return c.Name
}

func (c *Client) warn(msg string, args ...any) {
	if c.Logger == nil {
		return
	}
	c.Logger.Warn(msg, append([]any{"service", c.name()}, args...)...)
}
