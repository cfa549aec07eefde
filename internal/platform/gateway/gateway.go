// Package gateway wraps outbound HTTP calls with bearer credential
// attachment and uniform handling of authorization failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrAuthExpired is returned when the remote rejected the credential
	// with 401 or 403. The session teardown side effects have already run.
	ErrAuthExpired = errors.New("gateway: credential rejected")
	// ErrUnreachable is returned when no response was received at all.
	// Authorization side effects never fire for this error.
	ErrUnreachable = errors.New("gateway: remote unreachable")
)

// TokenSource yields the bearer credential for the current session. It is
// consulted at send time for every request so refreshed tokens are always
// picked up. An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource holding a fixed credential.
type StaticToken string

// Token returns the static credential.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// AuthFailureFunc runs when the remote answers 401 or 403. It fires at most
// once per response regardless of how many Transports wrap the request.
type AuthFailureFunc func(ctx context.Context, status int)

type interceptedKey struct{}

// Transport attaches the bearer credential and intercepts authorization
// failures. Stacking multiple Transports is safe: the innermost one that has
// not yet seen the request performs the work, the rest pass through.
type Transport struct {
	Base          http.RoundTripper
	Source        TokenSource
	OnAuthFailure AuthFailureFunc
	Logger        *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	ctx := req.Context()
	if _, done := ctx.Value(interceptedKey{}).(bool); done {
		return base.RoundTrip(req)
	}

	// Clone per the RoundTripper contract; mark the clone so that nested
	// Transports do not attach a second header or double-fire the handler.
	clone := req.Clone(context.WithValue(ctx, interceptedKey{}, true))

	if t.Source != nil {
		token, err := t.Source.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("gateway: token source: %w", err)
		}
		if token != "" {
			clone.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := base.RoundTrip(clone)
	if err != nil {
		// No response: propagate without authorization side effects.
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if t.Logger != nil {
			t.Logger.Warn("outbound credential rejected",
				slog.Int("status", resp.StatusCode),
				slog.String("url", req.URL.Redacted()))
		}
		if t.OnAuthFailure != nil {
			t.OnAuthFailure(ctx, resp.StatusCode)
		}
	}

	return resp, nil
}

// Client is an authenticated JSON client for a single remote base URL.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// Options tune the underlying retrying HTTP client.
type Options struct {
	Timeout       time.Duration
	RetryMax      int
	OnAuthFailure AuthFailureFunc
	Logger        *slog.Logger
}

// New builds a Client whose requests carry the source's current token and
// whose transient transport failures are retried. HTTP-level errors are
// never retried; an authorization failure tears the credential down once.
func New(baseURL string, source TokenSource, opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	} else {
		retryClient.HTTPClient.Timeout = 10 * time.Second
	}
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		return false, nil
	}

	std := retryClient.StandardClient()
	std.Transport = &Transport{
		Base:          std.Transport,
		Source:        source,
		OnAuthFailure: opts.OnAuthFailure,
		Logger:        opts.Logger,
	}

	return &Client{http: std, baseURL: baseURL, logger: opts.Logger}
}

// BaseURL returns the configured remote base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient exposes the configured client for multipart and other
// hand-built requests that still need credential attachment.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Do sends a JSON request and decodes a JSON response into out (when out is
// non-nil). Authorization failures map to ErrAuthExpired, transport failures
// to ErrUnreachable, other non-2xx statuses to a StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthExpired, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Status: resp.StatusCode, Body: string(detail)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response that is not an authorization failure.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: unexpected status %d", e.Status)
}
