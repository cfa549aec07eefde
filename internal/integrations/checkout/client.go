// Package checkout wraps the hosted payment provider. The service requests
// a checkout session URL, hands it to the client for a full-page redirect,
// and later verifies the returned session before recording the payment.
package checkout

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/assetverse/assetverse/internal/platform/gateway"
)

// Provider is the subset of the payment host the service depends on.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifySession(ctx context.Context, sessionID string) (*Session, error)
}

// SessionRequest describes a checkout to be hosted by the provider.
type SessionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CustomerRef string          `json:"customer_ref"`
	SuccessURL  string          `json:"success_url"`
	CancelURL   string          `json:"cancel_url"`
}

// Session is the provider's view of one checkout.
type Session struct {
	ID       string          `json:"id"`
	URL      string          `json:"url"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// Paid reports whether the provider settled the session.
func (s *Session) Paid() bool { return s.Status == "paid" || s.Status == "complete" }

// Client implements Provider over the request gateway with the provider's
// secret key as the bearer credential.
type Client struct {
	gw *gateway.Client
}

// NewClient constructs a Client.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// CreateSession asks the provider to host a checkout and returns the URL the
// client must redirect to.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var sess Session
	if err := c.gw.Do(ctx, http.MethodPost, "/v1/checkout/sessions", req, &sess); err != nil {
		return nil, fmt.Errorf("checkout: create session: %w", err)
	}
	if sess.URL == "" {
		return nil, fmt.Errorf("checkout: provider returned no redirect url")
	}
	return &sess, nil
}

// VerifySession fetches the settled state of a session by ID. Confirmation
// never trusts the success query parameters alone.
func (c *Client) VerifySession(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	if err := c.gw.Do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil, &sess); err != nil {
		return nil, fmt.Errorf("checkout: verify session: %w", err)
	}
	return &sess, nil
}

var _ Provider = (*Client)(nil)
