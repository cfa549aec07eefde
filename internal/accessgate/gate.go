// Package accessgate decides, at the moment a protected route is reached,
// whether the current viewer may see it. The decision is evaluated fresh on
// every request and resolves to exactly one of four outcomes: retry-later,
// login redirect, forbidden, or the protected content.
package accessgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/platform/httpx"
	"github.com/assetverse/assetverse/internal/session"
)

// ReturnToParam carries the originally requested location through the login
// redirect so a successful sign-in can land the user back where they started.
const ReturnToParam = "return_to"

// RoleResolver resolves the authorization category for an email. A returned
// accounts.ErrRoleUnresolved means the account is not yet authorized; any
// other error is a transient lookup failure, never a denial.
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (accounts.Role, error)
}

// Gate wires role gating for HTTP route trees.
type Gate struct {
	Resolver  RoleResolver
	Logger    *slog.Logger
	LoginPath string
	// OnDeny observes non-serving outcomes ("unauthenticated", "pending",
	// "forbidden"); nil means no observation.
	OnDeny func(outcome string)
}

func (g Gate) deny(outcome string) {
	if g.OnDeny != nil {
		g.OnDeny(outcome)
	}
}

// Require gates a route tree to sessions whose resolved role is a member of
// the allowed set.
func (g Gate) Require(allowed ...accounts.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess == nil {
				g.deny("unauthenticated")
				g.redirectToLogin(w, r)
				return
			}

			role, err := g.Resolver.ResolveRole(r.Context(), sess.Email)
			if err != nil {
				// Unresolved and transient failures are both "not yet
				// authorized": report retryable, never forbidden, never a
				// default role.
				if !errors.Is(err, accounts.ErrRoleUnresolved) && g.Logger != nil {
					g.Logger.Error("role resolution failed",
						slog.String("email", sess.Email), slog.Any("error", err))
				}
				g.deny("pending")
				httpx.Problem(w, http.StatusServiceUnavailable,
					"Authorization Pending", "role could not be resolved yet")
				return
			}

			for _, want := range allowed {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}

			g.deny("forbidden")
			httpx.Problem(w, http.StatusForbidden,
				"Forbidden", "your role does not permit this view")
		})
	}
}

// RequireSession gates a route to any authenticated session without a role
// check, for views like the shared profile endpoints.
func (g Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()) == nil {
			g.deny("unauthenticated")
			g.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g Gate) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	login := g.LoginPath
	if login == "" {
		login = "/api/auth/login"
	}
	target := login + "?" + ReturnToParam + "=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}
