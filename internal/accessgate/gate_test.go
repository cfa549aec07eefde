package accessgate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/accessgate"
	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/session"
)

type stubResolver struct {
	role accounts.Role
	err  error
}

func (s stubResolver) ResolveRole(context.Context, string) (accounts.Role, error) {
	return s.role, s.err
}

func serve(t *testing.T, gate accessgate.Gate, sess *session.Session, allowed ...accounts.Role) *httptest.ResponseRecorder {
	t.Helper()
	var reached bool
	handler := gate.Require(allowed...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/hr/dashboard?tab=assets", nil)
	if sess != nil {
		req = req.WithContext(session.NewContext(req.Context(), sess))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code == http.StatusOK {
		require.True(t, reached, "200 without reaching protected content")
	} else {
		require.False(t, reached, "protected content rendered alongside a non-200 outcome")
	}
	return res
}

func someSession() *session.Session {
	return &session.Session{
		ID:        "s1",
		AccountID: 1,
		Email:     "person@corp.test",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestUnauthenticatedRedirectsToLoginWithReturnTo(t *testing.T) {
	gate := accessgate.Gate{Resolver: stubResolver{}, LoginPath: "/api/auth/login"}

	res := serve(t, gate, nil, accounts.RoleHR)

	require.Equal(t, http.StatusSeeOther, res.Code)
	loc, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/api/auth/login", loc.Path)
	require.Equal(t, "/api/hr/dashboard?tab=assets", loc.Query().Get(accessgate.ReturnToParam))
}

func TestResolvedAllowedRoleServesContent(t *testing.T) {
	gate := accessgate.Gate{Resolver: stubResolver{role: accounts.RoleHR}}
	res := serve(t, gate, someSession(), accounts.RoleHR)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestResolvedDisallowedRoleIsForbidden(t *testing.T) {
	gate := accessgate.Gate{Resolver: stubResolver{role: accounts.RoleEmployee}}
	res := serve(t, gate, someSession(), accounts.RoleHR)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestUnresolvedRoleIsPendingNotForbidden(t *testing.T) {
	gate := accessgate.Gate{Resolver: stubResolver{err: accounts.ErrRoleUnresolved}}
	res := serve(t, gate, someSession(), accounts.RoleHR)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestResolverFailureIsPendingNotForbidden(t *testing.T) {
	// A flaky lookup must never bounce a legitimate user to the forbidden page.
	gate := accessgate.Gate{Resolver: stubResolver{err: errors.New("connection reset")}}
	res := serve(t, gate, someSession(), accounts.RoleHR)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}

// TestOutcomeExhaustiveness walks the session/role state matrix and checks
// that every combination lands on exactly one of the four outcomes.
func TestOutcomeExhaustiveness(t *testing.T) {
	cases := []struct {
		name     string
		sess     *session.Session
		resolver stubResolver
		want     int
	}{
		{"no session", nil, stubResolver{}, http.StatusSeeOther},
		{"no session resolver errored", nil, stubResolver{err: errors.New("down")}, http.StatusSeeOther},
		{"session role pending", someSession(), stubResolver{err: accounts.ErrRoleUnresolved}, http.StatusServiceUnavailable},
		{"session resolver errored", someSession(), stubResolver{err: errors.New("down")}, http.StatusServiceUnavailable},
		{"session role allowed", someSession(), stubResolver{role: accounts.RoleEmployee}, http.StatusOK},
		{"session role not allowed", someSession(), stubResolver{role: accounts.RoleHR}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := accessgate.Gate{Resolver: tc.resolver}
			res := serve(t, gate, tc.sess, accounts.RoleEmployee)
			require.Equal(t, tc.want, res.Code)
		})
	}
}

func TestOnDenyObservesOutcome(t *testing.T) {
	var outcomes []string
	record := func(outcome string) { outcomes = append(outcomes, outcome) }

	gate := accessgate.Gate{Resolver: stubResolver{}, OnDeny: record}
	serve(t, gate, nil, accounts.RoleHR)

	gate = accessgate.Gate{Resolver: stubResolver{err: errors.New("down")}, OnDeny: record}
	serve(t, gate, someSession(), accounts.RoleHR)

	gate = accessgate.Gate{Resolver: stubResolver{role: accounts.RoleEmployee}, OnDeny: record}
	serve(t, gate, someSession(), accounts.RoleHR)

	require.Equal(t, []string{"unauthenticated", "pending", "forbidden"}, outcomes)

	// Served requests are not denials.
	gate = accessgate.Gate{Resolver: stubResolver{role: accounts.RoleHR}, OnDeny: record}
	res := serve(t, gate, someSession(), accounts.RoleHR)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, outcomes, 3)
}

func TestRequireSession(t *testing.T) {
	gate := accessgate.Gate{Resolver: stubResolver{role: accounts.RoleEmployee}}

	handler := gate.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusSeeOther, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req = req.WithContext(session.NewContext(req.Context(), someSession()))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
}
