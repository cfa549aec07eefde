package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func postLogin(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	f := newAuthFixture(t)
	h := NewHandler(slog.New(slog.DiscardHandler), f.svc)

	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestLoginValidationNamesTheFailingField(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing password", `{"email":"hr@example.com"}`, "Password is required."},
		{"missing email", `{"password":"Sup3r!pass"}`, "Email is required."},
		{"malformed email", `{"email":"not-an-address","password":"Sup3r!pass"}`, "That email address doesn't look right."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := postLogin(t, tc.body)
			require.Equal(t, http.StatusBadRequest, res.Code)
			require.Contains(t, res.Body.String(), tc.want)
		})
	}
}
