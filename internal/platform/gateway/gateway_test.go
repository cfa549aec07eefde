package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/platform/gateway"
)

type rotatingSource struct {
	mu    sync.Mutex
	token string
}

func (s *rotatingSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *rotatingSource) rotate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func TestTransportAttachesFreshToken(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	source := &rotatingSource{token: "first"}
	client := &http.Client{Transport: &gateway.Transport{Source: source}}

	for _, token := range []string{"first", "second"} {
		source.rotate(token)
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	// The token read happens at send time, never at construction.
	require.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

func TestTransportSkipsHeaderWithoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := &http.Client{Transport: &gateway.Transport{Source: gateway.StaticToken("")}}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestStackedTransportsStayIdempotent(t *testing.T) {
	var gotAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Values("Authorization")
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	var failures int
	onFailure := func(context.Context, int) { failures++ }

	inner := &gateway.Transport{Source: gateway.StaticToken("tok"), OnAuthFailure: onFailure}
	outer := &gateway.Transport{Base: inner, Source: gateway.StaticToken("tok"), OnAuthFailure: onFailure}

	client := &http.Client{Transport: outer}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"Bearer tok"}, gotAuth, "double wrap must not duplicate the header")
	require.Equal(t, 1, failures, "auth failure handler must fire once per response")
}

func TestAuthExpiryTearsDownOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	var tornDown int
	client := gateway.New(server.URL, gateway.StaticToken("expired"), gateway.Options{
		OnAuthFailure: func(context.Context, int) { tornDown++ },
	})

	err := client.Do(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.ErrorIs(t, err, gateway.ErrAuthExpired)
	require.Equal(t, 1, tornDown)
}

func TestNetworkFailureSkipsAuthSideEffects(t *testing.T) {
	var tornDown int
	client := gateway.New("http://127.0.0.1:1", gateway.StaticToken("tok"), gateway.Options{
		OnAuthFailure: func(context.Context, int) { tornDown++ },
	})

	err := client.Do(context.Background(), http.MethodGet, "/anything", nil, nil)
	require.ErrorIs(t, err, gateway.ErrUnreachable)
	require.Zero(t, tornDown, "no response must never look like an authorization failure")
}

func TestMalformedBodySurfacesAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"truncated`))
	}))
	t.Cleanup(server.Close)

	client := gateway.New(server.URL, gateway.StaticToken("tok"), gateway.Options{})

	var out map[string]any
	err := client.Do(context.Background(), http.MethodGet, "/", nil, &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, gateway.ErrAuthExpired)
}

func TestUpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := gateway.New(server.URL, gateway.StaticToken("tok"), gateway.Options{})

	err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	var statusErr *gateway.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.Status)
}
