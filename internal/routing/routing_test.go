package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBackendGetRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/route", r.URL.Path)
		assert.Equal(t, "100 Main St", r.URL.Query().Get("destination"))
		assert.Equal(t, "emergency", r.URL.Query().Get("priority"))
		_, _ = w.Write([]byte(`{"distance":"2.4 mi","duration_seconds":300,"eta":"14:05","traffic_note":"light traffic"}`))
	}))
	defer server.Close()

	route, err := NewHTTPBackend(server.URL, WithHTTPClient(server.Client())).GetRoute(context.Background(), "100 Main St", "emergency")
	require.NoError(t, err)
	assert.Equal(t, Route{Distance: "2.4 mi", DurationSeconds: 300, ETA: "14:05", TrafficNote: "light traffic"}, route)
}

func TestHTTPBackendNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewHTTPBackend(server.URL).GetRoute(context.Background(), "nowhere", "routine")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestHTTPBackendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPBackend(server.URL).GetRoute(context.Background(), "x", "routine")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRouteNotFound)
}

func TestHTTPBackendUnconfigured(t *testing.T) {
	b := NewHTTPBackend("")
	assert.False(t, b.Available())
	_, err := b.GetRoute(context.Background(), "x", "routine")
	assert.Error(t, err)
}
