package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrRouteNotFound = errors.New("route not found")

type Route struct {
	Distance        string `json:"distance"`
	DurationSeconds int    `json:"duration_seconds"`
	ETA             string `json:"eta"`
	TrafficNote     string `json:"traffic_note,omitempty"`
}

type Backend interface {
	Available() bool
	GetRoute(ctx context.Context, destination, priority string) (Route, error)
}

type Option func(*HTTPBackend)

func WithHTTPClient(client *http.Client) Option {
	return func(b *HTTPBackend) {
		if client != nil {
			b.client = client
		}
	}
}

// HTTPBackend calls GET {baseURL}/v1/route.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string, opts ...Option) *HTTPBackend {
	b := &HTTPBackend{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *HTTPBackend) Available() bool {
	return b != nil && b.baseURL != ""
}

func (b *HTTPBackend) GetRoute(ctx context.Context, destination, priority string) (Route, error) {
	if !b.Available() {
		return Route{}, errors.New("routing backend is not configured")
	}
	q := url.Values{}
	q.Set("destination", destination)
	q.Set("priority", priority)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/route?"+q.Encode(), nil)
	if err != nil {
		return Route{}, fmt.Errorf("build route request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("call routing backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Route{}, ErrRouteNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return Route{}, fmt.Errorf("routing backend status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var route Route
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&route); err != nil {
		return Route{}, fmt.Errorf("decode route: %w", err)
	}
	return route, nil
}
