package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("location unavailable")

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
}

type Provider interface {
	CurrentLocation(ctx context.Context, tenantID, userID string) (Coordinates, error)
}

// Static always reports the same coordinates.
type Static struct {
	Coordinates Coordinates
}

func (s Static) CurrentLocation(context.Context, string, string) (Coordinates, error) {
	return s.Coordinates, nil
}

// HTTPProvider calls GET {baseURL}/v1/location.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProvider{baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"), client: client}
}

func (p *HTTPProvider) CurrentLocation(ctx context.Context, tenantID, userID string) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/location", nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("build location request: %w", err)
	}
	q := req.URL.Query()
	q.Set("tenant_id", tenantID)
	q.Set("user_id", userID)
	req.URL.RawQuery = q.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Coordinates{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var coords Coordinates
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&coords); err != nil {
		return Coordinates{}, fmt.Errorf("decode location: %w", err)
	}
	return coords, nil
}
