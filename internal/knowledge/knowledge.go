package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// None retrieves nothing.
type None struct{}

func (None) Retrieve(context.Context, string) ([]string, error) { return nil, nil }

// HTTPRetriever calls POST {baseURL}/v1/retrieve.
type HTTPRetriever struct {
	baseURL string
	client  *http.Client
	limit   int
}

func NewHTTPRetriever(baseURL string, client *http.Client) *HTTPRetriever {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPRetriever{baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"), client: client, limit: 3}
}

type retrieveRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type retrieveResponse struct {
	Snippets []string `json:"snippets"`
}

func (r *HTTPRetriever) Retrieve(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(retrieveRequest{Query: query, Limit: r.limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/retrieve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build retrieve request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call knowledge backend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("knowledge backend status %d", resp.StatusCode)
	}

	var parsed retrieveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode retrieve response: %w", err)
	}
	out := make([]string, 0, len(parsed.Snippets))
	for _, s := range parsed.Snippets {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
