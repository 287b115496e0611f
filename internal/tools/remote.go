package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/ids"
)

const toolProtocolVersion = "v1"

type HostConfig struct {
	Name    string
	BaseURL string
}

type toolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type discoveryResponse struct {
	Version string           `json:"version"`
	Service string           `json:"service"`
	Tools   []toolDescriptor `json:"tools"`
}

type callRequest struct {
	Version  string         `json:"version"`
	CallID   string         `json:"call_id"`
	ToolName string         `json:"tool_name"`
	TenantID string         `json:"tenant_id,omitempty"`
	Args     map[string]any `json:"args"`
}

type callError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type callResponse struct {
	Version  string         `json:"version"`
	CallID   string         `json:"call_id"`
	ToolName string         `json:"tool_name"`
	Status   string         `json:"status"`
	Result   map[string]any `json:"result,omitempty"`
	Error    *callError     `json:"error,omitempty"`
}

// RemoteHost discovers tools on HTTP tool hosts and registers a proxy for
// each one into a Registry.
type RemoteHost struct {
	hosts      []HostConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*RemoteHost)

func WithHTTPClient(client *http.Client) Option {
	return func(h *RemoteHost) {
		if client != nil {
			h.httpClient = client
		}
	}
}

func NewRemoteHost(logger *zap.Logger, hosts []HostConfig, opts ...Option) *RemoteHost {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &RemoteHost{
		hosts:      normalizeHosts(hosts),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Discover queries every host and registers what it finds. Unreachable hosts
// are logged and skipped. On duplicate names the last host wins.
func (h *RemoteHost) Discover(ctx context.Context, registry *Registry) (int, error) {
	registered := 0
	for _, host := range h.hosts {
		if err := ctx.Err(); err != nil {
			return registered, err
		}
		descriptors, err := h.discoverHost(ctx, host)
		if err != nil {
			h.logger.Warn("tool discovery failed", zap.String("host", host.Name), zap.Error(err))
			continue
		}
		for _, d := range descriptors {
			name := strings.TrimSpace(d.Name)
			if name == "" {
				continue
			}
			if err := registry.Register(&remoteTool{host: h, baseURL: host.BaseURL, name: name, desc: d.Description}); err != nil {
				return registered, err
			}
			registered++
		}
	}
	return registered, nil
}

func (h *RemoteHost) discoverHost(ctx context.Context, host HostConfig) ([]toolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host.BaseURL+"/v1/tools", nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var parsed discoveryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode discovery response: %w", err)
	}
	return parsed.Tools, nil
}

type remoteTool struct {
	host    *RemoteHost
	baseURL string
	name    string
	desc    string
}

func (t *remoteTool) ID() string          { return t.name }
func (t *remoteTool) Description() string { return t.desc }

func (t *remoteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	body, err := json.Marshal(callRequest{
		Version:  toolProtocolVersion,
		CallID:   ids.New(),
		ToolName: t.name,
		TenantID: TenantFromContext(ctx),
		Args:     params,
	})
	if err != nil {
		return "", fmt.Errorf("marshal tool call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/tools/call", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build tool call request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := t.host.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call tool host: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp)
	}

	var parsed callResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode tool call response: %w", err)
	}
	if parsed.Status != "ok" {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", errors.New(parsed.Error.Message)
		}
		return "", fmt.Errorf("tool %s returned status %q", t.name, parsed.Status)
	}
	return resultText(parsed.Result)
}

// resultText prefers a "text" field and otherwise renders the whole result
// as JSON.
func resultText(result map[string]any) (string, error) {
	if text, ok := result["text"].(string); ok {
		return text, nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(encoded), nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("tool host status %d: %s", resp.StatusCode, message)
}

func normalizeHosts(hosts []HostConfig) []HostConfig {
	normalized := make([]HostConfig, 0, len(hosts))
	for _, host := range hosts {
		baseURL := strings.TrimSuffix(strings.TrimSpace(host.BaseURL), "/")
		if baseURL == "" {
			continue
		}
		normalized = append(normalized, HostConfig{Name: strings.TrimSpace(host.Name), BaseURL: baseURL})
	}
	return normalized
}

type tenantKey struct{}

// WithTenant tags ctx with the tenant forwarded to remote tool hosts.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

func TenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantKey{}).(string)
	return v
}
