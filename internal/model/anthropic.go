package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
	// jsonPrefill opens the assistant turn so the model continues inside a
	// JSON object; the messages API has no response_format.
	jsonPrefill = "{"
)

type AnthropicOption func(*AnthropicProvider)

type AnthropicProvider struct {
	apiKey string
	api    vendorAPI
}

func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{apiKey: strings.TrimSpace(apiKey)}
	p.api = vendorAPI{
		name:     "anthropic",
		endpoint: defaultAnthropicEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		headers: func(h http.Header) {
			h.Set("x-api-key", p.apiKey)
			h.Set("anthropic-version", anthropicVersion)
		},
		errorText: vendorErrorText,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func WithAnthropicEndpoint(endpoint string) AnthropicOption {
	return func(p *AnthropicProvider) {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			p.api.endpoint = trimmed
		}
	}
}

func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) {
		if client != nil {
			p.api.client = client
		}
	}
}

type messagesRequest struct {
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Messages    []turnMessage     `json:"messages"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	Metadata    *messagesMetadata `json:"metadata,omitempty"`
}

type messagesMetadata struct {
	UserID string `json:"user_id"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (r messagesResponse) text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

var _ Provider = (*AnthropicProvider)(nil)

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := req.validate("anthropic", p.apiKey); err != nil {
		return CompletionResponse{}, err
	}
	payload, err := newMessagesRequest(req)
	if err != nil {
		return CompletionResponse{}, err
	}

	var parsed messagesResponse
	if err := p.api.post(ctx, payload, &parsed); err != nil {
		return CompletionResponse{}, err
	}
	content := parsed.text()
	if strings.TrimSpace(content) == "" {
		return CompletionResponse{}, errors.New("anthropic response contained no text")
	}
	if req.Format == FormatJSON && !strings.HasPrefix(strings.TrimSpace(content), jsonPrefill) {
		// The reply continues the prefilled turn, so the brace is ours to add.
		content = jsonPrefill + content
	}

	out := CompletionResponse{
		Content:    content,
		Usage:      Usage{InputTokens: parsed.Usage.InputTokens, OutputTokens: parsed.Usage.OutputTokens},
		Model:      parsed.Model,
		StopReason: parsed.StopReason,
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

// newMessagesRequest folds system messages into the top-level system field,
// the only place the messages API accepts them.
func newMessagesRequest(req CompletionRequest) (messagesRequest, error) {
	var system []string
	if trimmed := strings.TrimSpace(req.SystemPrompt); trimmed != "" {
		system = append(system, trimmed)
	}

	turns := make([]turnMessage, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		switch role := normalizeRole(m.Role); role {
		case RoleSystem:
			if strings.TrimSpace(m.Content) != "" {
				system = append(system, m.Content)
			}
		case RoleUser, RoleAssistant:
			turns = append(turns, turnMessage{Role: string(role), Content: m.Content})
		default:
			return messagesRequest{}, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}
	if len(turns) == 0 {
		return messagesRequest{}, errors.New("at least one non-system message is required")
	}
	if req.Format == FormatJSON {
		turns = append(turns, turnMessage{Role: string(RoleAssistant), Content: jsonPrefill})
	}

	out := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Messages:    turns,
		System:      strings.Join(system, "\n\n"),
		Temperature: req.Temperature,
	}
	if user := strings.TrimSpace(req.User); user != "" {
		out.Metadata = &messagesMetadata{UserID: user}
	}
	return out, nil
}
