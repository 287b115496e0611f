package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

type OpenAIOption func(*OpenAIProvider)

// OpenAIProvider speaks the chat completions API. JSON output is enforced
// with response_format json_object.
type OpenAIProvider struct {
	apiKey string
	api    vendorAPI
}

func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{apiKey: strings.TrimSpace(apiKey)}
	p.api = vendorAPI{
		name:      "openai",
		endpoint:  defaultOpenAIEndpoint,
		client:    &http.Client{Timeout: 30 * time.Second},
		headers:   func(h http.Header) { h.Set("Authorization", "Bearer "+p.apiKey) },
		errorText: vendorErrorText,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func WithOpenAIEndpoint(endpoint string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			p.api.endpoint = trimmed
		}
	}
}

func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		if client != nil {
			p.api.client = client
		}
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	User           string          `json:"user,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

var _ Provider = (*OpenAIProvider)(nil)

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := req.validate("openai", p.apiKey); err != nil {
		return CompletionResponse{}, err
	}
	payload, err := newChatRequest(req)
	if err != nil {
		return CompletionResponse{}, err
	}

	var parsed chatResponse
	if err := p.api.post(ctx, payload, &parsed); err != nil {
		return CompletionResponse{}, err
	}
	if len(parsed.Choices) == 0 {
		return CompletionResponse{}, errors.New("openai response contained no choices")
	}
	choice := parsed.Choices[0]
	if choice.Message.Content == nil || strings.TrimSpace(*choice.Message.Content) == "" {
		return CompletionResponse{}, errors.New("openai response contained no content")
	}

	out := CompletionResponse{
		Content:    *choice.Message.Content,
		Usage:      Usage{InputTokens: parsed.Usage.PromptTokens, OutputTokens: parsed.Usage.CompletionTokens},
		Model:      parsed.Model,
		StopReason: choice.FinishReason,
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

func newChatRequest(req CompletionRequest) (chatRequest, error) {
	out := chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(req.Messages)+1),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		User:        strings.TrimSpace(req.User),
	}

	system := strings.TrimSpace(req.SystemPrompt)
	if req.Format == FormatJSON {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
		// json_object mode is rejected unless the prompt mentions JSON.
		if !strings.Contains(strings.ToLower(system), "json") {
			system = strings.TrimSpace(system + "\n\nRespond with a single JSON object.")
		}
	}
	if system != "" {
		out.Messages = append(out.Messages, chatMessage{Role: string(RoleSystem), Content: &system})
	}

	for _, m := range req.Messages {
		role := normalizeRole(m.Role)
		switch role {
		case RoleUser, RoleAssistant, RoleSystem:
			content := m.Content
			out.Messages = append(out.Messages, chatMessage{Role: string(role), Content: &content})
		default:
			return chatRequest{}, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}
	return out, nil
}
