package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// OutputFormat selects how a provider constrains the completion text.
type OutputFormat string

const (
	FormatText OutputFormat = ""
	// FormatJSON asks the vendor for a single JSON object. Providers enforce
	// it with whatever the vendor API offers.
	FormatJSON OutputFormat = "json"
)

type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

type CompletionRequest struct {
	Model        string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	Format       OutputFormat
	// User is an opaque per-officer identifier forwarded for vendor-side
	// abuse tracking. Empty is omitted.
	User string
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type CompletionResponse struct {
	Content    string
	Usage      Usage
	Model      string
	StopReason string
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (r CompletionRequest) validate(vendor, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%s api key is required", vendor)
	}
	if strings.TrimSpace(r.Model) == "" {
		return errors.New("model is required")
	}
	if r.MaxTokens <= 0 {
		return errors.New("max tokens must be greater than zero")
	}
	if len(r.Messages) == 0 {
		return errors.New("at least one message is required")
	}
	switch r.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unsupported output format: %s", r.Format)
	}
	return nil
}

func normalizeRole(role Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(role))))
}
