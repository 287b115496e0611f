package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
)

const defaultReplyMaxTokens = 512

// ErrBackendUnconfigured is returned by GenerateReply on a backend without a
// credential.
var ErrBackendUnconfigured = faults.Configuration("model.backend", "backend has no credential")

type ReplyRequest struct {
	UserID    string
	History   []Message
	Knowledge []string
	Directive string
	Format    OutputFormat
}

// Backend is one independently configured text-generation backend.
type Backend struct {
	Name       string
	Provider   Provider
	Model      string
	Credential string
	MaxTokens  int
}

// NewBackend builds a backend through registry. A backend with an unknown
// provider or no credential is still returned; it reports itself unavailable.
func NewBackend(registry *Registry, name, providerName, modelName, credential, endpoint string) *Backend {
	b := &Backend{
		Name:       name,
		Model:      modelName,
		Credential: strings.TrimSpace(credential),
		MaxTokens:  defaultReplyMaxTokens,
	}
	if provider, ok := registry.New(providerName, b.Credential, endpoint); ok {
		b.Provider = provider
	}
	return b
}

func (b *Backend) Available() bool {
	return b != nil && b.Provider != nil && b.Credential != ""
}

func (b *Backend) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	if !b.Available() {
		return "", ErrBackendUnconfigured
	}

	system := req.Directive
	if len(req.Knowledge) > 0 {
		var sb strings.Builder
		sb.WriteString(system)
		if system != "" {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Reference material:\n")
		for _, snippet := range req.Knowledge {
			sb.WriteString("- ")
			sb.WriteString(snippet)
			sb.WriteString("\n")
		}
		system = strings.TrimRight(sb.String(), "\n")
	}

	temperature := 0.3
	if req.Format == FormatJSON {
		temperature = 0
	}
	resp, err := b.Provider.Complete(ctx, CompletionRequest{
		Model:        b.Model,
		Messages:     req.History,
		MaxTokens:    b.MaxTokens,
		Temperature:  temperature,
		SystemPrompt: system,
		Format:       req.Format,
		User:         req.UserID,
	})
	if err != nil {
		return "", fmt.Errorf("%s backend: %w", b.Name, err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", errors.New(b.Name + " backend returned empty reply")
	}
	return text, nil
}
