package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	seen  []CompletionRequest
}

func (s *stubProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	s.seen = append(s.seen, req)
	if s.err != nil {
		return CompletionResponse{}, s.err
	}
	return CompletionResponse{Content: s.reply}, nil
}

func TestRegistryRegisterFactoryAndNew(t *testing.T) {
	registry := NewRegistry()
	expected := &stubProvider{}
	var seenKey, seenEndpoint string

	registry.RegisterFactory(" Anthropic ", func(apiKey, endpoint string) Provider {
		seenKey, seenEndpoint = apiKey, endpoint
		return expected
	})

	provider, ok := registry.New("anthropic", "secret-key", "http://local")
	require.True(t, ok)
	assert.Same(t, expected, provider)
	assert.Equal(t, "secret-key", seenKey)
	assert.Equal(t, "http://local", seenEndpoint)
}

func TestRegistryNewMissingOrNil(t *testing.T) {
	registry := NewRegistry()
	_, ok := registry.New("openai", "key", "")
	assert.False(t, ok)

	registry.RegisterFactory("openai", func(string, string) Provider { return nil })
	_, ok = registry.New("openai", "key", "")
	assert.False(t, ok)

	registry.RegisterFactory("", func(string, string) Provider { return &stubProvider{} })
	_, ok = registry.New("", "key", "")
	assert.False(t, ok)
}

func TestDefaultRegistryKnowsBothProviders(t *testing.T) {
	registry := DefaultRegistry()
	p, ok := registry.New("openai", "k", "")
	require.True(t, ok)
	assert.IsType(t, &OpenAIProvider{}, p)

	p, ok = registry.New("anthropic", "k", "")
	require.True(t, ok)
	assert.IsType(t, &AnthropicProvider{}, p)
}
