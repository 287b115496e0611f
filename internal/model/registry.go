package model

import (
	"strings"
	"sync"
)

// ProviderFactory builds a provider for one credential. An empty endpoint
// selects the provider's public default.
type ProviderFactory func(apiKey, endpoint string) Provider

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// DefaultRegistry knows the openai and anthropic providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterFactory("openai", func(apiKey, endpoint string) Provider {
		return NewOpenAIProvider(apiKey, WithOpenAIEndpoint(endpoint))
	})
	r.RegisterFactory("anthropic", func(apiKey, endpoint string) Provider {
		return NewAnthropicProvider(apiKey, WithAnthropicEndpoint(endpoint))
	})
	return r
}

func (r *Registry) RegisterFactory(name string, factory ProviderFactory) {
	if r == nil || factory == nil {
		return
	}
	key := normalizeProviderName(name)
	if key == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = factory
}

func (r *Registry) New(name, apiKey, endpoint string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	key := normalizeProviderName(name)
	if key == "" {
		return nil, false
	}

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	provider := factory(apiKey, endpoint)
	if provider == nil {
		return nil, false
	}
	return provider, true
}

func normalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
