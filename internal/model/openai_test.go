package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
)

func openAIServer(t *testing.T, status int, body string, seen *chatRequest) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewOpenAIProvider("test-key",
		WithOpenAIEndpoint(server.URL+"/v1/chat/completions"),
		WithOpenAIHTTPClient(server.Client()),
	)
}

func TestOpenAICompleteSuccess(t *testing.T) {
	var seen chatRequest
	provider := openAIServer(t, http.StatusOK,
		`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"Units are en route."},"finish_reason":"stop"}],"usage":{"prompt_tokens":11,"completion_tokens":5}}`,
		&seen)

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Model:        "gpt-4o-mini",
		MaxTokens:    256,
		Temperature:  0.2,
		SystemPrompt: "Current scenario: patrol.",
		Messages:     []Message{{Role: RoleUser, Content: "status of my backup"}},
		User:         "officer-17",
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Equal(t, 256, seen.MaxTokens)
	assert.Equal(t, "officer-17", seen.User)
	assert.Nil(t, seen.ResponseFormat)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "Current scenario: patrol.", *seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)

	assert.Equal(t, "Units are en route.", resp.Content)
	assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 5}, resp.Usage)
	assert.Equal(t, "stop", resp.StopReason)
}

func TestOpenAICompleteJSONFormat(t *testing.T) {
	var seen chatRequest
	provider := openAIServer(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"{\"label\":\"request_backup\"}"},"finish_reason":"stop"}]}`,
		&seen)

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Model:        "gpt-4o-mini",
		MaxTokens:    64,
		SystemPrompt: "Classify the message.",
		Messages:     []Message{{Role: RoleUser, Content: "need backup"}},
		Format:       FormatJSON,
	})
	require.NoError(t, err)

	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
	assert.Contains(t, *seen.Messages[0].Content, "JSON object")
	assert.Empty(t, seen.User)
	assert.Equal(t, `{"label":"request_backup"}`, resp.Content)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
}

func TestOpenAICompleteStatusFaults(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   faults.Kind
		text   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"rate_limit","message":"slow down"}}`, faults.KindCollaboratorUnavailable, "openai rate limited: slow down"},
		{"bad key", http.StatusUnauthorized, `{"error":{"type":"auth","message":"invalid api key"}}`, faults.KindConfiguration, "invalid api key"},
		{"outage", http.StatusServiceUnavailable, ``, faults.KindCollaboratorUnavailable, "openai api status 503: Service Unavailable"},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"max_tokens too large"}}`, faults.KindInternal, "openai api status 400: max_tokens too large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := openAIServer(t, tc.status, tc.body, nil)
			_, err := provider.Complete(context.Background(), CompletionRequest{
				Model:     "gpt-4o-mini",
				MaxTokens: 16,
				Messages:  []Message{{Role: RoleUser, Content: "ping"}},
			})
			require.Error(t, err)
			assert.Equal(t, tc.kind, faults.KindOf(err))
			assert.Contains(t, err.Error(), tc.text)
		})
	}
}

func TestOpenAICompleteValidation(t *testing.T) {
	provider := NewOpenAIProvider("")
	_, err := provider.Complete(context.Background(), CompletionRequest{Model: "m", MaxTokens: 1, Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.EqualError(t, err, "openai api key is required")

	provider = NewOpenAIProvider("key")
	_, err = provider.Complete(context.Background(), CompletionRequest{Model: "m", MaxTokens: 1, Messages: []Message{{Role: "tool", Content: "x"}}})
	assert.EqualError(t, err, "unsupported message role: tool")

	_, err = provider.Complete(context.Background(), CompletionRequest{Model: "m", MaxTokens: 1, Messages: []Message{{Role: RoleUser, Content: "x"}}, Format: "yaml"})
	assert.EqualError(t, err, "unsupported output format: yaml")
}
