package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/model"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

type cannedProvider struct {
	reply string
	seen  model.CompletionRequest
}

func (p *cannedProvider) Complete(_ context.Context, req model.CompletionRequest) (model.CompletionResponse, error) {
	p.seen = req
	return model.CompletionResponse{Content: p.reply}, nil
}

func modelBackendWith(p model.Provider, credential string) *ModelBackend {
	registry := model.NewRegistry()
	registry.RegisterFactory("canned", func(string, string) model.Provider { return p })
	return NewModelBackend(model.NewBackend(registry, "classifier", "canned", "m", credential, ""))
}

func TestModelBackendInitializeRequiresCredential(t *testing.T) {
	err := modelBackendWith(&cannedProvider{}, "").Initialize(context.Background())
	assert.ErrorIs(t, err, faults.ErrConfiguration)

	assert.NoError(t, modelBackendWith(&cannedProvider{}, "key").Initialize(context.Background()))
}

func TestModelBackendClassifyParsesJSON(t *testing.T) {
	provider := &cannedProvider{reply: "Sure:\n```json\n{\"label\":\"statute_lookup\",\"confidence\":0.92,\"entities\":{\"code\":\"14:30\"},\"suggested_followups\":[],\"priority\":\"LOW\"}\n```"}
	backend := modelBackendWith(provider, "key")

	history := []types.ConversationEntry{{Role: types.RoleUser, Content: "earlier"}}
	got, err := backend.Classify(context.Background(), "check statute 14:30", types.SceneContext{ScenarioType: "patrol"}, history)
	require.NoError(t, err)
	assert.Equal(t, types.IntentStatuteLookup, got.Label)
	assert.Equal(t, types.PriorityLow, got.Priority)
	assert.Equal(t, "14:30", got.Entities["code"])

	require.Len(t, provider.seen.Messages, 2)
	assert.Equal(t, "check statute 14:30", provider.seen.Messages[1].Content)
	assert.Contains(t, provider.seen.SystemPrompt, `"scenario_type":"patrol"`)
	assert.Equal(t, model.FormatJSON, provider.seen.Format)
}

func TestModelBackendClassifyRejectsGarbage(t *testing.T) {
	_, err := modelBackendWith(&cannedProvider{reply: "no idea"}, "key").Classify(context.Background(), "x", types.SceneContext{}, nil)
	assert.Error(t, err)

	_, err = modelBackendWith(&cannedProvider{reply: `{"label":"x","priority":"urgent"}`}, "key").Classify(context.Background(), "x", types.SceneContext{}, nil)
	assert.Error(t, err)
}
