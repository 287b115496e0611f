package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/model"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const classifierSystemPrompt = `You classify short operational messages from field officers.
Reply with one JSON object and nothing else:
{"label": string, "confidence": number between 0 and 1, "entities": object, "suggested_followups": [string], "priority": "low"|"medium"|"high"|"critical"}
Known labels: request_backup, miranda_rights, navigate_to, arriving_scene, scene_secure, arrest_made, threat_detected, traffic_stop, statute_lookup, tool_use, general_query.
Entity keys you may use: destination, language, urgency, sceneType, suspectCount, code, toolId, params.`

// ModelBackend classifies through a language model that is asked for a strict
// JSON intent.
type ModelBackend struct {
	backend *model.Backend
}

func NewModelBackend(backend *model.Backend) *ModelBackend {
	return &ModelBackend{backend: backend}
}

var _ Backend = (*ModelBackend)(nil)

func (m *ModelBackend) Initialize(context.Context) error {
	if !m.backend.Available() {
		return faults.Configuration("intent.initialize", "classifier backend has no credential")
	}
	return nil
}

type wireIntent struct {
	Label              string         `json:"label"`
	Confidence         float64        `json:"confidence"`
	Entities           map[string]any `json:"entities"`
	SuggestedFollowups []string       `json:"suggested_followups"`
	Priority           string         `json:"priority"`
}

func (m *ModelBackend) Classify(ctx context.Context, text string, scene types.SceneContext, history []types.ConversationEntry) (types.Intent, error) {
	messages := make([]model.Message, 0, len(history)+1)
	for _, entry := range history {
		messages = append(messages, model.Message{Role: model.Role(entry.Role), Content: entry.Content})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: text})

	sceneJSON, err := json.Marshal(scene)
	if err != nil {
		return types.Intent{}, fmt.Errorf("encode scene: %w", err)
	}

	reply, err := m.backend.GenerateReply(ctx, model.ReplyRequest{
		History:   messages,
		Directive: classifierSystemPrompt + "\nCurrent scene: " + string(sceneJSON),
		Format:    model.FormatJSON,
	})
	if err != nil {
		return types.Intent{}, err
	}
	return parseIntent(reply)
}

func parseIntent(reply string) (types.Intent, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return types.Intent{}, fmt.Errorf("classifier reply is not a JSON object")
	}

	var wire wireIntent
	if err := json.Unmarshal([]byte(reply[start:end+1]), &wire); err != nil {
		return types.Intent{}, fmt.Errorf("decode classifier reply: %w", err)
	}
	priority, ok := types.ParsePriority(strings.ToLower(wire.Priority))
	if !ok {
		return types.Intent{}, fmt.Errorf("classifier reply has unknown priority %q", wire.Priority)
	}
	return types.Intent{
		Label:              strings.TrimSpace(wire.Label),
		Confidence:         wire.Confidence,
		Entities:           wire.Entities,
		SuggestedFollowups: wire.SuggestedFollowups,
		Priority:           priority,
	}, nil
}
