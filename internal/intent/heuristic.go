package intent

import (
	"strings"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const (
	heuristicMatchConfidence    = 0.8
	heuristicFallbackConfidence = 0.5
)

type heuristicRule struct {
	keywords []string
	build    func(text, lowered string) types.Intent
}

// Order matters: the first rule with a matching keyword wins.
var heuristicRules = []heuristicRule{
	{
		keywords: []string{"backup", "assistance", "help"},
		build: func(_, _ string) types.Intent {
			return types.Intent{
				Label:              types.IntentRequestBackup,
				Priority:           types.PriorityCritical,
				Entities:           map[string]any{},
				SuggestedFollowups: []string{"Share your location", "Describe the situation"},
			}
		},
	},
	{
		keywords: []string{"miranda", "rights"},
		build: func(_, lowered string) types.Intent {
			language := "english"
			if strings.Contains(lowered, "spanish") {
				language = "spanish"
			}
			return types.Intent{
				Label:              types.IntentMirandaRights,
				Priority:           types.PriorityCritical,
				Entities:           map[string]any{"language": language},
				SuggestedFollowups: []string{"Confirm the subject understood"},
			}
		},
	},
	{
		keywords: []string{"navigate", "route", "directions"},
		build: func(text, _ string) types.Intent {
			return types.Intent{
				Label:              types.IntentNavigateTo,
				Priority:           types.PriorityMedium,
				Entities:           map[string]any{"destination": text},
				SuggestedFollowups: []string{"Report arrival"},
			}
		},
	},
	{
		keywords: []string{"arriving", "on-scene", "on scene", "at-location", "at location"},
		build: func(_, _ string) types.Intent {
			return types.Intent{
				Label:              types.IntentArrivingScene,
				Priority:           types.PriorityHigh,
				Entities:           map[string]any{},
				SuggestedFollowups: []string{"Mark scene secure", "Request backup"},
			}
		},
	},
}

// Heuristic classifies text by keyword membership alone. It is deterministic
// and never fails.
func Heuristic(text string) types.Intent {
	lowered := strings.ToLower(text)
	for _, rule := range heuristicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				out := rule.build(text, lowered)
				out.Confidence = heuristicMatchConfidence
				return out
			}
		}
	}
	return types.Intent{
		Label:              types.IntentGeneralQuery,
		Confidence:         heuristicFallbackConfidence,
		Priority:           types.PriorityLow,
		Entities:           map[string]any{},
		SuggestedFollowups: []string{},
	}
}
