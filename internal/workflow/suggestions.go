package workflow

import "github.com/lonkyzooner/thunderfire-sub002/internal/types"

var (
	suggestStatusUpdate  = types.SuggestedAction{ID: "status_update", Label: "Send status update", Description: "Report current status to dispatch"}
	suggestRequestBackup = types.SuggestedAction{ID: "request_backup", Label: "Request backup", Description: "Ask dispatch for additional units"}
	suggestNavigate      = types.SuggestedAction{ID: "navigate", Label: "Get directions", Description: "Route to a destination"}
	suggestStatute       = types.SuggestedAction{ID: "statute_lookup", Label: "Look up statute", Description: "Search the reference dataset"}
	suggestMiranda       = types.SuggestedAction{ID: "miranda_rights", Label: "Deliver Miranda warning", Description: "Read the rights advisory to the subject"}
	suggestSceneSecure   = types.SuggestedAction{ID: "scene_secure", Label: "Mark scene secure", Description: "Record that the scene is under control"}
	suggestArrest        = types.SuggestedAction{ID: "arrest_made", Label: "Record arrest", Description: "Log an arrest for compliance"}
)

// DefaultSuggestions is returned when no rule matches the current state.
var DefaultSuggestions = []types.SuggestedAction{
	suggestStatusUpdate,
	suggestRequestBackup,
	suggestNavigate,
	suggestStatute,
}

type suggestionRule struct {
	matches func(types.WorkflowState) bool
	actions []types.SuggestedAction
}

func lastAction(actions ...string) func(types.WorkflowState) bool {
	return func(s types.WorkflowState) bool {
		for _, a := range actions {
			if s.LastAction == a {
				return true
			}
		}
		return false
	}
}

// First match wins.
var suggestionRules = []suggestionRule{
	{matches: lastAction(string(types.IntentArrestMade)), actions: []types.SuggestedAction{suggestMiranda, suggestStatute, suggestStatusUpdate}},
	{matches: lastAction(string(types.IntentRequestBackup)), actions: []types.SuggestedAction{suggestStatusUpdate, suggestNavigate}},
	{matches: lastAction(string(types.IntentThreatDetected)), actions: []types.SuggestedAction{suggestRequestBackup, suggestStatusUpdate}},
	{matches: lastAction(string(types.IntentArrivingScene)), actions: []types.SuggestedAction{suggestSceneSecure, suggestRequestBackup, suggestStatusUpdate}},
	{matches: lastAction(string(types.IntentSceneSecure)), actions: []types.SuggestedAction{suggestArrest, suggestStatusUpdate}},
	{matches: lastAction(string(types.IntentMirandaRights)), actions: []types.SuggestedAction{suggestStatute, suggestStatusUpdate}},
	{matches: lastAction(string(types.IntentNavigateTo)), actions: []types.SuggestedAction{{ID: "arriving_scene", Label: "Report arrival", Description: "Notify dispatch on arrival"}, suggestStatusUpdate}},
}

// Suggest returns follow-up actions for state. A nil state yields the
// defaults.
func Suggest(state *types.WorkflowState) []types.SuggestedAction {
	if state != nil {
		for _, rule := range suggestionRules {
			if rule.matches(*state) {
				return append([]types.SuggestedAction(nil), rule.actions...)
			}
		}
	}
	return append([]types.SuggestedAction(nil), DefaultSuggestions...)
}
