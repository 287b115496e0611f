package types

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(raw string) (Priority, bool) {
	switch p := Priority(raw); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, true
	default:
		return "", false
	}
}

const (
	IntentRequestBackup  = "request_backup"
	IntentMirandaRights  = "miranda_rights"
	IntentNavigateTo     = "navigate_to"
	IntentArrivingScene  = "arriving_scene"
	IntentSceneSecure    = "scene_secure"
	IntentArrestMade     = "arrest_made"
	IntentThreatDetected = "threat_detected"
	IntentTrafficStop    = "traffic_stop"
	IntentStatuteLookup  = "statute_lookup"
	IntentToolUse        = "tool_use"
	IntentGeneralQuery   = "general_query"
)

type Intent struct {
	Label              string         `json:"label"`
	Confidence         float64        `json:"confidence"`
	Entities           map[string]any `json:"entities"`
	SuggestedFollowups []string       `json:"suggested_followups"`
	Priority           Priority       `json:"priority"`
}

// EntityString returns the entity value for key when it is a non-empty string.
func (i Intent) EntityString(key string) (string, bool) {
	if i.Entities == nil {
		return "", false
	}
	v, ok := i.Entities[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
