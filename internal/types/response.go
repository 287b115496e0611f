package types

import "time"

type ResponseKind string

const (
	ResponseText       ResponseKind = "text"
	ResponseVoice      ResponseKind = "voice"
	ResponseAction     ResponseKind = "action"
	ResponseNavigation ResponseKind = "navigation"
)

// NormalizedResponse is the single shape delivered to listeners regardless
// of which handler produced it.
type NormalizedResponse struct {
	ResponseID   string         `json:"response_id"`
	TenantID     string         `json:"tenant_id"`
	UserID       string         `json:"user_id"`
	ResponseKind ResponseKind   `json:"response_kind"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (r NormalizedResponse) Key() SessionKey {
	return NewSessionKey(r.TenantID, r.UserID)
}
