package types

import (
	"errors"
	"strings"
	"time"
)

// SessionKey partitions every piece of per-user state.
type SessionKey struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

func NewSessionKey(tenantID, userID string) SessionKey {
	return SessionKey{
		TenantID: strings.TrimSpace(tenantID),
		UserID:   strings.TrimSpace(userID),
	}
}

func (k SessionKey) String() string {
	return k.TenantID + ":" + k.UserID
}

func (k SessionKey) Validate() error {
	if strings.TrimSpace(k.TenantID) == "" {
		return errors.New("tenant_id is required")
	}
	if strings.TrimSpace(k.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

type ConversationEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ActionEntry struct {
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type SessionRecord struct {
	Key                 SessionKey          `json:"session_key"`
	ConversationHistory []ConversationEntry `json:"conversation_history"`
	ActionLog           []ActionEntry       `json:"action_log"`
	SituationalData     map[string]any      `json:"situational_data"`
	LastUpdated         time.Time           `json:"last_updated"`
}

// RecentHistory returns at most n trailing conversation entries.
func (r SessionRecord) RecentHistory(n int) []ConversationEntry {
	history := r.ConversationHistory
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]ConversationEntry, len(history))
	copy(out, history)
	return out
}
