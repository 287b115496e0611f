package types

import (
	"errors"
	"strings"
	"time"
)

type InputKind string

const (
	InputKindVoice InputKind = "voice"
	InputKindText  InputKind = "text"
	InputKindUI    InputKind = "ui"
)

// InputEvent is the unit of work for one orchestration pass. Treat it as
// immutable once handed to the engine.
type InputEvent struct {
	EventID    string         `json:"event_id,omitempty"`
	TenantID   string         `json:"tenant_id"`
	UserID     string         `json:"user_id"`
	InputKind  InputKind      `json:"input_kind"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ReceivedAt time.Time      `json:"received_at,omitempty"`
}

func (e InputEvent) Key() SessionKey {
	return NewSessionKey(e.TenantID, e.UserID)
}

func (e InputEvent) Validate() error {
	if err := e.Key().Validate(); err != nil {
		return err
	}
	switch e.InputKind {
	case InputKindVoice, InputKindText, InputKindUI:
	case "":
		return errors.New("input_kind is required")
	default:
		return errors.New("input_kind must be voice, text or ui")
	}
	if strings.TrimSpace(e.Content) == "" {
		return errors.New("content is required")
	}
	return nil
}
