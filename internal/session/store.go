package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

var ErrClosed = errors.New("session store is closed")

// Store holds per-key conversation history, action log and situational
// data. Get never reports a missing session: it creates one on demand.
type Store interface {
	Get(context.Context, types.SessionKey) (types.SessionRecord, error)
	AppendMessage(context.Context, types.SessionKey, types.Role, string) error
	AppendAction(context.Context, types.SessionKey, string, map[string]any) error
	MergeSituationalData(context.Context, types.SessionKey, map[string]any) error
	Reset(context.Context, types.SessionKey) error
	Close() error
}

func newRecord(key types.SessionKey, now time.Time) types.SessionRecord {
	return types.SessionRecord{
		Key:                 key,
		ConversationHistory: []types.ConversationEntry{},
		ActionLog:           []types.ActionEntry{},
		SituationalData:     map[string]any{},
		LastUpdated:         now,
	}
}

func validateMessage(key types.SessionKey, role types.Role, content string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("unsupported role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("content is required")
	}
	return nil
}

func validateAction(key types.SessionKey, actionType string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(actionType) == "" {
		return errors.New("action type is required")
	}
	return nil
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
