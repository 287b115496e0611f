package session

import (
	"context"
	"sync"
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[types.SessionKey]*types.SessionRecord
	closed   bool
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[types.SessionKey]*types.SessionRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// recordLocked returns the live record for key, creating it if needed.
// Callers must hold s.mu.
func (s *MemoryStore) recordLocked(key types.SessionKey) *types.SessionRecord {
	if rec, ok := s.sessions[key]; ok {
		return rec
	}
	rec := newRecord(key, s.now())
	s.sessions[key] = &rec
	return &rec
}

func (s *MemoryStore) Get(_ context.Context, key types.SessionKey) (types.SessionRecord, error) {
	if err := key.Validate(); err != nil {
		return types.SessionRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.SessionRecord{}, ErrClosed
	}

	rec := s.recordLocked(key)
	out := *rec
	out.ConversationHistory = append([]types.ConversationEntry(nil), rec.ConversationHistory...)
	out.ActionLog = make([]types.ActionEntry, len(rec.ActionLog))
	for i, entry := range rec.ActionLog {
		entry.Details = cloneMap(entry.Details)
		out.ActionLog[i] = entry
	}
	out.SituationalData = cloneMap(rec.SituationalData)
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, key types.SessionKey, role types.Role, content string) error {
	if err := validateMessage(key, role, content); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	now := s.now()
	rec := s.recordLocked(key)
	rec.ConversationHistory = append(rec.ConversationHistory, types.ConversationEntry{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	rec.LastUpdated = now
	return nil
}

func (s *MemoryStore) AppendAction(_ context.Context, key types.SessionKey, actionType string, details map[string]any) error {
	if err := validateAction(key, actionType); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	now := s.now()
	rec := s.recordLocked(key)
	rec.ActionLog = append(rec.ActionLog, types.ActionEntry{
		Type:      actionType,
		Details:   cloneMap(details),
		Timestamp: now,
	})
	rec.LastUpdated = now
	return nil
}

func (s *MemoryStore) MergeSituationalData(_ context.Context, key types.SessionKey, partial map[string]any) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec := s.recordLocked(key)
	for k, v := range partial {
		rec.SituationalData[k] = v
	}
	rec.LastUpdated = s.now()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key types.SessionKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.sessions, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
