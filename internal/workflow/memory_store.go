package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// MemoryStore keeps workflow state for the process lifetime only. The
// binary always uses GormStore; this one backs tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[types.SessionKey]types.WorkflowState
	closed bool
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[types.SessionKey]types.WorkflowState),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) GetCurrent(_ context.Context, key types.SessionKey) (types.WorkflowState, error) {
	if err := key.Validate(); err != nil {
		return types.WorkflowState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.WorkflowState{}, ErrClosed
	}
	state, ok := s.states[key]
	if !ok {
		return types.WorkflowState{}, ErrNotFound
	}
	return cloneState(state), nil
}

func (s *MemoryStore) Update(_ context.Context, key types.SessionKey, partial map[string]any) (types.WorkflowState, error) {
	if err := key.Validate(); err != nil {
		return types.WorkflowState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.WorkflowState{}, ErrClosed
	}

	now := s.now()
	state, ok := s.states[key]
	if !ok {
		state = defaultState(now)
	}
	next, err := applyPartial(state, partial)
	if err != nil {
		return types.WorkflowState{}, err
	}
	next.UpdatedAt = now
	s.states[key] = next
	return cloneState(next), nil
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
	delete(s.states, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
