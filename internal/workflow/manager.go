package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// Manager routes every write for a key through a Serializer so concurrent
// inputs for one user cannot clobber each other's step.
type Manager struct {
	store      Store
	serializer *Serializer
}

func NewManager(logger *zap.Logger, store Store) *Manager {
	return &Manager{
		store:      store,
		serializer: NewSerializer(logger, 0),
	}
}

func (m *Manager) GetCurrent(ctx context.Context, key types.SessionKey) (types.WorkflowState, error) {
	return m.store.GetCurrent(ctx, key)
}

func (m *Manager) Update(ctx context.Context, key types.SessionKey, partial map[string]any) (types.WorkflowState, error) {
	var out types.WorkflowState
	err := m.serializer.Do(ctx, key, func(ctx context.Context) error {
		state, err := m.store.Update(ctx, key, partial)
		if err != nil {
			return err
		}
		out = state
		return nil
	})
	return out, err
}

func (m *Manager) Reset(ctx context.Context, key types.SessionKey) error {
	return m.serializer.Do(ctx, key, func(ctx context.Context) error {
		return m.store.Reset(ctx, key)
	})
}

func (m *Manager) SuggestNextActions(ctx context.Context, key types.SessionKey) ([]types.SuggestedAction, error) {
	state, err := m.store.GetCurrent(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Suggest(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return Suggest(&state), nil
}

// Close stops the write workers, then closes the store.
func (m *Manager) Close() error {
	m.serializer.Close()
	return m.store.Close()
}
