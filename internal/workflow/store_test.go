package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"gorm": func() Store {
			store, err := NewGormStore("sqlite", filepath.Join(t.TempDir(), "workflow.db"))
			require.NoError(t, err)
			return store
		},
	}
}

func TestStoreGetCurrentAbsent(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer func() { _ = store.Close() }()

			_, err := store.GetCurrent(context.Background(), types.NewSessionKey("t1", "u1"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreUpdateCreatesDefaultThenMerges(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer func() { _ = store.Close() }()
			ctx := context.Background()
			key := types.NewSessionKey("t1", "u1")

			state, err := store.Update(ctx, key, map[string]any{"situation": "traffic stop on I-10"})
			require.NoError(t, err)
			assert.Equal(t, InitialStep, state.CurrentStep)
			assert.Equal(t, "", state.LastAction)
			assert.Equal(t, int64(0), state.Timestamp)
			assert.Equal(t, "traffic stop on I-10", state.Situation)

			_, err = store.Update(ctx, key, map[string]any{
				"currentStep": "executing",
				"lastAction":  "request_backup",
				"timestamp":   int64(1700000000000),
				"unit":        "7A",
			})
			require.NoError(t, err)

			got, err := store.GetCurrent(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, "executing", got.CurrentStep)
			assert.Equal(t, "request_backup", got.LastAction)
			assert.Equal(t, "traffic stop on I-10", got.Situation)
			assert.Equal(t, int64(1700000000000), got.Timestamp)
			assert.Equal(t, "7A", got.Extra["unit"])
		})
	}
}

func TestStoreUpdateRejectsWrongFieldType(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer func() { _ = store.Close() }()

			_, err := store.Update(context.Background(), types.NewSessionKey("t1", "u1"), map[string]any{"currentStep": 3})
			assert.ErrorIs(t, err, faults.ErrValidation)
		})
	}
}

func TestStoreResetDeletes(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer func() { _ = store.Close() }()
			ctx := context.Background()
			key := types.NewSessionKey("t1", "u1")

			_, err := store.Update(ctx, key, map[string]any{"currentStep": "executing"})
			require.NoError(t, err)
			require.NoError(t, store.Reset(ctx, key))

			_, err = store.GetCurrent(ctx, key)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGormStoreStateSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "workflow.db")
	store, err := NewGormStore("sqlite", dbPath)
	require.NoError(t, err)
	key := types.NewSessionKey("t1", "u1")
	_, err = store.Update(context.Background(), key, map[string]any{"currentStep": "responded", "notes": []any{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewGormStore("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetCurrent(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "responded", got.CurrentStep)
	assert.Equal(t, []any{"a", "b"}, got.Extra["notes"])
}
