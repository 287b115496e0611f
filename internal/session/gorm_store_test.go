package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func TestGormStoreSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "thunderfire.db")
	store, err := NewGormStore("sqlite", dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	key := types.NewSessionKey("tenant_1", "user_1")
	require.NoError(t, store.AppendMessage(ctx, key, types.RoleUser, "what is 14:30"))
	require.NoError(t, store.AppendAction(ctx, key, "reference_lookup", map[string]any{"code": "14:30"}))
	require.NoError(t, store.MergeSituationalData(ctx, key, map[string]any{"weather": "rain"}))
	require.NoError(t, store.Close())

	reopened, err := NewGormStore("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	rec, err := reopened.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, rec.ConversationHistory, 1)
	assert.Equal(t, types.RoleUser, rec.ConversationHistory[0].Role)
	require.Len(t, rec.ActionLog, 1)
	assert.Equal(t, "14:30", rec.ActionLog[0].Details["code"])
	assert.Equal(t, "rain", rec.SituationalData["weather"])
}

func TestGormStoreUnsupportedDriver(t *testing.T) {
	_, err := NewGormStore("oracle", "dsn")
	assert.Error(t, err)
}
