package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := types.NewSessionKey("tenant_1", "user_1")
	require.NoError(t, store.AppendAction(ctx, key, "navigate", map[string]any{"destination": "Main St"}))

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	rec.ActionLog[0].Details["destination"] = "changed"
	rec.SituationalData["leak"] = true

	again, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Main St", again.ActionLog[0].Details["destination"])
	assert.NotContains(t, again.SituationalData, "leak")
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), types.NewSessionKey("tenant_1", "user_1"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.AppendMessage(context.Background(), types.NewSessionKey("tenant_1", "user_1"), types.RoleUser, "hi"), ErrClosed)
}
