package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/session"
	"github.com/lonkyzooner/thunderfire-sub002/internal/tools"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func TestWebhookSubscriberName(t *testing.T) {
	assert.Equal(t, "cad.example.gov:8443", webhookSubscriberName(0, "https://cad.example.gov:8443/hooks"))
	assert.Equal(t, "webhook-2", webhookSubscriberName(1, "not a url"))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "classify", "workflow", "statutes"})

	show, _, err := rootCmd.Find([]string{"workflow", "show"})
	assert.NoError(t, err)
	assert.Equal(t, "show", show.Name())
}

func TestSessionUnitStatus(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := tools.WithTenant(context.Background(), "t1")
	k := types.NewSessionKey("t1", "unit-7")
	require.NoError(t, store.AppendMessage(ctx, k, types.RoleUser, "traffic stop on Main"))
	require.NoError(t, store.MergeSituationalData(ctx, k, map[string]any{
		"scenario_type": "traffic_stop",
		"threat_level":  "low",
		"last_intent":   "traffic_stop",
	}))

	lookup := sessionUnitStatus(store)
	status, ok := lookup(ctx, "unit-7")
	require.True(t, ok)
	assert.Equal(t, "on traffic stop, threat low, last reported traffic stop", status)

	_, ok = lookup(ctx, "unit-9")
	assert.False(t, ok)
}
