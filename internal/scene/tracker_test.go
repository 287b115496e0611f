package scene

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func fixedTracker(hour int) *Tracker {
	tr := NewTracker()
	tr.now = func() time.Time { return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC) }
	return tr
}

func TestTrackerDefaults(t *testing.T) {
	key := types.NewSessionKey("t1", "u1")

	day := fixedTracker(10).Get(key)
	assert.Equal(t, types.ScenarioPatrol, day.ScenarioType)
	assert.Equal(t, types.ThreatLow, day.ThreatLevel)
	assert.Equal(t, types.TimeOfDayDay, day.TimeOfDay)
	assert.Nil(t, day.WeaponsPresent)

	night := fixedTracker(23).Get(key)
	assert.Equal(t, types.TimeOfDayNight, night.TimeOfDay)
}

func TestTrackerUpdateMergesFields(t *testing.T) {
	tr := fixedTracker(12)
	key := types.NewSessionKey("t1", "u1")

	tr.Update(key, types.SceneUpdate{ThreatLevel: types.ThreatPtr(types.ThreatHigh)})
	got := tr.Update(key, types.SceneUpdate{SuspectCount: types.IntPtr(2)})

	assert.Equal(t, types.ThreatHigh, got.ThreatLevel)
	assert.Equal(t, types.ScenarioPatrol, got.ScenarioType)
	require.NotNil(t, got.SuspectCount)
	assert.Equal(t, 2, *got.SuspectCount)
}

func TestTrackerIsolatesKeys(t *testing.T) {
	tr := fixedTracker(12)
	tr.Update(types.NewSessionKey("t1", "u1"), types.SceneUpdate{ThreatLevel: types.ThreatPtr(types.ThreatCritical)})

	assert.Equal(t, types.ThreatLow, tr.Get(types.NewSessionKey("t2", "u1")).ThreatLevel)
}

func TestUpdateForIntentRules(t *testing.T) {
	cases := []struct {
		name   string
		intent types.Intent
		check  func(t *testing.T, sc types.SceneContext)
	}{
		{
			name:   "threat detected",
			intent: types.Intent{Label: types.IntentThreatDetected},
			check: func(t *testing.T, sc types.SceneContext) {
				assert.Equal(t, types.ThreatCritical, sc.ThreatLevel)
				require.NotNil(t, sc.WeaponsPresent)
				assert.True(t, *sc.WeaponsPresent)
			},
		},
		{
			name:   "traffic stop",
			intent: types.Intent{Label: types.IntentTrafficStop},
			check: func(t *testing.T, sc types.SceneContext) {
				assert.Equal(t, types.ScenarioTrafficStop, sc.ScenarioType)
			},
		},
		{
			name:   "arriving with scene type",
			intent: types.Intent{Label: types.IntentArrivingScene, Entities: map[string]any{"sceneType": "domestic"}},
			check: func(t *testing.T, sc types.SceneContext) {
				assert.Equal(t, "domestic", sc.ScenarioType)
			},
		},
		{
			name:   "arrest without count",
			intent: types.Intent{Label: types.IntentArrestMade},
			check: func(t *testing.T, sc types.SceneContext) {
				assert.Equal(t, types.ScenarioArrest, sc.ScenarioType)
				require.NotNil(t, sc.SuspectCount)
				assert.Equal(t, 1, *sc.SuspectCount)
			},
		},
		{
			name:   "arrest with count",
			intent: types.Intent{Label: types.IntentArrestMade, Entities: map[string]any{"suspectCount": float64(3)}},
			check: func(t *testing.T, sc types.SceneContext) {
				require.NotNil(t, sc.SuspectCount)
				assert.Equal(t, 3, *sc.SuspectCount)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := fixedTracker(12)
			got, changed := tr.UpdateForIntent(types.NewSessionKey("t1", "u1"), tc.intent)
			assert.True(t, changed)
			tc.check(t, got)
		})
	}
}

func TestSceneSecureLowersThreat(t *testing.T) {
	tr := fixedTracker(12)
	key := types.NewSessionKey("t1", "u1")
	tr.UpdateForIntent(key, types.Intent{Label: types.IntentThreatDetected})

	got, _ := tr.UpdateForIntent(key, types.Intent{Label: types.IntentSceneSecure})
	assert.Equal(t, types.ThreatLow, got.ThreatLevel)
	require.NotNil(t, got.WeaponsPresent)
	assert.True(t, *got.WeaponsPresent)
}

func TestUnmappedIntentLeavesScene(t *testing.T) {
	tr := fixedTracker(12)
	key := types.NewSessionKey("t1", "u1")
	before := tr.Get(key)

	for _, label := range []string{types.IntentGeneralQuery, types.IntentRequestBackup, types.IntentArrivingScene} {
		got, changed := tr.UpdateForIntent(key, types.Intent{Label: label})
		assert.False(t, changed, label)
		assert.Equal(t, before, got)
	}
}

func TestTrackerConcurrentFieldUpdates(t *testing.T) {
	tr := fixedTracker(12)
	key := types.NewSessionKey("t1", "u1")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tr.Update(key, types.SceneUpdate{ThreatLevel: types.ThreatPtr(types.ThreatHigh)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tr.Update(key, types.SceneUpdate{ScenarioType: types.StringPtr(types.ScenarioTrafficStop)})
		}
	}()
	wg.Wait()

	got := tr.Get(key)
	assert.Equal(t, types.ThreatHigh, got.ThreatLevel)
	assert.Equal(t, types.ScenarioTrafficStop, got.ScenarioType)
}
