package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func TestHeuristicRules(t *testing.T) {
	cases := []struct {
		text     string
		label    string
		priority types.Priority
	}{
		{"Need BACKUP at the gas station", types.IntentRequestBackup, types.PriorityCritical},
		{"requesting assistance", types.IntentRequestBackup, types.PriorityCritical},
		{"read him his rights", types.IntentMirandaRights, types.PriorityCritical},
		{"navigate to 100 Main St", types.IntentNavigateTo, types.PriorityMedium},
		{"give me directions home", types.IntentNavigateTo, types.PriorityMedium},
		{"arriving now", types.IntentArrivingScene, types.PriorityHigh},
		{"I'm on scene", types.IntentArrivingScene, types.PriorityHigh},
		{"I'm on-scene", types.IntentArrivingScene, types.PriorityHigh},
		{"unit 12 at-location", types.IntentArrivingScene, types.PriorityHigh},
		{"at location now", types.IntentArrivingScene, types.PriorityHigh},
		{"what's the weather", types.IntentGeneralQuery, types.PriorityLow},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := Heuristic(tc.text)
			assert.Equal(t, tc.label, got.Label)
			assert.Equal(t, tc.priority, got.Priority)
		})
	}
}

func TestHeuristicFirstRuleWins(t *testing.T) {
	got := Heuristic("help me navigate, I need my rights read in spanish")
	assert.Equal(t, types.IntentRequestBackup, got.Label)

	got = Heuristic("miranda rights, then route to the station")
	assert.Equal(t, types.IntentMirandaRights, got.Label)
}

func TestHeuristicBackupCarriesNoEntities(t *testing.T) {
	assert.Empty(t, Heuristic("need backup").Entities)
}

func TestHeuristicMirandaLanguage(t *testing.T) {
	assert.Equal(t, "english", Heuristic("miranda").Entities["language"])
	assert.Equal(t, "spanish", Heuristic("Miranda in Spanish please").Entities["language"])
}

func TestHeuristicNavigateKeepsFullText(t *testing.T) {
	text := "Route to Our Lady of the Lake hospital"
	assert.Equal(t, text, Heuristic(text).Entities["destination"])
}

func TestHeuristicConfidence(t *testing.T) {
	assert.Equal(t, 0.5, Heuristic("hello there").Confidence)
	assert.Equal(t, 0.8, Heuristic("backup").Confidence)
}

func TestHeuristicIsDeterministic(t *testing.T) {
	for _, text := range []string{"backup now", "rights", "route home", "on scene", "anything"} {
		first := Heuristic(text)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Heuristic(text))
		}
	}
}
