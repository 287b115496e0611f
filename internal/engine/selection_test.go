package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

func TestBackendSelectionOrder(t *testing.T) {
	on := func() *stubReply { return &stubReply{available: true} }
	off := func() *stubReply { return &stubReply{} }

	critical := types.Intent{Label: types.IntentGeneralQuery, Priority: types.PriorityCritical}
	legal := types.Intent{Label: types.IntentMirandaRights, Priority: types.PriorityHigh}
	criticalLegal := types.Intent{Label: types.IntentMirandaRights, Priority: types.PriorityCritical}
	general := types.Intent{Label: types.IntentGeneralQuery, Priority: types.PriorityLow}

	cases := []struct {
		name     string
		backends Backends
		intent   types.Intent
		want     string
	}{
		{name: "critical uses fast", backends: Backends{Fast: on(), Legal: on(), General: on(), Fallback: on()}, intent: critical, want: SlotFast},
		{name: "critical legal prefers fast", backends: Backends{Fast: on(), Legal: on(), General: on()}, intent: criticalLegal, want: SlotFast},
		{name: "critical without fast falls to legal", backends: Backends{Fast: off(), Legal: on(), General: on()}, intent: criticalLegal, want: SlotLegal},
		{name: "critical without fast or legal topic uses general", backends: Backends{Legal: on(), General: on()}, intent: critical, want: SlotGeneral},
		{name: "legal topic uses legal", backends: Backends{Fast: on(), Legal: on(), General: on()}, intent: legal, want: SlotLegal},
		{name: "legal unconfigured uses general", backends: Backends{Legal: off(), General: on()}, intent: legal, want: SlotGeneral},
		{name: "general query ignores legal", backends: Backends{Legal: on(), Fallback: on()}, intent: general, want: SlotFallback},
		{name: "fallback last", backends: Backends{Fast: off(), Legal: off(), General: off(), Fallback: on()}, intent: general, want: SlotFallback},
		{name: "none configured", backends: Backends{Fast: off(), General: off()}, intent: critical, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				slot, backend, ok := tc.backends.Select(tc.intent)
				assert.Equal(t, tc.want, slot)
				assert.Equal(t, tc.want != "", ok)
				assert.Equal(t, tc.want != "", backend != nil)
			}
		})
	}
}

func TestIsLegalTopic(t *testing.T) {
	for _, label := range []string{types.IntentMirandaRights, types.IntentStatuteLookup, types.IntentArrestMade, "legal_question", "Compliance_Review"} {
		assert.True(t, isLegalTopic(types.Intent{Label: label}), label)
	}
	for _, label := range []string{types.IntentGeneralQuery, types.IntentThreatDetected, types.IntentTrafficStop, ""} {
		assert.False(t, isLegalTopic(types.Intent{Label: label}), label)
	}
}
