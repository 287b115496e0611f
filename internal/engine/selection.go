package engine

import (
	"context"
	"strings"

	"github.com/lonkyzooner/thunderfire-sub002/internal/model"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// ReplyBackend is one language-model backend. *model.Backend satisfies it.
type ReplyBackend interface {
	Available() bool
	GenerateReply(ctx context.Context, req model.ReplyRequest) (string, error)
}

// Backends are the reply backends by slot. Nil or unconfigured slots are
// skipped during selection.
type Backends struct {
	Fast     ReplyBackend
	Legal    ReplyBackend
	General  ReplyBackend
	Fallback ReplyBackend
}

const (
	SlotFast     = "fast"
	SlotLegal    = "legal"
	SlotGeneral  = "general"
	SlotFallback = "fallback"
)

type selectionRule struct {
	slot    string
	applies func(types.Intent) bool
	backend func(Backends) ReplyBackend
}

// selectionRules are evaluated in order; the first rule that applies and
// whose backend is configured wins.
var selectionRules = []selectionRule{
	{
		slot:    SlotFast,
		applies: func(in types.Intent) bool { return in.Priority == types.PriorityCritical },
		backend: func(b Backends) ReplyBackend { return b.Fast },
	},
	{
		slot:    SlotLegal,
		applies: isLegalTopic,
		backend: func(b Backends) ReplyBackend { return b.Legal },
	},
	{
		slot:    SlotGeneral,
		applies: func(types.Intent) bool { return true },
		backend: func(b Backends) ReplyBackend { return b.General },
	},
	{
		slot:    SlotFallback,
		applies: func(types.Intent) bool { return true },
		backend: func(b Backends) ReplyBackend { return b.Fallback },
	},
}

var legalLabels = map[string]struct{}{
	types.IntentMirandaRights: {},
	types.IntentStatuteLookup: {},
	types.IntentArrivingScene: {},
	types.IntentSceneSecure:   {},
	types.IntentArrestMade:    {},
}

var legalLabelTerms = []string{"legal", "law", "statute", "compliance", "disclosure", "rights", "miranda"}

func isLegalTopic(in types.Intent) bool {
	label := strings.ToLower(in.Label)
	if _, ok := legalLabels[label]; ok {
		return true
	}
	for _, term := range legalLabelTerms {
		if strings.Contains(label, term) {
			return true
		}
	}
	return false
}

// Select returns the backend chosen for in and its slot name.
func (b Backends) Select(in types.Intent) (string, ReplyBackend, bool) {
	for _, rule := range selectionRules {
		if !rule.applies(in) {
			continue
		}
		backend := rule.backend(b)
		if backend == nil || !backend.Available() {
			continue
		}
		return rule.slot, backend, true
	}
	return "", nil, false
}
