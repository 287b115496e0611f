package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const InitialStep = "initial"

var (
	ErrNotFound = errors.New("workflow state not found")
	ErrClosed   = errors.New("workflow store is closed")
)

// Store persists one WorkflowState per session key. Update must not return
// until the merged state is durable.
type Store interface {
	GetCurrent(context.Context, types.SessionKey) (types.WorkflowState, error)
	Update(context.Context, types.SessionKey, map[string]any) (types.WorkflowState, error)
	Reset(context.Context, types.SessionKey) error
	Close() error
}

func defaultState(now time.Time) types.WorkflowState {
	return types.WorkflowState{
		CurrentStep: InitialStep,
		Extra:       map[string]any{},
		UpdatedAt:   now,
	}
}

// applyPartial overlays partial onto state. Known fields are type checked,
// everything else lands in Extra.
func applyPartial(state types.WorkflowState, partial map[string]any) (types.WorkflowState, error) {
	out := state
	out.Extra = make(map[string]any, len(state.Extra)+len(partial))
	for k, v := range state.Extra {
		out.Extra[k] = v
	}

	for field, value := range partial {
		switch field {
		case types.WorkflowFieldCurrentStep, types.WorkflowFieldLastAction, types.WorkflowFieldSituation:
			s, ok := value.(string)
			if !ok {
				return state, faults.Validation("workflow.update", fmt.Sprintf("%s must be a string", field))
			}
			switch field {
			case types.WorkflowFieldCurrentStep:
				out.CurrentStep = s
			case types.WorkflowFieldLastAction:
				out.LastAction = s
			default:
				out.Situation = s
			}
		case types.WorkflowFieldTimestamp:
			ts, err := toInt64(value)
			if err != nil {
				return state, faults.Validation("workflow.update", fmt.Sprintf("timestamp: %v", err))
			}
			out.Timestamp = ts
		default:
			out.Extra[field] = value
		}
	}
	return out, nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case time.Time:
		return v.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func cloneState(state types.WorkflowState) types.WorkflowState {
	out := state
	if state.Extra != nil {
		out.Extra = make(map[string]any, len(state.Extra))
		for k, v := range state.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
