// Package action maps a classified intent to the handler that will serve it.
package action

import (
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// Dispatch notification types understood by the engine.
const (
	NotifyBackupRequest = "backup_request"
	NotifyArrival       = "arrival_notification"
	NotifyStatusUpdate  = "status_update"
	NotifyGeneric       = "generic"
)

// Resolve is a pure lookup. The only varying value is the compliance
// timestamp, taken from now.
func Resolve(in types.Intent) types.ActionDescriptor {
	return ResolveAt(in, time.Now().UTC())
}

func ResolveAt(in types.Intent, now time.Time) types.ActionDescriptor {
	switch in.Label {
	case types.IntentNavigateTo:
		priority := "routine"
		if in.Priority == types.PriorityCritical {
			priority = "emergency"
		}
		destination, _ := in.EntityString("destination")
		return descriptor(types.ActionNavigate, map[string]any{
			"destination": destination,
			"priority":    priority,
		})
	case types.IntentRequestBackup:
		return descriptor(types.ActionDispatchNotify, map[string]any{
			"type":    NotifyBackupRequest,
			"urgency": entityOr(in, "urgency", "routine"),
		})
	case types.IntentMirandaRights:
		return descriptor(types.ActionScriptedDisclosure, map[string]any{
			"language": entityOr(in, "language", "english"),
		})
	case types.IntentArrivingScene, types.IntentSceneSecure, types.IntentArrestMade:
		return descriptor(types.ActionComplianceCheck, map[string]any{
			"action":    in.Label,
			"timestamp": now.Format(time.RFC3339),
		})
	case types.IntentStatuteLookup:
		params := map[string]any{}
		if code, ok := in.EntityString("code"); ok {
			params["code"] = code
		}
		return descriptor(types.ActionReferenceLookup, params)
	case types.IntentToolUse:
		params := map[string]any{"toolId": entityOr(in, "toolId", "")}
		if toolParams, ok := in.Entities["params"].(map[string]any); ok {
			params["params"] = toolParams
		} else {
			params["params"] = map[string]any{}
		}
		return descriptor(types.ActionToolInvoke, params)
	default:
		return descriptor(types.ActionFreeformReply, map[string]any{})
	}
}

func descriptor(kind types.ActionKind, params map[string]any) types.ActionDescriptor {
	return types.ActionDescriptor{Kind: kind, Params: params}
}

func entityOr(in types.Intent, key, fallback string) string {
	if v, ok := in.EntityString(key); ok {
		return v
	}
	return fallback
}
