package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/audit"
	"github.com/lonkyzooner/thunderfire-sub002/internal/deadline"
	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/location"
	"github.com/lonkyzooner/thunderfire-sub002/internal/model"
	"github.com/lonkyzooner/thunderfire-sub002/internal/routing"
	"github.com/lonkyzooner/thunderfire-sub002/internal/tools"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const (
	complianceStatusCompliant = "compliant"
	verificationUnverified    = "unverified"
)

// execute runs the handler for t.action. Handlers never fail: every fault
// becomes a response carrying metadata.error_kind.
func (e *Engine) execute(ctx context.Context, t turn) types.NormalizedResponse {
	switch t.action.Kind {
	case types.ActionNavigate:
		return e.navigate(ctx, t)
	case types.ActionDispatchNotify:
		return e.dispatchNotify(ctx, t)
	case types.ActionComplianceCheck:
		return e.complianceCheck(ctx, t)
	case types.ActionReferenceLookup:
		return e.referenceLookup(t)
	case types.ActionScriptedDisclosure:
		return e.scriptedDisclosure(ctx, t)
	case types.ActionToolInvoke:
		return e.toolInvoke(ctx, t)
	default:
		return e.freeformReply(ctx, t)
	}
}

func (e *Engine) navigate(ctx context.Context, t turn) types.NormalizedResponse {
	destination := strings.TrimSpace(t.action.Param("destination"))
	priority := t.action.Param("priority")
	if destination == "" {
		return e.failure(t.event, types.ResponseText, faults.Validation("engine.navigate", "destination is required"),
			"I need a destination to plan a route. Where are you headed?")
	}
	if e.routing == nil || !e.routing.Available() {
		return e.failure(t.event, types.ResponseText, faults.Unavailable("engine.navigate", errors.New("routing backend not available")),
			fmt.Sprintf("Navigation is unavailable right now, so I can't plan a route to %s. Please use your in-car navigation.", destination))
	}

	route, err := deadline.Call(ctx, e.opts.CollaboratorTimeout, func(ctx context.Context) (routing.Route, error) {
		return e.routing.GetRoute(ctx, destination, priority)
	})
	if errors.Is(err, routing.ErrRouteNotFound) {
		return e.failure(t.event, types.ResponseText, faults.Validation("engine.navigate", "route not found"),
			fmt.Sprintf("I couldn't find a route to %s. Please check the destination and try again.", destination))
	}
	if err != nil {
		t.logger.Warn("routing failed", zap.String("destination", destination), zap.Error(err))
		return e.failure(t.event, types.ResponseText, faults.Unavailable("engine.navigate", err),
			fmt.Sprintf("Navigation is unavailable right now, so I can't plan a route to %s. Please use your in-car navigation.", destination))
	}

	content := fmt.Sprintf("Route to %s: %s, about %d minutes. ETA %s.", destination, route.Distance, minutes(route.DurationSeconds), route.ETA)
	if note := strings.TrimSpace(route.TrafficNote); note != "" {
		content += " Traffic: " + note
	}
	return e.respond(t.event, types.ResponseNavigation, content, map[string]any{
		"destination":      destination,
		"priority":         priority,
		"distance":         route.Distance,
		"duration_seconds": route.DurationSeconds,
		"eta":              route.ETA,
		"traffic_note":     route.TrafficNote,
	})
}

func minutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60
}

func (e *Engine) dispatchNotify(ctx context.Context, t turn) types.NormalizedResponse {
	notifyType := t.action.Param("type")
	urgency := t.action.Param("urgency")
	if urgency == "" {
		urgency = "routine"
	}

	coords, source := e.currentLocation(ctx, t)
	content := dispatchMessage(notifyType, coords.String(), urgency)
	payload := map[string]any{
		"type":            notifyType,
		"urgency":         urgency,
		"lat":             coords.Lat,
		"lon":             coords.Lon,
		"location_source": source,
		"priority":        string(t.intent.Priority),
	}
	e.logAudit(ctx, t.logger, audit.Entry{
		EventType: audit.EventDispatch,
		TenantID:  t.event.TenantID,
		UserID:    t.event.UserID,
		Payload:   payload,
	})
	return e.respond(t.event, types.ResponseAction, content, payload)
}

// currentLocation falls back to the configured default location when the
// provider fails.
func (e *Engine) currentLocation(ctx context.Context, t turn) (location.Coordinates, string) {
	coords, err := deadline.Call(ctx, e.opts.CollaboratorTimeout, func(ctx context.Context) (location.Coordinates, error) {
		return e.location.CurrentLocation(ctx, t.event.TenantID, t.event.UserID)
	})
	if err != nil {
		t.logger.Warn("location unavailable, using default", zap.Error(err))
		return e.opts.DefaultLocation, "default"
	}
	return coords, "provider"
}

func (e *Engine) complianceCheck(ctx context.Context, t turn) types.NormalizedResponse {
	actionName := t.action.Param("action")
	if actionName == "" {
		actionName = t.intent.Label
	}
	payload := map[string]any{
		"action":       actionName,
		"timestamp":    t.action.Param("timestamp"),
		"status":       complianceStatusCompliant,
		"verification": verificationUnverified,
	}
	e.logAudit(ctx, t.logger, audit.Entry{
		EventType: audit.EventCompliance,
		TenantID:  t.event.TenantID,
		UserID:    t.event.UserID,
		Payload:   payload,
	})
	return e.respond(t.event, types.ResponseAction, complianceMessage(actionName), payload)
}

func (e *Engine) referenceLookup(t turn) types.NormalizedResponse {
	query := t.action.Param("code")
	if strings.TrimSpace(query) == "" {
		query = t.event.Content
	}
	rec, ok := e.reference.Lookup(query)
	if !ok {
		return e.respond(t.event, types.ResponseText,
			fmt.Sprintf("I couldn't find a statute matching %q.", strings.TrimSpace(query)),
			map[string]any{"found": false})
	}
	content := fmt.Sprintf("Statute %s, %s: %s", rec.Code, rec.Title, rec.Text)
	return e.respond(t.event, types.ResponseText, content, map[string]any{
		"found": true,
		"code":  rec.Code,
		"title": rec.Title,
	})
}

func (e *Engine) scriptedDisclosure(ctx context.Context, t turn) types.NormalizedResponse {
	requested := strings.ToLower(strings.TrimSpace(t.action.Param("language")))
	if requested == "" {
		requested = languageEnglish
	}
	text, delivered := mirandaWarning(requested)
	metadata := map[string]any{
		"requested_language": requested,
		"delivered_language": delivered,
	}
	if requested != delivered {
		metadata["translation_missing"] = true
		t.logger.Warn("no disclosure template for language", zap.String("language", requested))
	}

	payload := map[string]any{
		"requested_language": requested,
		"delivered_language": delivered,
		"text":               text,
		"status":             complianceStatusCompliant,
		"verification":       verificationUnverified,
	}
	e.logAudit(ctx, t.logger, audit.Entry{
		EventType: audit.EventDisclosure,
		TenantID:  t.event.TenantID,
		UserID:    t.event.UserID,
		Payload:   payload,
	})
	return e.respond(t.event, types.ResponseVoice, text, metadata)
}

func (e *Engine) toolInvoke(ctx context.Context, t turn) types.NormalizedResponse {
	toolID := strings.TrimSpace(t.action.Param("toolId"))
	if toolID == "" {
		return e.failure(t.event, types.ResponseText, faults.Validation("engine.tool_invoke", "tool id is required"),
			"I'm unable to execute that request because no tool was specified.")
	}
	params, _ := t.action.Params["params"].(map[string]any)

	result, err := e.invokeTool(ctx, t, toolID, params)
	if errors.Is(err, tools.ErrToolNotFound) {
		return e.failure(t.event, types.ResponseText, faults.Validation("engine.tool_invoke", err.Error()),
			fmt.Sprintf("I'm unable to execute %q because no such tool is available.", toolID))
	}
	if err != nil {
		t.logger.Warn("tool failed", zap.String("tool_id", toolID), zap.Error(err))
		return e.failure(t.event, types.ResponseText, faults.Unavailable("engine.tool_invoke", err),
			fmt.Sprintf("I'm unable to execute %q right now. Please try again.", toolID))
	}
	return e.respond(t.event, types.ResponseText, result, map[string]any{"tool_id": toolID})
}

func (e *Engine) invokeTool(ctx context.Context, t turn, toolID string, params map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", toolID, r)
		}
	}()
	return deadline.Call(tools.WithTenant(ctx, t.event.TenantID), e.opts.CollaboratorTimeout, func(ctx context.Context) (string, error) {
		return e.tools.Invoke(ctx, toolID, params)
	})
}

func (e *Engine) freeformReply(ctx context.Context, t turn) types.NormalizedResponse {
	slot, backend, ok := e.backends.Select(t.intent)
	if !ok {
		t.logger.Warn("no reply backend configured")
		return e.failure(t.event, types.ResponseText, faults.Configuration("engine.freeform_reply", "no reply backend configured"), replyApology)
	}

	snippets := e.retrieveKnowledge(ctx, t)
	req := model.ReplyRequest{
		UserID:    t.event.UserID,
		History:   toModelMessages(t.history),
		Knowledge: snippets,
		Directive: sceneDirective(t.scene),
	}

	reply, err := deadline.Call(ctx, e.opts.ReplyTimeout, func(ctx context.Context) (string, error) {
		return backend.GenerateReply(ctx, req)
	})
	if err != nil {
		t.logger.Warn("reply backend failed", zap.String("backend", slot), zap.Error(err))
		kind := faults.KindOf(err)
		if kind == faults.KindInternal {
			err = faults.Unavailable("engine.freeform_reply", err)
		}
		resp := e.failure(t.event, types.ResponseText, err, replyApology)
		resp.Metadata["backend"] = slot
		return resp
	}
	return e.respond(t.event, types.ResponseText, reply, map[string]any{
		"backend":         slot,
		"knowledge_count": len(snippets),
	})
}

// retrieveKnowledge treats retrieval errors as no snippets.
func (e *Engine) retrieveKnowledge(ctx context.Context, t turn) []string {
	snippets, err := deadline.Call(ctx, e.opts.CollaboratorTimeout, func(ctx context.Context) ([]string, error) {
		return e.knowledge.Retrieve(ctx, t.event.Content)
	})
	if err != nil {
		t.logger.Debug("knowledge retrieval failed", zap.Error(err))
		return nil
	}
	return snippets
}

func toModelMessages(history []types.ConversationEntry) []model.Message {
	out := make([]model.Message, 0, len(history))
	for _, entry := range history {
		role := model.RoleUser
		switch entry.Role {
		case types.RoleAssistant:
			role = model.RoleAssistant
		case types.RoleSystem:
			// The directive carries system context.
			continue
		}
		out = append(out, model.Message{Role: role, Content: entry.Content})
	}
	return out
}
