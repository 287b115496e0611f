// Package engine runs one orchestration pass per input: log it, classify
// it, update the scene, resolve an action, execute it and publish exactly
// one normalized response.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/action"
	"github.com/lonkyzooner/thunderfire-sub002/internal/audit"
	"github.com/lonkyzooner/thunderfire-sub002/internal/broadcast"
	"github.com/lonkyzooner/thunderfire-sub002/internal/deadline"
	"github.com/lonkyzooner/thunderfire-sub002/internal/dispatch"
	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/ids"
	"github.com/lonkyzooner/thunderfire-sub002/internal/intent"
	"github.com/lonkyzooner/thunderfire-sub002/internal/knowledge"
	"github.com/lonkyzooner/thunderfire-sub002/internal/location"
	"github.com/lonkyzooner/thunderfire-sub002/internal/reference"
	"github.com/lonkyzooner/thunderfire-sub002/internal/routing"
	"github.com/lonkyzooner/thunderfire-sub002/internal/scene"
	"github.com/lonkyzooner/thunderfire-sub002/internal/session"
	"github.com/lonkyzooner/thunderfire-sub002/internal/tools"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
	"github.com/lonkyzooner/thunderfire-sub002/internal/workflow"
)

const (
	defaultHistoryWindow       = 5
	defaultCollaboratorTimeout = 8 * time.Second
	defaultReplyTimeout        = 30 * time.Second
	defaultAuditTimeout        = 5 * time.Second

	// Workflow steps written after each pass.
	StepResponded          = "responded"
	StepRespondedWithError = "responded_with_error"

	actionTypeResponse = "response"
)

// ErrClosed is returned by ReceiveInput once Close has been called.
var ErrClosed = errors.New("engine is closed")

// Deps are the engine's collaborators. Sessions, Workflow and Broadcaster
// are required; everything else has a working default.
type Deps struct {
	Logger      *zap.Logger
	Sessions    session.Store
	Workflow    *workflow.Manager
	Scenes      *scene.Tracker
	Classifier  *intent.Classifier
	Routing     routing.Backend
	Location    location.Provider
	Knowledge   knowledge.Retriever
	Tools       *tools.Registry
	Reference   *reference.Dataset
	Audit       audit.Sink
	Broadcaster *broadcast.Broadcaster
	Dispatcher  *dispatch.Dispatcher
	Backends    Backends
}

type Options struct {
	HistoryWindow       int
	CollaboratorTimeout time.Duration
	ReplyTimeout        time.Duration
	DefaultLocation     location.Coordinates
	Now                 func() time.Time
}

type Engine struct {
	logger      *zap.Logger
	sessions    session.Store
	workflow    *workflow.Manager
	scenes      *scene.Tracker
	classifier  *intent.Classifier
	routing     routing.Backend
	location    location.Provider
	knowledge   knowledge.Retriever
	tools       *tools.Registry
	reference   *reference.Dataset
	audit       audit.Sink
	broadcaster *broadcast.Broadcaster
	dispatcher  *dispatch.Dispatcher
	backends    Backends
	opts        Options

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Sessions == nil {
		return nil, faults.Configuration("engine.new", "session store is required")
	}
	if deps.Workflow == nil {
		return nil, faults.Configuration("engine.new", "workflow manager is required")
	}
	if deps.Broadcaster == nil {
		return nil, faults.Configuration("engine.new", "broadcaster is required")
	}

	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultReplyTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	e := &Engine{
		logger:      deps.Logger,
		sessions:    deps.Sessions,
		workflow:    deps.Workflow,
		scenes:      deps.Scenes,
		classifier:  deps.Classifier,
		routing:     deps.Routing,
		location:    deps.Location,
		knowledge:   deps.Knowledge,
		tools:       deps.Tools,
		reference:   deps.Reference,
		audit:       deps.Audit,
		broadcaster: deps.Broadcaster,
		dispatcher:  deps.Dispatcher,
		backends:    deps.Backends,
		opts:        opts,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.scenes == nil {
		e.scenes = scene.NewTracker()
	}
	if e.classifier == nil {
		e.classifier = intent.NewClassifier(e.logger, nil, opts.CollaboratorTimeout)
	}
	if e.location == nil {
		e.location = location.Static{Coordinates: opts.DefaultLocation}
	}
	if e.knowledge == nil {
		e.knowledge = knowledge.None{}
	}
	if e.tools == nil {
		e.tools = tools.NewRegistry()
	}
	if e.reference == nil {
		e.reference = reference.Builtin()
	}
	return e, nil
}

// ReceiveInput accepts ev and processes it in the background; the result is
// delivered through the broadcaster. Only a malformed event or a closed
// engine is reported to the caller.
func (e *Engine) ReceiveInput(ctx context.Context, ev types.InputEvent) error {
	if err := ev.Validate(); err != nil {
		return faults.Validation("engine.receive_input", err.Error())
	}

	if !e.acquire() {
		return ErrClosed
	}

	// Accepted inputs run to completion even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer e.inflight.Done()
		e.process(runCtx, ev)
	}()
	return nil
}

// Process runs one input synchronously and returns the response it
// published. After Close it publishes nothing and returns an apology
// carrying metadata.error_kind.
func (e *Engine) Process(ctx context.Context, ev types.InputEvent) types.NormalizedResponse {
	if !e.acquire() {
		return e.failure(ev, types.ResponseText, faults.New(faults.KindInternal, "engine.process", ErrClosed.Error()), internalApology)
	}
	defer e.inflight.Done()
	return e.process(ctx, ev)
}

// acquire takes an in-flight slot for one pass. Background work started by
// the pass, such as audit writes, is added while the slot is held so Close
// never races a zero-count Add.
func (e *Engine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.inflight.Add(1)
	return true
}

func (e *Engine) process(ctx context.Context, ev types.InputEvent) (resp types.NormalizedResponse) {
	if ev.EventID == "" {
		ev.EventID = ids.New()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = e.opts.Now()
	}
	logger := e.logger.With(
		zap.String("event_id", ev.EventID),
		zap.String("tenant_id", ev.TenantID),
		zap.String("user_id", ev.UserID),
	)

	published := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("input processing panicked", zap.Any("panic", r), zap.Stack("stack"))
		if published {
			return
		}
		resp = e.failure(ev, types.ResponseText, faults.New(faults.KindInternal, "engine.process", fmt.Sprint(r)), internalApology)
		e.publish(ctx, logger, resp)
	}()

	if rating, ok := parseRating(ev.Content); ok {
		resp = e.handleFeedback(ctx, ev, rating)
		published = true
		e.publish(ctx, logger, resp)
		return resp
	}

	key := ev.Key()
	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		return e.sessions.AppendMessage(ctx, key, types.RoleUser, ev.Content)
	}); err != nil {
		logger.Warn("append message failed, continuing without persistence", zap.Error(err))
	}
	history := e.recentHistory(ctx, logger, key, ev)

	current := e.scenes.Get(key)
	result := e.classifier.Classify(ctx, ev.Content, current, history)
	updated, changed := e.scenes.UpdateForIntent(key, result.Intent)
	desc := action.ResolveAt(result.Intent, e.opts.Now())
	logger.Debug("input classified",
		zap.String("intent", result.Intent.Label),
		zap.String("source", string(result.Source)),
		zap.String("action_kind", string(desc.Kind)),
	)

	t := turn{event: ev, intent: result.Intent, scene: updated, history: history, action: desc, logger: logger}
	resp = e.execute(ctx, t)

	e.recordTurn(ctx, t, result.Source, changed, resp)
	published = true
	e.publish(ctx, logger, resp)
	e.advanceWorkflow(ctx, t, resp)
	return resp
}

// Close stops accepting input, waits for in-flight passes and then drains
// the dispatcher.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.inflight.Wait()
	e.dispatcher.Close()
}

func (e *Engine) Subscribe(key types.SessionKey, listener broadcast.Listener) uint64 {
	return e.broadcaster.Subscribe(key, listener)
}

func (e *Engine) Unsubscribe(key types.SessionKey, id uint64) bool {
	return e.broadcaster.Unsubscribe(key, id)
}

func (e *Engine) SubscriberCount(key types.SessionKey) int {
	return e.broadcaster.SubscriberCount(key)
}

// GetWorkflowState returns workflow.ErrNotFound for a key with no state.
func (e *Engine) GetWorkflowState(ctx context.Context, tenantID, userID string) (types.WorkflowState, error) {
	key := types.NewSessionKey(tenantID, userID)
	if err := key.Validate(); err != nil {
		return types.WorkflowState{}, faults.Validation("engine.get_workflow_state", err.Error())
	}
	return e.workflow.GetCurrent(ctx, key)
}

func (e *Engine) GetWorkflowSuggestions(ctx context.Context, tenantID, userID string) ([]types.SuggestedAction, error) {
	key := types.NewSessionKey(tenantID, userID)
	if err := key.Validate(); err != nil {
		return nil, faults.Validation("engine.get_workflow_suggestions", err.Error())
	}
	return e.workflow.SuggestNextActions(ctx, key)
}

func (e *Engine) ResetWorkflow(ctx context.Context, tenantID, userID string) error {
	key := types.NewSessionKey(tenantID, userID)
	if err := key.Validate(); err != nil {
		return faults.Validation("engine.reset_workflow", err.Error())
	}
	return e.workflow.Reset(ctx, key)
}

// ResetSession clears conversation history, action log, situational data and
// scene context for the key. Workflow state is reset separately.
func (e *Engine) ResetSession(ctx context.Context, tenantID, userID string) error {
	key := types.NewSessionKey(tenantID, userID)
	if err := key.Validate(); err != nil {
		return faults.Validation("engine.reset_session", err.Error())
	}
	if err := e.sessions.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	e.scenes.Forget(key)
	return nil
}

// turn carries one pass's intermediate values through the handlers.
type turn struct {
	event   types.InputEvent
	intent  types.Intent
	scene   types.SceneContext
	history []types.ConversationEntry
	action  types.ActionDescriptor
	logger  *zap.Logger
}

func (e *Engine) recentHistory(ctx context.Context, logger *zap.Logger, key types.SessionKey, ev types.InputEvent) []types.ConversationEntry {
	rec, err := deadline.Call(ctx, e.opts.CollaboratorTimeout, func(ctx context.Context) (types.SessionRecord, error) {
		return e.sessions.Get(ctx, key)
	})
	if err != nil || len(rec.ConversationHistory) == 0 {
		if err != nil {
			logger.Warn("load session failed, using current input only", zap.Error(err))
		}
		return []types.ConversationEntry{{Role: types.RoleUser, Content: ev.Content, Timestamp: ev.ReceivedAt}}
	}
	return rec.RecentHistory(e.opts.HistoryWindow)
}

func (e *Engine) recordTurn(ctx context.Context, t turn, source intent.Source, sceneChanged bool, resp types.NormalizedResponse) {
	key := t.event.Key()
	actionDetails := map[string]any{
		"event_id":   t.event.EventID,
		"intent":     t.intent.Label,
		"confidence": t.intent.Confidence,
		"priority":   string(t.intent.Priority),
		"source":     string(source),
		"params":     t.action.Params,
	}
	situational := map[string]any{
		"last_intent":   t.intent.Label,
		"last_priority": string(t.intent.Priority),
	}
	if sceneChanged {
		situational["scenario_type"] = t.scene.ScenarioType
		situational["threat_level"] = string(t.scene.ThreatLevel)
	}
	responseDetails := map[string]any{
		"response_id":   resp.ResponseID,
		"response_kind": string(resp.ResponseKind),
		"content":       resp.Content,
	}
	if kind, ok := resp.Metadata[metaErrorKind]; ok {
		responseDetails[metaErrorKind] = kind
	}

	err := e.withTimeout(ctx, func(ctx context.Context) error {
		return errors.Join(
			e.sessions.AppendAction(ctx, key, string(t.action.Kind), actionDetails),
			e.sessions.MergeSituationalData(ctx, key, situational),
			e.sessions.AppendAction(ctx, key, actionTypeResponse, responseDetails),
		)
	})
	if err != nil {
		t.logger.Warn("record turn failed", zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, logger *zap.Logger, resp types.NormalizedResponse) {
	delivered, err := e.broadcaster.Publish(resp)
	if err != nil {
		logger.Warn("listener delivery failed", zap.String("response_id", resp.ResponseID), zap.Error(err))
	}
	if delivered == 0 {
		logger.Debug("no listeners for response", zap.String("response_id", resp.ResponseID))
	}
	e.dispatcher.Dispatch(ctx, resp)
}

func (e *Engine) advanceWorkflow(ctx context.Context, t turn, resp types.NormalizedResponse) {
	step := StepResponded
	if _, failed := resp.Metadata[metaErrorKind]; failed {
		step = StepRespondedWithError
	}
	partial := map[string]any{
		types.WorkflowFieldCurrentStep: step,
		types.WorkflowFieldLastAction:  t.intent.Label,
		types.WorkflowFieldSituation:   t.scene.ScenarioType,
		types.WorkflowFieldTimestamp:   e.opts.Now().UnixMilli(),
		"threatLevel":                  string(t.scene.ThreatLevel),
		"lastActionKind":               string(t.action.Kind),
	}
	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		_, err := e.workflow.Update(ctx, t.event.Key(), partial)
		return err
	}); err != nil {
		t.logger.Warn("workflow update failed", zap.Error(err))
	}
}

// logAudit writes entry in the background. Audit failures never touch the
// response path. Callers hold the pass's in-flight slot.
func (e *Engine) logAudit(ctx context.Context, logger *zap.Logger, entry audit.Entry) {
	if e.audit == nil {
		return
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = e.opts.Now()
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultAuditTimeout)
		defer cancel()
		if err := e.audit.Log(auditCtx, entry); err != nil {
			logger.Warn("audit log failed", zap.String("event_type", entry.EventType), zap.Error(err))
		}
	}()
}

// withTimeout returns once fn does or CollaboratorTimeout passes, whichever
// comes first.
func (e *Engine) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	return deadline.Do(ctx, e.opts.CollaboratorTimeout, fn)
}

func (e *Engine) respond(ev types.InputEvent, kind types.ResponseKind, content string, metadata map[string]any) types.NormalizedResponse {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return types.NormalizedResponse{
		ResponseID:   ids.New(),
		TenantID:     ev.TenantID,
		UserID:       ev.UserID,
		ResponseKind: kind,
		Content:      strings.TrimSpace(content),
		Metadata:     metadata,
		CreatedAt:    e.opts.Now(),
	}
}

// failure builds a response for a handled fault. metadata.error_kind names
// the fault kind.
func (e *Engine) failure(ev types.InputEvent, kind types.ResponseKind, err error, content string) types.NormalizedResponse {
	resp := e.respond(ev, kind, content, nil)
	resp.Metadata[metaErrorKind] = string(faults.KindOf(err))
	return resp
}
