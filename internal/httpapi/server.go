package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lonkyzooner/thunderfire-sub002/internal/engine"
	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/ids"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
	"github.com/lonkyzooner/thunderfire-sub002/internal/workflow"
)

const (
	maxInputBodyBytes int64 = 1 << 20
	streamBuffer            = 32
	streamWriteTimeout      = 10 * time.Second
)

var errSlowConsumer = errors.New("stream consumer too slow")

type Options struct {
	// InputRate and InputBurst bound POST /v1/inputs per session key. A
	// non-positive rate disables throttling.
	InputRate  float64
	InputBurst int
	// StreamBuffer is how many responses a stream connection may fall
	// behind before it is closed. Zero means 32.
	StreamBuffer int
}

type server struct {
	logger       *zap.Logger
	engine       *engine.Engine
	limiters     *limiterSet
	streamBuffer int
}

func NewServer(logger *zap.Logger, addr string, eng *engine.Engine, opts Options) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(logger, eng, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func NewHandler(logger *zap.Logger, eng *engine.Engine, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{
		logger:       logger,
		engine:       eng,
		limiters:     newLimiterSet(opts.InputRate, opts.InputBurst),
		streamBuffer: opts.StreamBuffer,
	}
	if s.streamBuffer <= 0 {
		s.streamBuffer = streamBuffer
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/inputs", s.handleInputs)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.HandleFunc("/v1/workflow", s.handleWorkflow)
	mux.HandleFunc("/v1/workflow/suggestions", s.handleSuggestions)
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type inputRequest struct {
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id"`
	InputKind string         `json:"input_kind"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (s *server) handleInputs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req inputRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxInputBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if dec.More() {
		http.Error(w, "invalid json: trailing content", http.StatusBadRequest)
		return
	}

	ev := types.InputEvent{
		EventID:    ids.New(),
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		InputKind:  types.InputKind(strings.TrimSpace(req.InputKind)),
		Content:    req.Content,
		Metadata:   req.Metadata,
		ReceivedAt: time.Now().UTC(),
	}
	if err := ev.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid input: %v", err), http.StatusBadRequest)
		return
	}
	if !s.limiters.allow(ev.Key()) {
		http.Error(w, "too many inputs", http.StatusTooManyRequests)
		return
	}

	if err := s.engine.ReceiveInput(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, faults.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, engine.ErrClosed):
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		default:
			s.logger.Error("accept input failed", zap.String("event_id", ev.EventID), zap.Error(err))
			http.Error(w, "failed to accept input", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"event_id": ev.EventID,
	})
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key, ok := sessionKeyFromQuery(w, r)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: isWebSocketOriginAllowed}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan types.NormalizedResponse, s.streamBuffer)
	// overflow is closed once the buffer fills; the connection is then
	// closed instead of silently skipping responses.
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	id := s.engine.Subscribe(key, func(resp types.NormalizedResponse) error {
		select {
		case send <- resp:
			return nil
		default:
			overflowOnce.Do(func() { close(overflow) })
			return errSlowConsumer
		}
	})
	defer s.engine.Unsubscribe(key, id)

	// The client never sends anything meaningful; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-overflow:
			s.closeSlowStream(conn, key)
			return
		default:
		}

		select {
		case <-closed:
			return
		case <-overflow:
			s.closeSlowStream(conn, key)
			return
		case resp := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(resp); err != nil {
				s.logger.Debug("stream write failed", zap.String("tenant_id", key.TenantID), zap.String("user_id", key.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (s *server) closeSlowStream(conn *websocket.Conn, key types.SessionKey) {
	s.logger.Warn("closing slow stream consumer", zap.String("tenant_id", key.TenantID), zap.String("user_id", key.UserID))
	msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, errSlowConsumer.Error())
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout))
}

func (s *server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	key, ok := sessionKeyFromQuery(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		state, err := s.engine.GetWorkflowState(r.Context(), key.TenantID, key.UserID)
		if errors.Is(err, workflow.ErrNotFound) {
			http.Error(w, "workflow state not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.writeError(w, "get workflow state", err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case http.MethodDelete:
		if err := s.engine.ResetWorkflow(r.Context(), key.TenantID, key.UserID); err != nil {
			s.writeError(w, "reset workflow", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key, ok := sessionKeyFromQuery(w, r)
	if !ok {
		return
	}
	suggestions, err := s.engine.GetWorkflowSuggestions(r.Context(), key.TenantID, key.UserID)
	if err != nil {
		s.writeError(w, "get workflow suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key, ok := sessionKeyFromQuery(w, r)
	if !ok {
		return
	}
	if err := s.engine.ResetSession(r.Context(), key.TenantID, key.UserID); err != nil {
		s.writeError(w, "reset session", err)
		return
	}
	s.limiters.forget(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, faults.ErrValidation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error(op+" failed", zap.Error(err))
	http.Error(w, op+" failed", http.StatusInternalServerError)
}

func sessionKeyFromQuery(w http.ResponseWriter, r *http.Request) (types.SessionKey, bool) {
	q := r.URL.Query()
	key := types.NewSessionKey(q.Get("tenant_id"), q.Get("user_id"))
	if err := key.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return types.SessionKey{}, false
	}
	return key, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func isWebSocketOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsedOrigin, err := url.Parse(origin)
	if err != nil || strings.TrimSpace(parsedOrigin.Host) == "" {
		return false
	}
	return strings.EqualFold(parsedOrigin.Host, r.Host)
}

// limiterSet holds one token bucket per session key.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[types.SessionKey]*rate.Limiter
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[types.SessionKey]*rate.Limiter),
	}
}

func (l *limiterSet) allow(key types.SessionKey) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *limiterSet) forget(key types.SessionKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}
