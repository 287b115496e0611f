package intent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/deadline"
	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// Backend is the primary classification collaborator.
type Backend interface {
	Initialize(ctx context.Context) error
	Classify(ctx context.Context, text string, scene types.SceneContext, history []types.ConversationEntry) (types.Intent, error)
}

type Source string

const (
	SourcePrimary   Source = "primary"
	SourceHeuristic Source = "heuristic"
)

type Result struct {
	Intent types.Intent
	Source Source
}

// Classifier uses the primary backend once it has initialized and falls
// back to Heuristic until then, or whenever the backend errors.
type Classifier struct {
	logger  *zap.Logger
	backend Backend
	timeout time.Duration

	ready     atomic.Bool
	startOnce sync.Once
	done      chan struct{}
}

func NewClassifier(logger *zap.Logger, backend Backend, timeout time.Duration) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Classifier{
		logger:  logger,
		backend: backend,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Start initializes the backend in the background. Failure leaves the
// classifier in heuristic mode for the process lifetime.
func (c *Classifier) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		if c.backend == nil {
			c.logger.Info("no classification backend configured, using heuristic")
			close(c.done)
			return
		}
		go func() {
			defer close(c.done)
			if err := deadline.Do(ctx, c.timeout, c.backend.Initialize); err != nil {
				c.logger.Warn("classification backend unavailable, using heuristic", zap.Error(err))
				return
			}
			c.ready.Store(true)
			c.logger.Info("classification backend ready")
		}()
	})
}

// Wait blocks until Start's initialization attempt has finished.
func (c *Classifier) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Classifier) Ready() bool {
	return c.ready.Load()
}

func (c *Classifier) Classify(ctx context.Context, text string, scene types.SceneContext, history []types.ConversationEntry) Result {
	if !c.Ready() {
		return Result{Intent: Heuristic(text), Source: SourceHeuristic}
	}

	got, err := deadline.Call(ctx, c.timeout, func(ctx context.Context) (types.Intent, error) {
		return c.backend.Classify(ctx, text, scene, history)
	})
	if err == nil {
		err = validate(got)
	}
	if err != nil {
		c.logger.Warn("classification failed, using heuristic", zap.Error(faults.Unavailable("intent.classify", err)))
		return Result{Intent: Heuristic(text), Source: SourceHeuristic}
	}
	return Result{Intent: normalize(got), Source: SourcePrimary}
}

func validate(in types.Intent) error {
	if in.Label == "" {
		return faults.Validation("intent.classify", "backend returned empty label")
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return faults.Validation("intent.classify", "confidence out of range")
	}
	if _, ok := types.ParsePriority(string(in.Priority)); !ok {
		return faults.Validation("intent.classify", "unknown priority "+string(in.Priority))
	}
	return nil
}

func normalize(in types.Intent) types.Intent {
	if in.Entities == nil {
		in.Entities = map[string]any{}
	}
	if in.SuggestedFollowups == nil {
		in.SuggestedFollowups = []string{}
	}
	return in
}
