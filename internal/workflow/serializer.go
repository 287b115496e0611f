package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const defaultIdleTimeout = 30 * time.Second

var (
	ErrQueueFull        = errors.New("workflow queue full")
	ErrSerializerClosed = errors.New("workflow serializer closed")
)

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Serializer applies writes for one session key in submission order on a
// dedicated goroutine. Different keys proceed in parallel. A worker that
// sees no writes for idleTimeout exits; the next write for its key starts a
// new one.
type Serializer struct {
	logger      *zap.Logger
	queueSize   int
	idleTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	workers map[types.SessionKey]chan job
	wg      sync.WaitGroup
}

func NewSerializer(logger *zap.Logger, queueSize int) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Serializer{
		logger:      logger,
		queueSize:   queueSize,
		idleTimeout: defaultIdleTimeout,
		workers:     make(map[types.SessionKey]chan job),
	}
}

// Do runs fn on the key's worker and waits for it to finish. Once queued the
// write runs to completion even if ctx is cancelled while waiting.
func (s *Serializer) Do(ctx context.Context, key types.SessionKey, fn func(context.Context) error) error {
	j := job{ctx: context.WithoutCancel(ctx), fn: fn, done: make(chan error, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSerializerClosed
	}
	ch := s.workerForLocked(key)
	select {
	case ch <- j:
	default:
		s.mu.Unlock()
		s.logger.Warn("workflow queue full", zap.String("tenant_id", key.TenantID), zap.String("user_id", key.UserID))
		return ErrQueueFull
	}
	s.mu.Unlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Serializer) workerForLocked(key types.SessionKey) chan job {
	if ch, ok := s.workers[key]; ok {
		return ch
	}
	ch := make(chan job, s.queueSize)
	s.workers[key] = ch

	s.wg.Add(1)
	go s.run(key, ch)
	return ch
}

func (s *Serializer) run(key types.SessionKey, ch chan job) {
	defer s.wg.Done()
	idle := time.NewTimer(s.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case j, ok := <-ch:
			if !ok {
				return
			}
			j.done <- j.fn(j.ctx)
			idle.Reset(s.idleTimeout)
		case <-idle.C:
			// Writes are queued under mu, so an empty mailbox here stays empty
			// once the entry is gone.
			s.mu.Lock()
			if len(ch) > 0 {
				s.mu.Unlock()
				idle.Reset(s.idleTimeout)
				continue
			}
			if s.workers[key] == ch {
				delete(s.workers, key)
			}
			s.mu.Unlock()
			return
		}
	}
}

// Close drains queued writes and stops every worker.
func (s *Serializer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for key, ch := range s.workers {
		close(ch)
		delete(s.workers, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
