package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/subscribers"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// Dispatcher hands each response to every subscriber on its own goroutine,
// retrying failures a bounded number of times.
type Dispatcher struct {
	logger       *zap.Logger
	subscribers  []subscribers.Subscriber
	retryCount   int
	retryBackoff time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(logger *zap.Logger, subs []subscribers.Subscriber) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger:       logger,
		subscribers:  subs,
		retryCount:   3,
		retryBackoff: 150 * time.Millisecond,
		stop:         make(chan struct{}),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, resp types.NormalizedResponse) {
	if d == nil {
		return
	}
	select {
	case <-d.stop:
		return
	default:
	}
	ctx = context.WithoutCancel(ctx)
	for _, sub := range d.subscribers {
		d.wg.Add(1)
		go d.dispatchOne(ctx, sub, resp)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, sub subscribers.Subscriber, resp types.NormalizedResponse) {
	defer d.wg.Done()
	for attempt := 1; attempt <= d.retryCount; attempt++ {
		err := sub.Handle(ctx, resp)
		if err == nil {
			return
		}

		d.logger.Warn("subscriber failed",
			zap.String("subscriber", sub.Name()),
			zap.String("response_id", resp.ResponseID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == d.retryCount {
			return
		}

		select {
		case <-d.stop:
			return
		case <-time.After(d.retryBackoff):
		}
	}
}

// Close abandons pending retries and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() { close(d.stop) })
	d.wg.Wait()
}
