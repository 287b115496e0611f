// Package broadcast fans normalized responses out to the listeners
// currently subscribed for a session key.
package broadcast

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

type Listener func(types.NormalizedResponse) error

type subscription struct {
	id       uint64
	listener Listener
}

// Broadcaster delivers synchronously, in subscription order. There is no
// buffering: a listener only sees responses published while it is
// subscribed.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[types.SessionKey][]subscription
}

func New() *Broadcaster {
	return &Broadcaster{subs: make(map[types.SessionKey][]subscription)}
}

// Subscribe registers listener and returns the id to pass to Unsubscribe.
func (b *Broadcaster) Subscribe(key types.SessionKey, listener Listener) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[key] = append(b.subs[key], subscription{id: b.nextID, listener: listener})
	return b.nextID
}

func (b *Broadcaster) Unsubscribe(key types.SessionKey, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.subs[key]
	for i, s := range current {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, key)
		} else {
			b.subs[key] = next
		}
		return true
	}
	return false
}

func (b *Broadcaster) SubscriberCount(key types.SessionKey) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key])
}

// Publish calls every listener for the response's key. A failing or
// panicking listener does not stop delivery to the rest; their errors are
// joined into the result. It returns the number of listeners called.
func (b *Broadcaster) Publish(resp types.NormalizedResponse) (int, error) {
	b.mu.RLock()
	snapshot := append([]subscription(nil), b.subs[resp.Key()]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range snapshot {
		if err := deliver(s, resp); err != nil {
			errs = append(errs, err)
		}
	}
	return len(snapshot), errors.Join(errs...)
}

func deliver(s subscription, resp types.NormalizedResponse) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %d panicked: %v", s.id, r)
		}
	}()
	if lerr := s.listener(resp); lerr != nil {
		return fmt.Errorf("listener %d: %w", s.id, lerr)
	}
	return nil
}
