package neural

import (
	"context"
	"sync"
)

// fifoLock is a mutual-exclusion lock that grants ownership in arrival order.
// Unlock hands the lock directly to the oldest waiter, so no later arrival
// can barge in between.
type fifoLock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Lock blocks until the lock is owned or ctx is done.
func (l *fifoLock) Lock(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	for i, w := range l.waiters {
		if w == ch {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			l.mu.Unlock()
			return ctx.Err()
		}
	}
	l.mu.Unlock()

	// Ownership was handed over while we were giving up; pass it on.
	l.Unlock()
	return ctx.Err()
}

// Unlock releases the lock to the next waiter, if any.
func (l *fifoLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		panic("neural: unlock of unlocked fifoLock")
	}
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
		return
	}
	l.held = false
}

// queued reports how many callers are waiting.
func (l *fifoLock) queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}
