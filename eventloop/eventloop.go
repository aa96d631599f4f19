// Package eventloop provides the cooperative completion loop that stands in
// for a host main thread.
//
// Asynchronous storage operations run on background goroutines but never
// touch application state directly: each posts exactly one completion
// function to a Loop, and the application pumps the loop from the goroutine
// that owns the settings objects. Completions therefore never run
// concurrently with application code, which is what allows the rest of the
// system to stay single-threaded and lock-free above the storage layer.
//
// A loop has exactly one consumer. Any number of goroutines may Post, but
// only the owning goroutine is meant to call Tick, Wait, or Run.
package eventloop

import (
	"context"
	"sync"
)

type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues a completion for the next Tick. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Tick runs queued completions on the calling goroutine until the queue is
// empty, including completions posted while draining. Returns the number of
// completions run.
func (l *Loop) Tick() int {
	count := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return count
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		count += len(batch)
	}
}

// Wait blocks until at least one completion is queued or the context ends.
func (l *Loop) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		pending := len(l.queue) > 0
		l.mu.Unlock()
		if pending {
			return nil
		}

		select {
		case <-l.wake:
			// The token may be left over from a batch an earlier Tick
			// already drained; only a non-empty queue ends the wait.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run pumps the loop until done reports true or the context ends. It checks
// the predicate before waiting, so a loop that is already done never blocks.
func (l *Loop) Run(ctx context.Context, done func() bool) error {
	for !done() {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		l.Tick()
	}
	return nil
}

// Len returns the number of queued completions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
