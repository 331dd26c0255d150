package tasks

import (
	"context"
	"sync"
)

// InMemory runs tasks on goroutines, at most the configured number at once.
// Results live as long as the process.
type InMemory struct {
	store
	base   context.Context
	stop   context.CancelFunc
	slots  chan struct{}
	wg     sync.WaitGroup
	closed bool
}

var _ Backend = (*InMemory)(nil)

// NewInMemory creates an InMemory backend.
func NewInMemory(opts ...Option) *InMemory {
	c := newConfig(opts)
	b := &InMemory{slots: make(chan struct{}, c.workers)}
	b.init(c)
	b.base, b.stop = context.WithCancel(context.Background())
	return b
}

// Enqueue schedules t and returns its pending result.
func (b *InMemory) Enqueue(t *Task, sessionID, key string) (Result, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Result{}, ErrClosed
	}
	e := b.addLocked(t, sessionID, key)
	ctx, cancel := context.WithCancel(b.base)
	e.cancel = cancel
	res := e.res
	b.wg.Add(1)
	b.mu.Unlock()

	go b.work(ctx, e, t)
	return res, nil
}

func (b *InMemory) work(ctx context.Context, e *entry, t *Task) {
	defer b.wg.Done()
	defer e.cancel()

	select {
	case b.slots <- struct{}{}:
		defer func() { <-b.slots }()
	case <-ctx.Done():
		b.mu.Lock()
		b.cancelLocked(e)
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	if e.res.Finished() {
		b.mu.Unlock()
		return
	}
	e.res.setRunning(b.now())
	b.mu.Unlock()

	v, err := run(ctx, t)

	b.mu.Lock()
	b.settleLocked(e, v, err)
	b.mu.Unlock()
}

// Close cancels unfinished tasks and waits for their goroutines to return.
func (b *InMemory) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.stop()
	b.wg.Wait()
	return nil
}
