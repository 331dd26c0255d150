package tasks

import "context"

// Immediate runs each task inside Enqueue, so its result is ready on return.
// It suits tests and one-shot processes.
type Immediate struct {
	store
}

var _ Backend = (*Immediate)(nil)

// NewImmediate creates an Immediate backend.
func NewImmediate(opts ...Option) *Immediate {
	b := &Immediate{}
	b.init(newConfig(opts))
	return b
}

func (b *Immediate) Enqueue(t *Task, sessionID, key string) (Result, error) {
	b.mu.Lock()
	e := b.addLocked(t, sessionID, key)
	e.res.setRunning(b.now())
	b.mu.Unlock()

	v, err := run(context.Background(), t)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.settleLocked(e, v, err)
	return e.res, nil
}

func (b *Immediate) Close() error { return nil }
