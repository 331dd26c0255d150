// Package tasks lets handlers start work that outlives a single hook call and
// pick up its result on a later call of the same session.
//
// A handler reads its session's view from the context:
//
//	t, _ := tasks.FromContext(ctx)
//	if v, found := t.Pop("memory"); found {
//		return domain.BlockResponse(fmt.Sprint(v)), nil
//	}
//	return nil, t.Add(lookup, "memory")
package tasks

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a finished result stays retrievable.
const DefaultTTL = 5 * time.Minute

var (
	// ErrNotFound reports a key with no result in the session.
	ErrNotFound = errors.New("task result not found")
	// ErrCancelled is returned by Wait for a cancelled task.
	ErrCancelled = errors.New("task cancelled")
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("task backend closed")
)

// Func is the body of a task. ctx is cancelled by Cancel and Close.
type Func func(ctx context.Context) (any, error)

// Task is a named unit of background work.
type Task struct {
	Name      string
	Priority  int
	TTL       time.Duration
	Fn        Func
	Transform func(any) any
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithPriority records a scheduling hint. The bundled backends run tasks in
// submission order.
func WithPriority(p int) TaskOption {
	return func(t *Task) { t.Priority = p }
}

// WithTTL sets how long the result is kept once finished. Zero expires the
// result as soon as it is next looked at.
func WithTTL(d time.Duration) TaskOption {
	return func(t *Task) {
		if d >= 0 {
			t.TTL = d
		}
	}
}

// WithTransform post-processes a successful value.
func WithTransform(fn func(any) any) TaskOption {
	return func(t *Task) { t.Transform = fn }
}

// New creates a task.
func New(name string, fn Func, opts ...TaskOption) *Task {
	t := &Task{Name: name, TTL: DefaultTTL, Fn: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call runs the task synchronously, applying the transform on success.
func (t *Task) Call(ctx context.Context) (any, error) {
	v, err := t.Fn(ctx)
	if err != nil {
		return nil, err
	}
	if t.Transform != nil {
		v = t.Transform(v)
	}
	return v, nil
}

// Status is the lifecycle state of a task result.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result is a snapshot of one enqueued task.
type Result struct {
	ID         string
	SessionID  string
	Key        string
	Status     Status
	Value      any
	Err        error
	TTL        time.Duration
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Finished reports whether the task reached a terminal status.
func (r *Result) Finished() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Expired reports whether the result outlived its TTL at now.
func (r *Result) Expired(now time.Time) bool {
	return !now.Before(r.CreatedAt.Add(r.TTL))
}

func (r *Result) setRunning(now time.Time) {
	r.Status = StatusRunning
	r.StartedAt = now
}

func (r *Result) finish(v any, err error, now time.Time) {
	r.FinishedAt = now
	if err != nil {
		r.Status = StatusFailed
		r.Err = err
		return
	}
	r.Status = StatusCompleted
	r.Value = v
}

func (r *Result) cancel(now time.Time) {
	r.Status = StatusCancelled
	r.FinishedAt = now
}
