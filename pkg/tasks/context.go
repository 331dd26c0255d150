package tasks

import (
	"context"
	"errors"
)

// Tasks is one session's view of a backend, handed to handlers through the
// context.
type Tasks struct {
	backend   Backend
	sessionID string
}

// Bind scopes backend to sessionID.
func Bind(backend Backend, sessionID string) *Tasks {
	return &Tasks{backend: backend, sessionID: sessionID}
}

// SessionID returns the session the view is scoped to.
func (t *Tasks) SessionID() string { return t.sessionID }

// Add enqueues task under key. The key defaults to the task name.
func (t *Tasks) Add(task *Task, key string) error {
	if task == nil || task.Fn == nil {
		return errors.New("task has no function")
	}
	if key == "" {
		key = task.Name
	}
	_, err := t.backend.Enqueue(task, t.sessionID, key)
	return err
}

func (t *Tasks) Pop(key string) (any, bool) { return t.backend.Pop(t.sessionID, key) }
func (t *Tasks) PopAll() map[string]any { return t.backend.PopAll(t.sessionID) }
func (t *Tasks) PopErrors() map[string]error { return t.backend.PopErrors(t.sessionID) }
func (t *Tasks) Has(key string) bool { return t.backend.Has(t.sessionID, key) }
func (t *Tasks) Cancel(key string) bool { return t.backend.Cancel(t.sessionID, key) }
func (t *Tasks) Get(key string) (Result, bool) { return t.backend.Get(t.sessionID, key) }

func (t *Tasks) Wait(ctx context.Context, key string) (any, error) {
	return t.backend.Wait(ctx, t.sessionID, key)
}

func (t *Tasks) WaitAll(ctx context.Context, keys ...string) (map[string]any, error) {
	return t.backend.WaitAll(ctx, t.sessionID, keys)
}

func (t *Tasks) WaitAny(ctx context.Context, keys ...string) (string, any, error) {
	return t.backend.WaitAny(ctx, t.sessionID, keys)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t *Tasks) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the Tasks stored in ctx.
func FromContext(ctx context.Context) (*Tasks, bool) {
	t, ok := ctx.Value(contextKey{}).(*Tasks)
	return t, ok && t != nil
}
