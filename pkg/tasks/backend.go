package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Backend runs tasks and keeps their results per session and key.
type Backend interface {
	// Enqueue starts t under key, replacing (and cancelling) any earlier task
	// with the same key.
	Enqueue(t *Task, sessionID, key string) (Result, error)
	Get(sessionID, key string) (Result, bool)
	// Pop removes and returns a completed value.
	Pop(sessionID, key string) (any, bool)
	PopAll(sessionID string) map[string]any
	PopErrors(sessionID string) map[string]error
	// Has reports a completed result for key, or for any key when key is "".
	Has(sessionID, key string) bool
	// Cancel stops an unfinished task and reports whether it did.
	Cancel(sessionID, key string) bool
	// Wait blocks until key finishes, then pops it.
	Wait(ctx context.Context, sessionID, key string) (any, error)
	WaitAll(ctx context.Context, sessionID string, keys []string) (map[string]any, error)
	WaitAny(ctx context.Context, sessionID string, keys []string) (string, any, error)
	Close() error
}

// Option configures a backend.
type Option func(*config)

type config struct {
	workers int
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// WithWorkers bounds how many tasks run at once. Ignored by Immediate.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithClock replaces time.Now for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for task failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		workers: 4,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type entry struct {
	res    Result
	done   chan struct{}
	cancel context.CancelFunc
}

// store holds results; every method takes mu.
type store struct {
	config
	mu       sync.Mutex
	sessions map[string]map[string]*entry
}

func (s *store) init(c config) {
	s.config = c
	s.sessions = make(map[string]map[string]*entry)
}

func (s *store) addLocked(t *Task, sessionID, key string) *entry {
	keys := s.sessions[sessionID]
	if keys == nil {
		keys = make(map[string]*entry)
		s.sessions[sessionID] = keys
	}
	if old := keys[key]; old != nil {
		s.cancelLocked(old)
	}
	e := &entry{
		res: Result{
			ID:        s.newID(),
			SessionID: sessionID,
			Key:       key,
			Status:    StatusPending,
			TTL:       t.TTL,
			CreatedAt: s.now(),
		},
		done: make(chan struct{}),
	}
	keys[key] = e
	return e
}

// settleLocked records the outcome of a task unless it already finished.
func (s *store) settleLocked(e *entry, v any, err error) {
	if e.res.Finished() {
		return
	}
	e.res.finish(v, err, s.now())
	close(e.done)
	if err != nil {
		s.logger.Debug("task failed", "session_id", e.res.SessionID, "key", e.res.Key, "error", err)
	}
}

func (s *store) cancelLocked(e *entry) bool {
	if e.res.Finished() {
		return false
	}
	e.res.cancel(s.now())
	close(e.done)
	if e.cancel != nil {
		e.cancel()
	}
	return true
}

// lookupLocked returns the entry for key, dropping it first if expired.
func (s *store) lookupLocked(sessionID, key string) *entry {
	e := s.sessions[sessionID][key]
	if e == nil {
		return nil
	}
	if e.res.Finished() && e.res.Expired(s.now()) {
		s.removeLocked(sessionID, key)
		return nil
	}
	return e
}

func (s *store) removeLocked(sessionID, key string) {
	keys := s.sessions[sessionID]
	delete(keys, key)
	if len(keys) == 0 {
		delete(s.sessions, sessionID)
	}
}

// pruneLocked drops the expired results of a session.
func (s *store) pruneLocked(sessionID string) {
	for key := range s.sessions[sessionID] {
		s.lookupLocked(sessionID, key)
	}
}

func (s *store) Get(sessionID, key string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookupLocked(sessionID, key)
	if e == nil {
		return Result{}, false
	}
	return e.res, true
}

func (s *store) Pop(sessionID, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookupLocked(sessionID, key)
	if e == nil || e.res.Status != StatusCompleted {
		return nil, false
	}
	s.removeLocked(sessionID, key)
	return e.res.Value, true
}

func (s *store) PopAll(sessionID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(sessionID)
	out := make(map[string]any)
	for key, e := range s.sessions[sessionID] {
		if e.res.Status == StatusCompleted {
			out[key] = e.res.Value
			s.removeLocked(sessionID, key)
		}
	}
	return out
}

func (s *store) PopErrors(sessionID string) map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(sessionID)
	out := make(map[string]error)
	for key, e := range s.sessions[sessionID] {
		if e.res.Status == StatusFailed {
			out[key] = e.res.Err
			s.removeLocked(sessionID, key)
		}
	}
	return out
}

func (s *store) Has(sessionID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != "" {
		e := s.lookupLocked(sessionID, key)
		return e != nil && e.res.Status == StatusCompleted
	}
	s.pruneLocked(sessionID)
	for _, e := range s.sessions[sessionID] {
		if e.res.Status == StatusCompleted {
			return true
		}
	}
	return false
}

func (s *store) Cancel(sessionID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookupLocked(sessionID, key)
	return e != nil && s.cancelLocked(e)
}

func (s *store) Wait(ctx context.Context, sessionID, key string) (any, error) {
	s.mu.Lock()
	e := s.lookupLocked(sessionID, key)
	s.mu.Unlock()
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.take(sessionID, key, e)
}

// take pops the finished entry e unless it was replaced meanwhile.
func (s *store) take(sessionID, key string, e *entry) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionID][key] == e {
		s.removeLocked(sessionID, key)
	}
	switch e.res.Status {
	case StatusCompleted:
		return e.res.Value, nil
	case StatusFailed:
		return nil, e.res.Err
	default:
		return nil, fmt.Errorf("%w: %s", ErrCancelled, key)
	}
}

func (s *store) WaitAll(ctx context.Context, sessionID string, keys []string) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		v, err := s.Wait(ctx, sessionID, key)
		if err != nil {
			return out, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// WaitAny returns the first of keys to finish. Keys with no task are ignored
// unless none of keys has one.
func (s *store) WaitAny(ctx context.Context, sessionID string, keys []string) (string, any, error) {
	s.mu.Lock()
	entries := make(map[string]*entry, len(keys))
	for _, key := range keys {
		if e := s.lookupLocked(sessionID, key); e != nil {
			entries[key] = e
		}
	}
	s.mu.Unlock()
	if len(entries) == 0 {
		return "", nil, ErrNotFound
	}

	for _, key := range keys {
		if e := entries[key]; e != nil && isClosed(e.done) {
			v, err := s.take(sessionID, key, e)
			return key, v, err
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	first := make(chan string, len(entries))
	for key, e := range entries {
		go func() {
			select {
			case <-e.done:
				first <- key
			case <-stop:
			}
		}()
	}
	select {
	case key := <-first:
		v, err := s.take(sessionID, key, entries[key])
		return key, v, err
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// run executes t, turning a panic into a failure.
func run(ctx context.Context, t *Task) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	return t.Call(ctx)
}
