package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	backend "github.com/redis/go-redis/v9"
)

// Stream forwards events to a Redis stream, one entry per event.
//
// Entries of an invocation are queued and sent in a single pipeline when the
// invocation terminates, so a slow or absent server costs one round trip per
// hook rather than one per event.
type Stream struct {
	client  *backend.Client
	key     string
	maxLen  int64
	timeout time.Duration
	logger  *slog.Logger
	pending map[string][]*backend.XAddArgs
	mu      sync.Mutex
}

var _ observability.Observer = (*Stream)(nil)

// Option configures a Stream.
type Option func(*Stream)

// WithKey sets the stream key. Default: "fasthooks:events".
func WithKey(key string) Option {
	return func(s *Stream) {
		if key != "" {
			s.key = key
		}
	}
}

// WithMaxLen caps the stream length (approximate trimming). Zero disables it.
func WithMaxLen(n int64) Option {
	return func(s *Stream) {
		s.maxLen = n
	}
}

// WithTimeout bounds each flush.
func WithTimeout(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Stream connected to the given URL (e.g., "redis://localhost:6379/0").
func New(url string, opts ...Option) (*Stream, error) {
	parsed, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(parsed), opts...), nil
}

// NewFromClient creates a Stream with an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Stream {
	s := &Stream{
		client:  client,
		key:     "fasthooks:events",
		maxLen:  10000,
		timeout: 2 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending: make(map[string][]*backend.XAddArgs),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) Name() string { return "redis:" + s.key }

// Key returns the stream key.
func (s *Stream) Key() string { return s.key }

func (s *Stream) OnHookStart(ev *domain.Event, _ *domain.ObserverContext)    { s.queue(ev) }
func (s *Stream) OnHandlerStart(ev *domain.Event, _ *domain.ObserverContext) { s.queue(ev) }
func (s *Stream) OnHandlerEnd(ev *domain.Event, _ *domain.ObserverContext)   { s.queue(ev) }
func (s *Stream) OnHandlerSkip(ev *domain.Event, _ *domain.ObserverContext)  { s.queue(ev) }
func (s *Stream) OnHandlerError(ev *domain.Event, _ *domain.ObserverContext) { s.queue(ev) }

func (s *Stream) OnHookEnd(ev *domain.Event, _ *domain.ObserverContext) {
	s.queue(ev)
	s.flush(ev.HookID)
}

func (s *Stream) OnHookError(ev *domain.Event, _ *domain.ObserverContext) {
	s.queue(ev)
	s.flush(ev.HookID)
}

func (s *Stream) queue(ev *domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("failed to encode event", "hook_id", ev.HookID, "err", err)
		return
	}
	args := &backend.XAddArgs{
		Stream: s.key,
		Values: map[string]any{
			"event_type": ev.Kind.String(),
			"hook_id":    ev.HookID,
			"session_id": ev.SessionID,
			"payload":    string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	s.mu.Lock()
	s.pending[ev.HookID] = append(s.pending[ev.HookID], args)
	s.mu.Unlock()
}

func (s *Stream) flush(hookID string) {
	s.mu.Lock()
	entries := s.pending[hookID]
	delete(s.pending, hookID)
	s.mu.Unlock()
	if len(entries) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
		for _, args := range entries {
			pipe.XAdd(ctx, args)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to forward events", "stream", s.key, "hook_id", hookID, "count", len(entries), "err", err)
	}
}

// Pending returns the number of invocations whose events have not been sent.
func (s *Stream) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Read returns up to count events from the start of the stream.
func (s *Stream) Read(ctx context.Context, count int64) ([]domain.Event, error) {
	msgs, err := s.client.XRangeN(ctx, s.key, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	events := make([]domain.Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["payload"].(string)
		if !ok {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return events, fmt.Errorf("entry %s: %w", msg.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Close closes the underlying client. Unterminated invocations are dropped.
func (s *Stream) Close() error {
	return s.client.Close()
}
