package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
)

// DefaultBufferSize is the amount of buffered JSON after which the sink
// flushes even if the invocation has not finished.
const DefaultBufferSize = 64 * 1024

// Sink appends one JSON object per event to a file.
//
// Events are buffered and written with a single append per flush, so lines
// from concurrent processes sharing the file do not interleave. A flush always
// happens before OnHookEnd or OnHookError returns.
type Sink struct {
	path       string
	file       *os.File
	buf        bytes.Buffer
	bufferSize int
	fsync      bool
	logger     *slog.Logger
	mu         sync.Mutex
}

var _ observability.Observer = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithBufferSize sets the early-flush threshold in bytes.
func WithBufferSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithFsync makes the sink fsync the file at the end of every invocation.
func WithFsync(enabled bool) Option {
	return func(s *Sink) {
		s.fsync = enabled
	}
}

// WithLogger sets the logger used to report write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (or creates) a JSONL file for appending.
func Open(path string, opts ...Option) (*Sink, error) {
	if path == "" {
		path = filepath.Join(".fasthooks", "events.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	s := &Sink{
		path:       path,
		file:       f,
		bufferSize: DefaultBufferSize,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name identifies the sink in containment warnings.
func (s *Sink) Name() string {
	return "jsonl:" + s.path
}

// Path returns the file the sink appends to.
func (s *Sink) Path() string {
	return s.path
}

func (s *Sink) OnHookStart(ev *domain.Event, _ *domain.ObserverContext)    { s.append(ev, false) }
func (s *Sink) OnHandlerStart(ev *domain.Event, _ *domain.ObserverContext) { s.append(ev, false) }
func (s *Sink) OnHandlerEnd(ev *domain.Event, _ *domain.ObserverContext)   { s.append(ev, false) }
func (s *Sink) OnHandlerSkip(ev *domain.Event, _ *domain.ObserverContext)  { s.append(ev, false) }
func (s *Sink) OnHandlerError(ev *domain.Event, _ *domain.ObserverContext) { s.append(ev, false) }
func (s *Sink) OnHookEnd(ev *domain.Event, _ *domain.ObserverContext)      { s.append(ev, true) }
func (s *Sink) OnHookError(ev *domain.Event, _ *domain.ObserverContext)    { s.append(ev, true) }

func (s *Sink) append(ev *domain.Event, terminal bool) {
	line, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("failed to encode event", "hook_id", ev.HookID, "event", ev.Kind.String(), "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(line)
	s.buf.WriteByte('\n')
	if terminal || s.buf.Len() >= s.bufferSize {
		if err := s.flushLocked(terminal && s.fsync); err != nil {
			s.logger.Warn("failed to flush event log", "path", s.path, "err", err)
		}
	}
}

// Flush writes any buffered events.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(false)
}

func (s *Sink) flushLocked(sync bool) error {
	if s.file == nil {
		return os.ErrClosed
	}
	if s.buf.Len() > 0 {
		_, err := s.file.Write(s.buf.Bytes())
		s.buf.Reset()
		if err != nil {
			return err
		}
	}
	if sync {
		return s.file.Sync()
	}
	return nil
}

// Close flushes and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	flushErr := s.flushLocked(true)
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
