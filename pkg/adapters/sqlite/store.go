// Package sqlite persists hook events into a relational schema: one row per
// invocation, one per handler execution and one per error.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"

	_ "modernc.org/sqlite"
)

// DefaultBatchSize is the number of buffered events of one invocation that
// triggers an early flush.
const DefaultBatchSize = 64

const (
	statusRunning = "running"
	statusOK      = "ok"
	statusError   = "error"
	statusSkipped = "skipped"
)

const schema = `
CREATE TABLE IF NOT EXISTS hooks (
	hook_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	hook_event_name TEXT NOT NULL DEFAULT '',
	tool_name TEXT NOT NULL DEFAULT '',
	started_at TEXT,
	ended_at TEXT,
	decision TEXT NOT NULL DEFAULT '',
	duration_ms REAL,
	status TEXT NOT NULL DEFAULT 'running'
);
CREATE TABLE IF NOT EXISTS handler_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hook_id TEXT NOT NULL,
	handler_name TEXT NOT NULL,
	started_at TEXT,
	ended_at TEXT,
	decision TEXT NOT NULL DEFAULT '',
	duration_ms REAL,
	status TEXT NOT NULL,
	skip_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_handler_executions_hook ON handler_executions(hook_id);
CREATE TABLE IF NOT EXISTS errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hook_id TEXT NOT NULL,
	handler_execution_id INTEGER REFERENCES handler_executions(id),
	error_type TEXT NOT NULL,
	error_message TEXT NOT NULL,
	occurred_at TEXT
);
`

// Store is an observer that writes events to SQLite in per-invocation batches.
type Store struct {
	db        *sql.DB
	owned     bool
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string][]domain.Event
}

var _ observability.Observer = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBatchSize sets the early-flush threshold.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the database at dsn (a path or "file::memory:") and migrates it.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}
	// A single connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing database and migrates it. Close does not close db.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		batchSize: DefaultBatchSize,
		timeout:   5 * time.Second,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending:   make(map[string][]domain.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("failed to migrate event store: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Name() string { return "sqlite" }

func (s *Store) OnHookStart(ev *domain.Event, _ *domain.ObserverContext)    { s.buffer(ev) }
func (s *Store) OnHandlerStart(ev *domain.Event, _ *domain.ObserverContext) { s.buffer(ev) }
func (s *Store) OnHandlerEnd(ev *domain.Event, _ *domain.ObserverContext)   { s.buffer(ev) }
func (s *Store) OnHandlerSkip(ev *domain.Event, _ *domain.ObserverContext)  { s.buffer(ev) }
func (s *Store) OnHandlerError(ev *domain.Event, _ *domain.ObserverContext) { s.buffer(ev) }
func (s *Store) OnHookEnd(ev *domain.Event, _ *domain.ObserverContext)      { s.buffer(ev) }
func (s *Store) OnHookError(ev *domain.Event, _ *domain.ObserverContext)    { s.buffer(ev) }

func (s *Store) buffer(ev *domain.Event) {
	s.mu.Lock()
	batch := append(s.pending[ev.HookID], *ev)
	if !ev.Kind.IsTerminal() && len(batch) < s.batchSize {
		s.pending[ev.HookID] = batch
		s.mu.Unlock()
		return
	}
	delete(s.pending, ev.HookID)
	s.mu.Unlock()

	if err := s.write(batch); err != nil {
		s.logger.Warn("failed to persist events", "hook_id", ev.HookID, "count", len(batch), "err", err)
	}
}

// Flush writes every buffered batch.
func (s *Store) Flush() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string][]domain.Event)
	s.mu.Unlock()

	var errs []error
	for _, batch := range pending {
		errs = append(errs, s.write(batch))
	}
	return errors.Join(errs...)
}

// Close flushes pending batches and closes the database if Open created it.
func (s *Store) Close() error {
	err := s.Flush()
	if s.owned {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

func (s *Store) write(batch []domain.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range batch {
		if err := apply(ctx, tx, &batch[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", batch[i].Kind, err)
		}
	}
	return tx.Commit()
}

func apply(ctx context.Context, tx *sql.Tx, ev *domain.Event) error {
	ts := stamp(ev.Timestamp)
	switch ev.Kind {
	case domain.EventHookStart:
		return ensureHook(ctx, tx, ev)

	case domain.EventHookEnd:
		if err := ensureHook(ctx, tx, ev); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE hooks SET ended_at = ?, decision = ?, duration_ms = ?, status = ? WHERE hook_id = ?`,
			ts, string(ev.Decision.Normalize()), ev.DurationMS, statusOK, ev.HookID)
		return err

	case domain.EventHookError:
		if err := ensureHook(ctx, tx, ev); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE hooks SET ended_at = ?, decision = ?, status = ? WHERE hook_id = ?`,
			ts, string(domain.Block), statusError, ev.HookID); err != nil {
			return err
		}
		return insertError(ctx, tx, ev, nil)

	case domain.EventHandlerStart:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO handler_executions (hook_id, handler_name, started_at, status) VALUES (?, ?, ?, ?)`,
			ev.HookID, ev.HandlerName, ts, statusRunning)
		return err

	case domain.EventHandlerEnd:
		id, err := runningExecution(ctx, tx, ev)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE handler_executions SET ended_at = ?, decision = ?, duration_ms = ?, status = ? WHERE id = ?`,
			ts, string(ev.Decision.Normalize()), ev.DurationMS, statusOK, id)
		return err

	case domain.EventHandlerSkip:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO handler_executions (hook_id, handler_name, started_at, ended_at, status, skip_reason) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.HookID, ev.HandlerName, ts, ts, statusSkipped, ev.SkipReason)
		return err

	case domain.EventHandlerError:
		id, err := runningExecution(ctx, tx, ev)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE handler_executions SET ended_at = ?, decision = ?, status = ? WHERE id = ?`,
			ts, string(domain.Block), statusError, id); err != nil {
			return err
		}
		return insertError(ctx, tx, ev, &id)
	}
	return fmt.Errorf("unknown event kind %d", ev.Kind)
}

func ensureHook(ctx context.Context, tx *sql.Tx, ev *domain.Event) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO hooks (hook_id, session_id, hook_event_name, tool_name, started_at) VALUES (?, ?, ?, ?, ?)`,
		ev.HookID, ev.SessionID, string(ev.HookEventName), ev.ToolName, stamp(ev.Timestamp))
	return err
}

// runningExecution finds the open row for the handler, creating one when its
// handler_start was lost.
func runningExecution(ctx context.Context, tx *sql.Tx, ev *domain.Event) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM handler_executions WHERE hook_id = ? AND handler_name = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		ev.HookID, ev.HandlerName, statusRunning).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO handler_executions (hook_id, handler_name, started_at, status) VALUES (?, ?, ?, ?)`,
		ev.HookID, ev.HandlerName, stamp(ev.Timestamp), statusRunning)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertError(ctx context.Context, tx *sql.Tx, ev *domain.Event, executionID *int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO errors (hook_id, handler_execution_id, error_type, error_message, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		ev.HookID, executionID, ev.ErrorType, ev.ErrorMessage, stamp(ev.Timestamp))
	return err
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
