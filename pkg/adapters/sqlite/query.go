package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// Summary is the aggregate view of the store.
type Summary struct {
	Hooks     int
	Failed    int
	Decisions map[domain.Decision]int
}

// HandlerSummary aggregates the executions of one handler.
type HandlerSummary struct {
	Name        string
	Calls       int
	Errors      int
	Skips       int
	AvgMS       float64
	MaxMS       float64
	Restrictive int
}

// ErrorRecord is a row of the errors table.
type ErrorRecord struct {
	HookID     string
	Handler    string
	Type       string
	Message    string
	OccurredAt time.Time
}

// Summary counts invocations by outcome.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{Decisions: make(map[domain.Decision]int)}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, decision, COUNT(*) FROM hooks WHERE status != 'running' GROUP BY status, decision`)
	if err != nil {
		return sum, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status, decision string
		var n int
		if err := rows.Scan(&status, &decision, &n); err != nil {
			return sum, err
		}
		sum.Hooks += n
		if status == statusError {
			sum.Failed += n
		}
		sum.Decisions[domain.Decision(decision).Normalize()] += n
	}
	return sum, rows.Err()
}

// Handlers summarizes handler executions, slowest first.
func (s *Store) Handlers(ctx context.Context) ([]HandlerSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handler_name,
			SUM(CASE WHEN status IN ('ok', 'error') THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(MAX(duration_ms), 0),
			SUM(CASE WHEN decision IN ('deny', 'block') THEN 1 ELSE 0 END)
		FROM handler_executions
		GROUP BY handler_name
		ORDER BY 5 DESC, handler_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []HandlerSummary
	for rows.Next() {
		var h HandlerSummary
		if err := rows.Scan(&h.Name, &h.Calls, &h.Errors, &h.Skips, &h.AvgMS, &h.MaxMS, &h.Restrictive); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// RecentErrors returns the latest errors, newest first.
func (s *Store) RecentErrors(ctx context.Context, limit int) ([]ErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.hook_id, COALESCE(h.handler_name, ''), e.error_type, e.error_message, e.occurred_at
		FROM errors e
		LEFT JOIN handler_executions h ON h.id = e.handler_execution_id
		ORDER BY e.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ErrorRecord
	for rows.Next() {
		var r ErrorRecord
		var at sql.NullString
		if err := rows.Scan(&r.HookID, &r.Handler, &r.Type, &r.Message, &at); err != nil {
			return nil, err
		}
		if at.Valid {
			r.OccurredAt, _ = time.Parse(time.RFC3339Nano, at.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
