package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/fasthooks/pkg/adapters/sqlite"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/aretw0/fasthooks/pkg/observability/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "events.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func emitAll(s *sqlite.Store, events []*domain.Event) {
	reg := observability.NewRegistry()
	reg.Add(s)
	for _, ev := range events {
		reg.Emit(ev, nil)
	}
}

func count(t *testing.T, s *sqlite.Store, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(query, args...).Scan(&n))
	return n
}

func TestStore_Contract(t *testing.T) {
	s, err := sqlite.Open("file::memory:")
	require.NoError(t, err)
	defer s.Close()
	tests.RunObserverContract(t, s)
}

func TestStore_PersistsInvocation(t *testing.T) {
	s := openStore(t)
	emitAll(s, tests.FailedInvocation("hook-1"))
	ctx := context.Background()

	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM hooks`))
	assert.Equal(t, 3, count(t, s, `SELECT COUNT(*) FROM handler_executions WHERE hook_id = ?`, "hook-1"))
	assert.Equal(t, 2, count(t, s, `SELECT COUNT(*) FROM errors`))
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM errors WHERE handler_execution_id IS NULL`))

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Hooks)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Decisions[domain.Block])

	handlers, err := s.Handlers(ctx)
	require.NoError(t, err)
	require.Len(t, handlers, 3)
	assert.Equal(t, "first", handlers[0].Name)
	assert.InDelta(t, 3.0, handlers[0].AvgMS, 0.001)
	assert.Equal(t, 1, handlers[0].Calls)
	assert.Equal(t, "second", handlers[1].Name)
	assert.Equal(t, 1, handlers[1].Errors)
	assert.Equal(t, 1, handlers[1].Restrictive)
	assert.Equal(t, "third", handlers[2].Name)
	assert.Equal(t, 0, handlers[2].Calls)
	assert.Equal(t, 1, handlers[2].Skips)

	errs, err := s.RecentErrors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "", errs[0].Handler)
	assert.Equal(t, "second", errs[1].Handler)
	assert.Equal(t, "ValueError", errs[1].Type)
	assert.False(t, errs[1].OccurredAt.IsZero())
}

func TestStore_BuffersUntilTerminalEvent(t *testing.T) {
	s := openStore(t)
	seq := tests.DeniedInvocation("hook-b")
	emitAll(s, seq[:6])
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM hooks`))

	emitAll(s, seq[6:7])
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM hooks WHERE status = 'ok'`))
}

func TestStore_EarlyFlushKeepsExecutionsPaired(t *testing.T) {
	s := openStore(t, sqlite.WithBatchSize(2))
	emitAll(s, tests.FailedInvocation("hook-e"))

	assert.Equal(t, 3, count(t, s, `SELECT COUNT(*) FROM handler_executions`))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM handler_executions WHERE status = 'running'`))
}

func TestStore_ToleratesMissingStart(t *testing.T) {
	s := openStore(t)
	seq := tests.DeniedInvocation("hook-m")
	// handler_end and hook_end without their starts.
	emitAll(s, []*domain.Event{seq[2], seq[6]})

	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM hooks`))
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM handler_executions WHERE status = 'ok'`))
}

func TestStore_CloseFlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	emitAll(s, tests.DeniedInvocation("hook-p")[:2])
	require.NoError(t, s.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 1, count(t, reopened, `SELECT COUNT(*) FROM hooks WHERE status = 'running'`))
	assert.Equal(t, 1, count(t, reopened, `SELECT COUNT(*) FROM handler_executions`))

	sum, err := reopened.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Hooks, "unterminated invocations are not counted")
}
