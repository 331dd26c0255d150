// Package tests holds reusable suites that observer implementations run from
// their own tests.
package tests

import (
	"testing"
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunObserverContract checks that an Observer implementation honours the
// dispatcher's expectations: every callback can be called synchronously and
// repeatedly, invocations that never terminate are tolerated, and events are
// left untouched.
func RunObserverContract(t *testing.T, obs observability.Observer) {
	t.Helper()
	require.NotNil(t, obs)

	oc := &domain.ObserverContext{
		AppName:        "contract",
		SessionID:      "contract-session",
		HooksProcessed: 1,
		Handlers: []domain.HandlerInfo{
			{Name: "first", Stage: domain.StagePreToolUse, ToolName: "Bash"},
			{Name: "second", Stage: domain.StagePreToolUse, ToolName: "Bash"},
			{Name: "third", Stage: domain.StagePreToolUse, ToolName: "Bash"},
		},
	}

	t.Run("Denied Invocation", func(t *testing.T) {
		for _, ev := range DeniedInvocation("contract-deny") {
			snapshot := *ev
			assert.NotPanics(t, func() { observability.Deliver(obs, ev, oc) }, "callback %s panicked", ev.Kind)
			assert.Equal(t, snapshot, *ev, "observer mutated %s event", ev.Kind)
		}
	})

	t.Run("Failed Invocation", func(t *testing.T) {
		for _, ev := range FailedInvocation("contract-fail") {
			snapshot := *ev
			assert.NotPanics(t, func() { observability.Deliver(obs, ev, oc) }, "callback %s panicked", ev.Kind)
			assert.Equal(t, snapshot, *ev, "observer mutated %s event", ev.Kind)
		}
	})

	t.Run("Repeated Invocations", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			for _, ev := range DeniedInvocation("contract-repeat") {
				assert.NotPanics(t, func() { observability.Deliver(obs, ev, oc) })
			}
		}
	})

	t.Run("Unterminated Invocation", func(t *testing.T) {
		start := DeniedInvocation("contract-orphan")[0]
		assert.NotPanics(t, func() { obs.OnHookStart(start, oc) })
		// A later invocation must still be processed normally.
		for _, ev := range FailedInvocation("contract-after-orphan") {
			assert.NotPanics(t, func() { observability.Deliver(obs, ev, oc) })
		}
	})
}

var contractTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func invocation(hookID string) func(domain.EventKind, func(*domain.Event)) *domain.Event {
	base := domain.Event{
		HookID:        hookID,
		Timestamp:     contractTime,
		SessionID:     "contract-session",
		HookEventName: domain.StagePreToolUse,
		ToolName:      "Bash",
	}
	return func(kind domain.EventKind, mutate func(*domain.Event)) *domain.Event {
		ev := base
		ev.Kind = kind
		if kind == domain.EventHookStart {
			ev.InputPreview = `{"tool_name":"Bash"}`
		}
		if mutate != nil {
			mutate(&ev)
		}
		return &ev
	}
}

// DeniedInvocation returns the seven events of one invocation in lifecycle
// order: "first" allows, "second" denies, "third" is skipped, hook_end(deny).
func DeniedInvocation(hookID string) []*domain.Event {
	with := invocation(hookID)
	return []*domain.Event{
		with(domain.EventHookStart, nil),
		with(domain.EventHandlerStart, func(e *domain.Event) { e.HandlerName = "first" }),
		with(domain.EventHandlerEnd, func(e *domain.Event) {
			e.HandlerName = "first"
			e.DurationMS = domain.Milliseconds(3 * time.Millisecond)
			e.Decision = domain.Allow
		}),
		with(domain.EventHandlerStart, func(e *domain.Event) { e.HandlerName = "second" }),
		with(domain.EventHandlerEnd, func(e *domain.Event) {
			e.HandlerName = "second"
			e.DurationMS = domain.Milliseconds(1 * time.Millisecond)
			e.Decision = domain.Deny
			e.Reason = "not allowed"
		}),
		with(domain.EventHandlerSkip, func(e *domain.Event) {
			e.HandlerName = "third"
			e.SkipReason = "early deny"
		}),
		with(domain.EventHookEnd, func(e *domain.Event) {
			e.DurationMS = domain.Milliseconds(5 * time.Millisecond)
			e.Decision = domain.Deny
			e.Reason = "not allowed"
		}),
	}
}

// FailedInvocation returns the seven events of one invocation in lifecycle
// order: "first" allows, "second" fails, "third" is skipped, hook_error.
func FailedInvocation(hookID string) []*domain.Event {
	with := invocation(hookID)
	return []*domain.Event{
		with(domain.EventHookStart, nil),
		with(domain.EventHandlerStart, func(e *domain.Event) { e.HandlerName = "first" }),
		with(domain.EventHandlerEnd, func(e *domain.Event) {
			e.HandlerName = "first"
			e.DurationMS = domain.Milliseconds(3 * time.Millisecond)
			e.Decision = domain.Allow
		}),
		with(domain.EventHandlerStart, func(e *domain.Event) { e.HandlerName = "second" }),
		with(domain.EventHandlerError, func(e *domain.Event) {
			e.HandlerName = "second"
			e.ErrorType = "ValueError"
			e.ErrorMessage = "bad input"
		}),
		with(domain.EventHandlerSkip, func(e *domain.Event) {
			e.HandlerName = "third"
			e.SkipReason = "prior handler error"
		}),
		with(domain.EventHookError, func(e *domain.Event) {
			e.ErrorType = "HandlerError"
			e.ErrorMessage = "handler second failed: bad input"
		}),
	}
}
