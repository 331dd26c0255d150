package fasthooks_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/fasthooks"
	"github.com/aretw0/fasthooks/pkg/adapters/memory"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/strategies"
	"github.com/aretw0/fasthooks/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("hook-%d", n)
	}
}

func reply(d domain.Decision, reason string) domain.HandlerFunc {
	return func(context.Context, *domain.Input) (*domain.Response, error) {
		return &domain.Response{Decision: d, Reason: reason}, nil
	}
}

func bashInput(cmd string) *domain.Input {
	return &domain.Input{
		SessionID:     "s1",
		HookEventName: domain.StagePreToolUse,
		ToolName:      "Bash",
		ToolInput:     map[string]any{"command": cmd},
	}
}

func TestApp_DispatchSelectsMatchingHandlers(t *testing.T) {
	capture := memory.NewCapture()
	app := fasthooks.New("guard", fasthooks.WithObserver(capture), fasthooks.WithIDGenerator(sequentialIDs()))

	require.NoError(t, app.PreToolUse("bash-only", reply(domain.Allow, ""), "Bash"))
	require.NoError(t, app.PreToolUse("write-only", reply(domain.Block, "no"), "Write"))
	require.NoError(t, app.PreToolUse("any-tool", reply(domain.Allow, "")))
	require.NoError(t, app.OnStop("stop", reply(domain.Block, "no")))

	res, err := app.Dispatch(context.Background(), bashInput("ls"))
	require.NoError(t, err)
	assert.Equal(t, domain.Allow, res.Decision)
	assert.Equal(t, 2, res.Handlers)
	assert.Equal(t, "hook-1", res.HookID)

	var names []string
	for _, ev := range capture.ByKind(domain.EventHandlerStart) {
		names = append(names, ev.HandlerName)
	}
	assert.Equal(t, []string{"bash-only", "any-tool"}, names)

	oc := capture.Contexts()[0]
	assert.Equal(t, "guard", oc.AppName)
	assert.Equal(t, int64(1), oc.HooksProcessed)
	assert.Len(t, oc.Handlers, 4, "the inventory lists every registered handler")
}

func TestApp_ShortCircuit(t *testing.T) {
	capture := memory.NewCapture()
	app := fasthooks.New("guard", fasthooks.WithObserver(capture))
	require.NoError(t, app.PreToolUse("first", reply(domain.Deny, "dangerous"), "Bash"))
	require.NoError(t, app.PreToolUse("second", reply(domain.Allow, ""), "Bash"))

	res, err := app.Dispatch(context.Background(), bashInput("rm -rf /"))
	require.NoError(t, err)
	assert.Equal(t, domain.Deny, res.Decision)
	assert.Equal(t, "dangerous", res.Reason)
	assert.Equal(t, 1, res.Skipped)

	skip := capture.ByKind(domain.EventHandlerSkip)
	require.Len(t, skip, 1)
	assert.Equal(t, "early deny", skip[0].SkipReason)
}

func TestApp_HandlerError(t *testing.T) {
	capture := memory.NewCapture()
	app := fasthooks.New("guard", fasthooks.WithObserver(capture))
	require.NoError(t, app.OnStop("broken", func(context.Context, *domain.Input) (*domain.Response, error) {
		return nil, errors.New("boom")
	}))

	res, err := app.Dispatch(context.Background(), &domain.Input{HookEventName: domain.StageStop})
	var herr *domain.HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "broken", herr.Handler)
	assert.Equal(t, domain.Block, res.Decision)
	assert.Equal(t, domain.EventHookError, capture.Last().Kind)
}

func TestApp_UnknownStage(t *testing.T) {
	capture := memory.NewCapture()
	app := fasthooks.New("guard", fasthooks.WithObserver(capture))

	_, err := app.Dispatch(context.Background(), &domain.Input{HookEventName: "Later"})
	require.ErrorIs(t, err, domain.ErrUnknownStage)
	assert.Equal(t, []domain.EventKind{domain.EventHookStart, domain.EventHookError}, capture.Kinds())
}

func TestApp_SessionIDFallback(t *testing.T) {
	capture := memory.NewCapture()
	app := fasthooks.New("guard", fasthooks.WithObserver(capture), fasthooks.WithSessionID("configured"))

	_, err := app.Dispatch(context.Background(), &domain.Input{HookEventName: domain.StageStop})
	require.NoError(t, err)
	assert.Equal(t, "configured", capture.Events()[0].SessionID)
	assert.Equal(t, "configured", capture.Contexts()[0].SessionID)
}

func TestApp_SessionIDFallbackLeavesInputUntouched(t *testing.T) {
	capture := memory.NewCapture()
	app := fasthooks.New("guard", fasthooks.WithObserver(capture), fasthooks.WithSessionID("configured"))
	var seen string
	require.NoError(t, app.OnStop("s", func(_ context.Context, in *domain.Input) (*domain.Response, error) {
		seen = in.SessionID
		return nil, nil
	}))

	in := &domain.Input{HookEventName: domain.StageStop}
	_, err := app.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, in.SessionID)
	assert.Equal(t, "configured", seen)
	assert.Equal(t, "configured", capture.Events()[0].SessionID)

	_, err = app.Dispatch(context.Background(), &domain.Input{HookEventName: domain.StageStop, SessionID: "from-payload"})
	require.NoError(t, err)
	assert.Equal(t, "from-payload", seen)
}

func TestApp_HandleValidation(t *testing.T) {
	app := fasthooks.New("guard")
	assert.ErrorIs(t, app.Handle("Later", "x", reply(domain.Allow, "")), domain.ErrUnknownStage)
	assert.Error(t, app.Handle(domain.StageStop, "x", nil))
	assert.Error(t, app.Handle(domain.StageStop, "x", reply(domain.Allow, ""), "Bash"))

	require.NoError(t, app.PostToolUse("", reply(domain.Allow, ""), "Edit", "Write"))
	infos := app.Handlers()
	require.Len(t, infos, 2)
	assert.Equal(t, "PostToolUse#1", infos[0].Name)
	assert.Equal(t, "Write", infos[1].ToolName)

	infos[0].Name = "mutated"
	assert.Equal(t, "PostToolUse#1", app.Handlers()[0].Name)
}

func TestApp_OnEventFilter(t *testing.T) {
	app := fasthooks.New("guard")
	var ends []*domain.Event
	require.NoError(t, app.OnEvent(func(ev *domain.Event, _ *domain.ObserverContext) {
		ends = append(ends, ev)
	}, domain.EventHookEnd))
	require.NoError(t, app.OnStop("s", reply(domain.Allow, "")))

	_, err := app.Dispatch(context.Background(), &domain.Input{HookEventName: domain.StageStop})
	require.NoError(t, err)
	require.Len(t, ends, 1)
	assert.Equal(t, domain.Allow, ends[0].Decision)
	assert.Equal(t, int64(1), app.HooksProcessed())
}

type stopGuard struct{ name string }

func (s stopGuard) Meta() strategies.Meta {
	return strategies.Meta{Name: s.name, Version: "1.0.0", Hooks: []string{"Stop"}}
}

func (s stopGuard) Bind(b strategies.Binder) error {
	return b.Handle(domain.StageStop, s.name, reply(domain.Block, "keep working"))
}

func TestApp_Include(t *testing.T) {
	app := fasthooks.New("guard")
	require.NoError(t, app.Include(stopGuard{name: "long-running"}))

	var conflict *strategies.ConflictError
	require.ErrorAs(t, app.Include(stopGuard{name: "other"}), &conflict)
	assert.Len(t, app.Handlers(), 1)

	res, err := app.Dispatch(context.Background(), &domain.Input{HookEventName: domain.StageStop})
	require.NoError(t, err)
	assert.Equal(t, domain.Block, res.Decision)
}

func TestApp_TasksFeedLaterCalls(t *testing.T) {
	backend := tasks.NewImmediate()
	app := fasthooks.New("guard", fasthooks.WithTaskBackend(backend), fasthooks.WithSessionID("configured"))
	assert.Same(t, backend, app.TaskBackend())

	compute := tasks.New("compute", func(context.Context) (any, error) { return 21, nil })
	var retrieved []any
	require.NoError(t, app.PreToolUse("memo", func(ctx context.Context, _ *domain.Input) (*domain.Response, error) {
		view, ok := tasks.FromContext(ctx)
		if !ok {
			return nil, errors.New("no tasks in context")
		}
		if v, found := view.Pop("compute"); found {
			retrieved = append(retrieved, v)
			return nil, nil
		}
		return nil, view.Add(compute, "")
	}, "Bash"))

	in := &domain.Input{HookEventName: domain.StagePreToolUse, ToolName: "Bash"}
	_, err := app.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, retrieved)
	assert.True(t, backend.Has("configured", "compute"))

	_, err = app.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []any{21}, retrieved)
	assert.False(t, backend.Has("configured", ""))
}

func TestApp_DefaultTaskBackend(t *testing.T) {
	app := fasthooks.New("guard")
	backend := app.TaskBackend()
	assert.IsType(t, &tasks.InMemory{}, backend)
	assert.Same(t, backend, app.TaskBackend())
	require.NoError(t, backend.Close())
}

// halfGuard binds one handler and then fails.
type halfGuard struct{ fail bool }

func (halfGuard) Meta() strategies.Meta {
	return strategies.Meta{Name: "bad", Version: "1.0.0", Hooks: []string{"Stop"}}
}

func (h halfGuard) Bind(b strategies.Binder) error {
	if err := b.Handle(domain.StageStop, "half", reply(domain.Block, "half bound")); err != nil {
		return err
	}
	if h.fail {
		return b.Handle(domain.StageStop, "broken", nil)
	}
	return nil
}

func TestApp_IncludeFailedBindLeavesNoState(t *testing.T) {
	app := fasthooks.New("guard")

	err := app.Include(halfGuard{fail: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.False(t, app.Strategies().IsRegistered("bad"))
	assert.Empty(t, app.Handlers())

	res, err := app.Dispatch(context.Background(), &domain.Input{HookEventName: domain.StageStop})
	require.NoError(t, err)
	assert.Equal(t, domain.Allow, res.Decision)

	require.NoError(t, app.Include(halfGuard{}))
	assert.True(t, app.Strategies().IsRegistered("bad"))
	require.Len(t, app.Handlers(), 1)
	assert.Equal(t, "half", app.Handlers()[0].Name)
}

func TestApp_Run(t *testing.T) {
	app := fasthooks.New("guard", fasthooks.WithClock(func() time.Time { return time.Unix(0, 0) }))
	require.NoError(t, app.PreToolUse("no-rm", func(_ context.Context, in *domain.Input) (*domain.Response, error) {
		if cmd, _ := in.Field("command"); strings.Contains(cmd, "rm -rf") {
			return domain.DenyResponse("destructive"), nil
		}
		return nil, nil
	}, "Bash"))
	require.NoError(t, app.OnStop("fail", func(context.Context, *domain.Input) (*domain.Response, error) {
		return nil, errors.New("boom")
	}))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty input", "  \n", "", false},
		{"silent allow", `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"ls"}}`, "", false},
		{
			"deny",
			`{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`,
			`{"hookSpecificOutput":{"hookEventName":"PreToolUse","permissionDecision":"deny","permissionDecisionReason":"destructive"}}` + "\n",
			false,
		},
		{"handler error", `{"hook_event_name":"Stop"}`, "", true},
		{"malformed", `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := app.Run(context.Background(), strings.NewReader(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRender(t *testing.T) {
	assert.Nil(t, fasthooks.Render(domain.StageStop, domain.Result{Decision: domain.Allow}))

	out := fasthooks.Render(domain.StageStop, domain.Result{Decision: domain.Block, Reason: "wait"})
	assert.Equal(t, "block", out.Decision)
	assert.Equal(t, "wait", out.Reason)

	out = fasthooks.Render(domain.StageUserPromptSubmit, domain.Result{Decision: domain.Deny, Reason: "secret"})
	assert.Equal(t, "block", out.Decision, "deny without a permission channel blocks")

	out = fasthooks.Render(domain.StagePermissionRequest, domain.Result{Decision: domain.Deny, Reason: "no"})
	require.NotNil(t, out.HookSpecificOutput)
	assert.Equal(t, "deny", out.HookSpecificOutput.Decision.Behavior)

	out = fasthooks.Render(domain.StageSessionStart, domain.Result{Decision: domain.Allow, Message: "hello"})
	require.NotNil(t, out)
	assert.Equal(t, "hello", out.SystemMessage)
}
