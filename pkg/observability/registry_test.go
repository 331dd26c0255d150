package observability_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/aretw0/fasthooks/pkg/observability/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder appends "<label>:<kind>" for every event it receives.
type recorder struct {
	observability.BaseObserver
	label string
	log   *[]string
}

func (r recorder) OnHookStart(ev *domain.Event, _ *domain.ObserverContext) {
	*r.log = append(*r.log, r.label+":"+ev.Kind.String())
}

func (r recorder) OnHookEnd(ev *domain.Event, _ *domain.ObserverContext) {
	*r.log = append(*r.log, r.label+":"+ev.Kind.String())
}

type panicker struct{}

func (panicker) Name() string { return "panicker" }

func (panicker) OnHookStart(*domain.Event, *domain.ObserverContext)    { panic("start") }
func (panicker) OnHookEnd(*domain.Event, *domain.ObserverContext)      { panic("end") }
func (panicker) OnHookError(*domain.Event, *domain.ObserverContext)    { panic("error") }
func (panicker) OnHandlerStart(*domain.Event, *domain.ObserverContext) { panic("hstart") }
func (panicker) OnHandlerEnd(*domain.Event, *domain.ObserverContext)   { panic("hend") }
func (panicker) OnHandlerSkip(*domain.Event, *domain.ObserverContext)  { panic("hskip") }
func (panicker) OnHandlerError(*domain.Event, *domain.ObserverContext) { panic("herror") }

func event(kind domain.EventKind) *domain.Event {
	return &domain.Event{Kind: kind, HookID: "h"}
}

func TestRegistry_EmptyIsDisabled(t *testing.T) {
	reg := observability.NewRegistry()
	assert.False(t, reg.Enabled())
	assert.Equal(t, 0, reg.Len())

	var nilReg *observability.Registry
	assert.False(t, nilReg.Enabled())

	reg.Add(nil)
	assert.False(t, reg.Enabled(), "nil observers are ignored")
}

func TestRegistry_OrderInterfaceBeforeCallbacks(t *testing.T) {
	var got []string
	reg := observability.NewRegistry()

	// Register a callback first to prove grouping beats registration time.
	require.NoError(t, reg.AddCallback(func(ev *domain.Event, _ *domain.ObserverContext) {
		got = append(got, "cb1:"+ev.Kind.String())
	}))
	reg.Add(recorder{label: "obs1", log: &got})
	require.NoError(t, reg.AddCallback(func(ev *domain.Event, _ *domain.ObserverContext) {
		got = append(got, "cb2:"+ev.Kind.String())
	}))
	reg.Add(recorder{label: "obs2", log: &got})

	reg.Emit(event(domain.EventHookStart), &domain.ObserverContext{})

	assert.Equal(t, []string{
		"obs1:hook_start",
		"obs2:hook_start",
		"cb1:hook_start",
		"cb2:hook_start",
	}, got)
}

func TestRegistry_CallbackFilter(t *testing.T) {
	var all, ends []domain.EventKind
	reg := observability.NewRegistry()
	require.NoError(t, reg.AddCallback(func(ev *domain.Event, _ *domain.ObserverContext) {
		all = append(all, ev.Kind)
	}))
	require.NoError(t, reg.AddCallback(func(ev *domain.Event, _ *domain.ObserverContext) {
		ends = append(ends, ev.Kind)
	}, domain.EventHandlerEnd))

	for _, k := range domain.EventKinds() {
		reg.Emit(event(k), nil)
	}

	assert.Equal(t, domain.EventKinds(), all)
	assert.Equal(t, []domain.EventKind{domain.EventHandlerEnd}, ends)
}

func TestRegistry_AddCallbackRejectsBadFilters(t *testing.T) {
	reg := observability.NewRegistry()
	noop := func(*domain.Event, *domain.ObserverContext) {}

	err := reg.AddCallback(noop, domain.EventHookStart, domain.EventHookEnd)
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	err = reg.AddCallback(noop, domain.EventKind(42))
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	err = reg.AddCallback(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	assert.False(t, reg.Enabled())
}

func TestRegistry_ContainsObserverPanics(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	var got []domain.EventKind
	reg := observability.NewRegistry(observability.WithLogger(logger))
	reg.Add(panicker{})
	require.NoError(t, reg.AddCallback(func(*domain.Event, *domain.ObserverContext) {
		panic("callback broke")
	}))
	require.NoError(t, reg.AddCallback(func(ev *domain.Event, _ *domain.ObserverContext) {
		got = append(got, ev.Kind)
	}))

	assert.NotPanics(t, func() {
		for _, k := range domain.EventKinds() {
			reg.Emit(event(k), nil)
		}
	})

	assert.Equal(t, domain.EventKinds(), got, "healthy observer must see every event")
	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "observer=panicker")
	assert.Contains(t, out, "observer=callback[0]")
	assert.Contains(t, out, "event=handler_skip")
}

func TestRegistry_SharedInstances(t *testing.T) {
	var seen []*domain.Event
	var ctxs []*domain.ObserverContext
	reg := observability.NewRegistry()
	for i := 0; i < 3; i++ {
		require.NoError(t, reg.AddCallback(func(ev *domain.Event, oc *domain.ObserverContext) {
			seen = append(seen, ev)
			ctxs = append(ctxs, oc)
		}))
	}

	ev := event(domain.EventHookEnd)
	oc := &domain.ObserverContext{AppName: "app"}
	reg.Emit(ev, oc)

	require.Len(t, seen, 3)
	for i := range seen {
		assert.Same(t, ev, seen[i])
		assert.Same(t, oc, ctxs[i])
	}
}

func TestHooks_NilFieldsAreNoOps(t *testing.T) {
	var started int
	hooks := observability.Hooks{
		HandlerStart: func(*domain.Event, *domain.ObserverContext) { started++ },
	}
	reg := observability.NewRegistry()
	reg.Add(hooks)

	for _, k := range domain.EventKinds() {
		reg.Emit(event(k), nil)
	}
	assert.Equal(t, 1, started)
}

func TestBaseObserver_Contract(t *testing.T) {
	tests.RunObserverContract(t, observability.BaseObserver{})
}

func TestHooks_Contract(t *testing.T) {
	tests.RunObserverContract(t, observability.Hooks{
		HookEnd: func(*domain.Event, *domain.ObserverContext) {},
	})
}

func TestContextBuilder(t *testing.T) {
	inventory := []domain.HandlerInfo{{Name: "a", Stage: domain.StageStop}}
	b := observability.NewContextBuilder("demo", func() []domain.HandlerInfo { return inventory })

	n := b.Count()
	oc := b.Build("sess", n)
	assert.Equal(t, "demo", oc.AppName)
	assert.Equal(t, "sess", oc.SessionID)
	assert.EqualValues(t, 1, oc.HooksProcessed)
	assert.Equal(t, inventory, oc.Handlers)

	// The snapshot does not alias the registry's slice.
	oc.Handlers[0].Name = "changed"
	assert.Equal(t, "a", inventory[0].Name)

	assert.EqualValues(t, 2, b.Count())
	assert.EqualValues(t, 2, b.Processed())
}
