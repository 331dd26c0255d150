package observability

import "github.com/aretw0/fasthooks/pkg/domain"

// Observer receives every lifecycle event of a hook invocation.
// Calls are synchronous and made one at a time; an observer that needs to do
// slow work must hand it off to its own goroutine and return.
// Events and contexts are shared with other observers and must not be mutated.
type Observer interface {
	OnHookStart(ev *domain.Event, oc *domain.ObserverContext)
	OnHookEnd(ev *domain.Event, oc *domain.ObserverContext)
	OnHookError(ev *domain.Event, oc *domain.ObserverContext)
	OnHandlerStart(ev *domain.Event, oc *domain.ObserverContext)
	OnHandlerEnd(ev *domain.Event, oc *domain.ObserverContext)
	OnHandlerSkip(ev *domain.Event, oc *domain.ObserverContext)
	OnHandlerError(ev *domain.Event, oc *domain.ObserverContext)
}

// BaseObserver implements Observer with no-ops. Embed it and override only
// the callbacks you care about.
type BaseObserver struct{}

func (BaseObserver) OnHookStart(*domain.Event, *domain.ObserverContext)    {}
func (BaseObserver) OnHookEnd(*domain.Event, *domain.ObserverContext)      {}
func (BaseObserver) OnHookError(*domain.Event, *domain.ObserverContext)    {}
func (BaseObserver) OnHandlerStart(*domain.Event, *domain.ObserverContext) {}
func (BaseObserver) OnHandlerEnd(*domain.Event, *domain.ObserverContext)   {}
func (BaseObserver) OnHandlerSkip(*domain.Event, *domain.ObserverContext)  {}
func (BaseObserver) OnHandlerError(*domain.Event, *domain.ObserverContext) {}

var _ Observer = BaseObserver{}

// CallbackFunc is the callback form of an observer.
type CallbackFunc func(ev *domain.Event, oc *domain.ObserverContext)

// Hooks is an Observer built from optional functions, one per event kind.
// Nil fields are skipped.
type Hooks struct {
	HookStart    CallbackFunc
	HookEnd      CallbackFunc
	HookError    CallbackFunc
	HandlerStart CallbackFunc
	HandlerEnd   CallbackFunc
	HandlerSkip  CallbackFunc
	HandlerError CallbackFunc
}

var _ Observer = Hooks{}

func (h Hooks) OnHookStart(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HookStart, ev, oc)
}

func (h Hooks) OnHookEnd(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HookEnd, ev, oc)
}

func (h Hooks) OnHookError(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HookError, ev, oc)
}

func (h Hooks) OnHandlerStart(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HandlerStart, ev, oc)
}

func (h Hooks) OnHandlerEnd(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HandlerEnd, ev, oc)
}

func (h Hooks) OnHandlerSkip(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HandlerSkip, ev, oc)
}

func (h Hooks) OnHandlerError(ev *domain.Event, oc *domain.ObserverContext) {
	call(h.HandlerError, ev, oc)
}

func call(fn CallbackFunc, ev *domain.Event, oc *domain.ObserverContext) {
	if fn != nil {
		fn(ev, oc)
	}
}

// Named lets an observer choose how it is identified in warnings.
type Named interface {
	Name() string
}
