package observability

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// dispatch maps each event kind to the Observer method that receives it.
var dispatch = [domain.NumEventKinds]func(Observer, *domain.Event, *domain.ObserverContext){
	domain.EventHookStart:    Observer.OnHookStart,
	domain.EventHookEnd:      Observer.OnHookEnd,
	domain.EventHookError:    Observer.OnHookError,
	domain.EventHandlerStart: Observer.OnHandlerStart,
	domain.EventHandlerEnd:   Observer.OnHandlerEnd,
	domain.EventHandlerSkip:  Observer.OnHandlerSkip,
	domain.EventHandlerError: Observer.OnHandlerError,
}

// Deliver calls the method of obs that receives ev's kind. Unlike Emit it does
// not recover panics; events of an unknown kind are dropped.
func Deliver(obs Observer, ev *domain.Event, oc *domain.ObserverContext) {
	if ev == nil || !ev.Kind.Valid() {
		return
	}
	dispatch[ev.Kind](obs, ev, oc)
}

type callbackEntry struct {
	fn       CallbackFunc
	kind     domain.EventKind
	filtered bool
}

func (c callbackEntry) accepts(kind domain.EventKind) bool {
	return !c.filtered || c.kind == kind
}

// Registry holds the observers of one application, in registration order.
// Interface observers are always called before callback observers.
//
// The lists are append-only. Register everything before the first Emit;
// registration is not synchronized against dispatch.
type Registry struct {
	observers []Observer
	names     []string
	callbacks []callbackEntry
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for containment warnings.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends an interface observer. Nil observers are ignored.
func (r *Registry) Add(obs Observer) {
	if obs == nil {
		return
	}
	r.observers = append(r.observers, obs)
	r.names = append(r.names, observerName(obs))
}

// AddCallback appends a callback observer. With no kind it receives every
// event; with one kind it receives only that kind. More than one kind, or an
// unknown kind, is rejected with ErrInvalidFilter.
func (r *Registry) AddCallback(fn CallbackFunc, kinds ...domain.EventKind) error {
	if fn == nil {
		return fmt.Errorf("%w: nil callback", domain.ErrInvalidFilter)
	}
	entry := callbackEntry{fn: fn}
	switch len(kinds) {
	case 0:
	case 1:
		if !kinds[0].Valid() {
			return fmt.Errorf("%w: %s", domain.ErrInvalidFilter, kinds[0])
		}
		entry.kind = kinds[0]
		entry.filtered = true
	default:
		return fmt.Errorf("%w: a callback takes at most one event kind, got %d", domain.ErrInvalidFilter, len(kinds))
	}
	r.callbacks = append(r.callbacks, entry)
	return nil
}

// Enabled reports whether at least one observer is registered.
// When false, callers should not build events at all.
func (r *Registry) Enabled() bool {
	return r != nil && (len(r.observers) > 0 || len(r.callbacks) > 0)
}

// Len returns the number of registered observers of both forms.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.observers) + len(r.callbacks)
}

// Emit delivers ev to every observer: interface observers first, then
// callbacks, each group in registration order. Every observer receives the
// same ev and oc. A panicking observer is logged and skipped.
func (r *Registry) Emit(ev *domain.Event, oc *domain.ObserverContext) {
	if !r.Enabled() || ev == nil || !ev.Kind.Valid() {
		return
	}
	method := dispatch[ev.Kind]
	for i, obs := range r.observers {
		r.guard(r.names[i], ev.Kind, func() { method(obs, ev, oc) })
	}
	for i, cb := range r.callbacks {
		if !cb.accepts(ev.Kind) {
			continue
		}
		r.guard(fmt.Sprintf("callback[%d]", i), ev.Kind, func() { cb.fn(ev, oc) })
	}
}

func (r *Registry) guard(name string, kind domain.EventKind, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("observer failed",
				"observer", name,
				"event", kind.String(),
				"panic", fmt.Sprint(p),
			)
		}
	}()
	fn()
}

func observerName(obs Observer) string {
	if n, ok := obs.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", obs)
}
