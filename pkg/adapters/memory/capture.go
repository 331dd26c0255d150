package memory

import (
	"slices"
	"sync"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
)

// Capture records every event it receives, in arrival order.
// It keeps the original pointers, so captured events compare identical
// (==) to the ones the dispatcher emitted. Safe for concurrent reads.
type Capture struct {
	mu       sync.RWMutex
	events   []*domain.Event
	contexts []*domain.ObserverContext
}

var _ observability.Observer = (*Capture)(nil)

// NewCapture creates an empty capture.
func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) record(ev *domain.Event, oc *domain.ObserverContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	c.contexts = append(c.contexts, oc)
}

func (c *Capture) OnHookStart(ev *domain.Event, oc *domain.ObserverContext)    { c.record(ev, oc) }
func (c *Capture) OnHookEnd(ev *domain.Event, oc *domain.ObserverContext)      { c.record(ev, oc) }
func (c *Capture) OnHookError(ev *domain.Event, oc *domain.ObserverContext)    { c.record(ev, oc) }
func (c *Capture) OnHandlerStart(ev *domain.Event, oc *domain.ObserverContext) { c.record(ev, oc) }
func (c *Capture) OnHandlerEnd(ev *domain.Event, oc *domain.ObserverContext)   { c.record(ev, oc) }
func (c *Capture) OnHandlerSkip(ev *domain.Event, oc *domain.ObserverContext)  { c.record(ev, oc) }
func (c *Capture) OnHandlerError(ev *domain.Event, oc *domain.ObserverContext) { c.record(ev, oc) }

// Events returns the captured events. The slice is a copy; the events are not.
func (c *Capture) Events() []*domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events)
}

// Contexts returns the context delivered alongside each event.
func (c *Capture) Contexts() []*domain.ObserverContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.contexts)
}

// Kinds returns the kind of every captured event, in order.
func (c *Capture) Kinds() []domain.EventKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]domain.EventKind, len(c.events))
	for i, ev := range c.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// ByKind returns the captured events of one kind.
func (c *Capture) ByKind(kind domain.EventKind) []*domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*domain.Event
	for _, ev := range c.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// ByHook returns the captured events of one invocation.
func (c *Capture) ByHook(hookID string) []*domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*domain.Event
	for _, ev := range c.events {
		if ev.HookID == hookID {
			out = append(out, ev)
		}
	}
	return out
}

// Last returns the most recent event, or nil.
func (c *Capture) Last() *domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

// Len returns the number of captured events.
func (c *Capture) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Reset drops everything captured so far.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.contexts = nil
}
