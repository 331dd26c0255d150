package runtime

import (
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
)

// emitter builds and delivers the events of one invocation. A nil emitter
// is valid and does nothing, which is how the no-observer path avoids
// constructing events or contexts.
type emitter struct {
	observers *observability.Registry
	oc        *domain.ObserverContext
	base      domain.Event
	preview   string
	now       func() time.Time
}

// begin returns nil when no observer is registered.
func (x *Executor) begin(in *domain.Input, processed int64) *emitter {
	if !x.observers.Enabled() {
		return nil
	}

	em := &emitter{
		observers: x.observers,
		now:       x.now,
	}
	em.base.HookID = x.newID()

	var sessionID string
	if in != nil {
		sessionID = in.SessionID
		em.base.SessionID = in.SessionID
		em.base.HookEventName = in.HookEventName
		if in.HookEventName.IsToolStage() {
			em.base.ToolName = in.ToolName
		}
		em.preview = domain.Truncate(string(in.Raw()), domain.PreviewLimit)
	}
	em.oc = x.contexts.Build(sessionID, processed)
	return em
}

func (em *emitter) hookID() string {
	if em == nil {
		return ""
	}
	return em.base.HookID
}

func (em *emitter) emit(ev domain.Event) {
	ev.Timestamp = em.now().UTC()
	em.observers.Emit(&ev, em.oc)
}

func (em *emitter) hookStart() {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHookStart
	ev.InputPreview = em.preview
	em.emit(ev)
}

func (em *emitter) hookEnd(total time.Duration, decision domain.Decision, reason string) {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHookEnd
	ev.DurationMS = domain.Milliseconds(total)
	ev.Decision = decision
	ev.Reason = domain.Truncate(reason, domain.MessageLimit)
	em.emit(ev)
}

func (em *emitter) hookError(err error) {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHookError
	ev.ErrorType = domain.ErrorTypeName(err)
	ev.ErrorMessage = domain.Truncate(err.Error(), domain.MessageLimit)
	em.emit(ev)
}

func (em *emitter) handlerStart(h domain.HandlerInfo) {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHandlerStart
	ev.HandlerName = h.Name
	em.emit(ev)
}

func (em *emitter) handlerEnd(h domain.HandlerInfo, elapsed time.Duration, decision domain.Decision, reason string) {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHandlerEnd
	ev.HandlerName = h.Name
	ev.DurationMS = domain.Milliseconds(elapsed)
	ev.Decision = decision
	ev.Reason = domain.Truncate(reason, domain.MessageLimit)
	em.emit(ev)
}

func (em *emitter) handlerSkip(h domain.HandlerInfo, reason string) {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHandlerSkip
	ev.HandlerName = h.Name
	ev.SkipReason = reason
	em.emit(ev)
}

func (em *emitter) handlerError(h domain.HandlerInfo, err error) {
	if em == nil {
		return
	}
	ev := em.base
	ev.Kind = domain.EventHandlerError
	ev.HandlerName = h.Name
	ev.ErrorType = domain.ErrorTypeName(err)
	ev.ErrorMessage = domain.Truncate(err.Error(), domain.MessageLimit)
	em.emit(ev)
}
