// Package logger writes hook events to a slog.Logger.
package logger

import (
	"context"
	"log/slog"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
)

// Observer logs each event with the event kind as message. Failures log at
// Error, skips and restrictive outcomes at Info, everything else at Debug.
type Observer struct {
	logger *slog.Logger
}

var _ observability.Observer = (*Observer)(nil)

// New creates an Observer on logger.
func New(logger *slog.Logger) *Observer {
	return &Observer{logger: logger}
}

func (o *Observer) Name() string { return "slog" }

func (o *Observer) OnHookStart(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(slog.LevelDebug, ev, oc)
}

func (o *Observer) OnHookEnd(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(levelFor(ev.Decision), ev, oc)
}

func (o *Observer) OnHookError(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(slog.LevelError, ev, oc)
}

func (o *Observer) OnHandlerStart(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(slog.LevelDebug, ev, oc)
}

func (o *Observer) OnHandlerEnd(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(levelFor(ev.Decision), ev, oc)
}

func (o *Observer) OnHandlerSkip(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(slog.LevelInfo, ev, oc)
}

func (o *Observer) OnHandlerError(ev *domain.Event, oc *domain.ObserverContext) {
	o.log(slog.LevelError, ev, oc)
}

func levelFor(d domain.Decision) slog.Level {
	if d.IsRestrictive() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func (o *Observer) log(level slog.Level, ev *domain.Event, oc *domain.ObserverContext) {
	ctx := context.Background()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 10)
	attrs = append(attrs,
		slog.String("hook_id", ev.HookID),
		slog.String("hook_event_name", string(ev.HookEventName)),
	)
	if ev.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", ev.SessionID))
	}
	if ev.ToolName != "" {
		attrs = append(attrs, slog.String("tool_name", ev.ToolName))
	}
	if ev.HandlerName != "" {
		attrs = append(attrs, slog.String("handler", ev.HandlerName))
	}
	if ev.DurationMS != nil {
		attrs = append(attrs, slog.Duration("duration", ev.Duration()))
	}
	if ev.Decision != "" {
		attrs = append(attrs, slog.String("decision", string(ev.Decision)))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	if ev.SkipReason != "" {
		attrs = append(attrs, slog.String("skip_reason", ev.SkipReason))
	}
	if ev.ErrorType != "" {
		attrs = append(attrs, slog.String("error_type", ev.ErrorType), slog.String("error", ev.ErrorMessage))
	}
	if oc != nil && oc.AppName != "" {
		attrs = append(attrs, slog.String("app", oc.AppName))
	}

	o.logger.LogAttrs(ctx, level, ev.Kind.String(), attrs...)
}
