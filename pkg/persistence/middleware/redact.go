// Package middleware holds observer wrappers applied before events reach
// persisting sinks.
package middleware

import (
	"fmt"
	"regexp"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactor struct {
	next     observability.Observer
	patterns []*regexp.Regexp
}

// NewRedactor creates a middleware that masks every match of the patterns in
// the free-text fields of an event (input preview, reason, error message).
// The wrapped observer receives a copy; the original event is untouched.
func NewRedactor(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next observability.Observer) observability.Observer {
		if len(patterns) == 0 {
			return next
		}
		return &redactor{next: next, patterns: patterns}
	}, nil
}

func (r *redactor) Name() string {
	if n, ok := r.next.(observability.Named); ok {
		return "redact(" + n.Name() + ")"
	}
	return fmt.Sprintf("redact(%T)", r.next)
}

func (r *redactor) mask(ev *domain.Event) *domain.Event {
	cloned := *ev
	cloned.InputPreview = r.maskString(cloned.InputPreview)
	cloned.Reason = r.maskString(cloned.Reason)
	cloned.ErrorMessage = r.maskString(cloned.ErrorMessage)
	return &cloned
}

func (r *redactor) maskString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (r *redactor) OnHookStart(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHookStart(r.mask(ev), oc)
}

func (r *redactor) OnHookEnd(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHookEnd(r.mask(ev), oc)
}

func (r *redactor) OnHookError(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHookError(r.mask(ev), oc)
}

func (r *redactor) OnHandlerStart(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHandlerStart(r.mask(ev), oc)
}

func (r *redactor) OnHandlerEnd(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHandlerEnd(r.mask(ev), oc)
}

func (r *redactor) OnHandlerSkip(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHandlerSkip(r.mask(ev), oc)
}

func (r *redactor) OnHandlerError(ev *domain.Event, oc *domain.ObserverContext) {
	r.next.OnHandlerError(r.mask(ev), oc)
}
