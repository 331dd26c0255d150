// Package console renders hook events as one human-readable line each.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/muesli/termenv"
)

const idWidth = 8

// Printer is an observer that writes a colored line per event.
type Printer struct {
	mu  sync.Mutex
	out *termenv.Output
	w   io.Writer
}

var _ observability.Observer = (*Printer)(nil)

// Option configures a Printer.
type Option func(*printerConfig)

type printerConfig struct {
	profile termenv.Profile
	set     bool
}

// WithProfile forces a color profile. termenv.Ascii disables colors.
func WithProfile(p termenv.Profile) Option {
	return func(c *printerConfig) {
		c.profile = p
		c.set = true
	}
}

// New creates a printer on w. Without WithProfile the profile is detected
// from w.
func New(w io.Writer, opts ...Option) *Printer {
	var cfg printerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	var out *termenv.Output
	if cfg.set {
		out = termenv.NewOutput(w, termenv.WithProfile(cfg.profile))
	} else {
		out = termenv.NewOutput(w)
	}
	return &Printer{out: out, w: w}
}

func (p *Printer) Name() string { return "console" }

func (p *Printer) OnHookStart(ev *domain.Event, _ *domain.ObserverContext)    { p.Print(ev) }
func (p *Printer) OnHookEnd(ev *domain.Event, _ *domain.ObserverContext)      { p.Print(ev) }
func (p *Printer) OnHookError(ev *domain.Event, _ *domain.ObserverContext)    { p.Print(ev) }
func (p *Printer) OnHandlerStart(ev *domain.Event, _ *domain.ObserverContext) { p.Print(ev) }
func (p *Printer) OnHandlerEnd(ev *domain.Event, _ *domain.ObserverContext)   { p.Print(ev) }
func (p *Printer) OnHandlerSkip(ev *domain.Event, _ *domain.ObserverContext)  { p.Print(ev) }
func (p *Printer) OnHandlerError(ev *domain.Event, _ *domain.ObserverContext) { p.Print(ev) }

// Print writes the line for ev. Write errors are ignored.
func (p *Printer) Print(ev *domain.Event) {
	line := p.Format(ev)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, line+"\n")
}

// Format returns the line for ev without a trailing newline.
func (p *Printer) Format(ev *domain.Event) string {
	var b strings.Builder

	b.WriteString(p.out.String(ev.Timestamp.Format("15:04:05.000")).Faint().String())
	b.WriteByte(' ')
	b.WriteString(p.kind(ev.Kind))
	b.WriteByte(' ')
	b.WriteString(p.out.String(shortID(ev.HookID)).Faint().String())
	b.WriteByte(' ')
	b.WriteString(string(ev.HookEventName))
	if ev.ToolName != "" {
		b.WriteString("(" + ev.ToolName + ")")
	}
	if ev.HandlerName != "" {
		b.WriteString(" " + p.out.String(ev.HandlerName).Bold().String())
	}
	if ev.DurationMS != nil {
		fmt.Fprintf(&b, " %.2fms", *ev.DurationMS)
	}
	if ev.Decision != "" {
		b.WriteString(" " + p.decision(ev.Decision))
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, " reason=%q", ev.Reason)
	}
	if ev.SkipReason != "" {
		fmt.Fprintf(&b, " skipped=%q", ev.SkipReason)
	}
	if ev.ErrorType != "" {
		b.WriteString(" " + p.out.String(ev.ErrorType+": "+ev.ErrorMessage).Foreground(p.out.Color("1")).String())
	}
	return b.String()
}

func (p *Printer) kind(k domain.EventKind) string {
	label := fmt.Sprintf("%-13s", k.String())
	switch k {
	case domain.EventHookError, domain.EventHandlerError:
		return p.out.String(label).Foreground(p.out.Color("1")).String()
	case domain.EventHandlerSkip:
		return p.out.String(label).Foreground(p.out.Color("3")).String()
	case domain.EventHookStart, domain.EventHookEnd:
		return p.out.String(label).Foreground(p.out.Color("4")).String()
	default:
		return label
	}
}

func (p *Printer) decision(d domain.Decision) string {
	switch d {
	case domain.Block:
		return p.out.String(string(d)).Foreground(p.out.Color("1")).Bold().String()
	case domain.Deny:
		return p.out.String(string(d)).Foreground(p.out.Color("3")).String()
	default:
		return p.out.String(string(d)).Foreground(p.out.Color("2")).String()
	}
}

func shortID(id string) string {
	if len(id) > idWidth {
		return id[:idWidth]
	}
	return id
}
