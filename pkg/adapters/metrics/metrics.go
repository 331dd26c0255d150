// Package metrics aggregates handler durations and decisions for the life of
// the process and exports them as Prometheus collectors.
package metrics

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// maxSamples bounds the per-handler duration samples kept for snapshots.
const maxSamples = 1024

// HandlerStats is the accumulated view of one handler.
type HandlerStats struct {
	Name      string
	Calls     int
	Errors    int
	Skips     int
	Decisions map[domain.Decision]int
	// Samples holds the most recent durations, oldest first.
	Samples []time.Duration
	Total   time.Duration
}

// Mean returns the mean handler duration.
func (s HandlerStats) Mean() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

// Snapshot is a point-in-time copy of the aggregator.
type Snapshot struct {
	Hooks     int
	Failures  int
	Decisions map[domain.Decision]int
	Handlers  []HandlerStats
}

// Handler returns the stats of one handler.
func (s Snapshot) Handler(name string) (HandlerStats, bool) {
	for _, h := range s.Handlers {
		if h.Name == name {
			return h, true
		}
	}
	return HandlerStats{}, false
}

type handlerState struct {
	calls, errors, skips int
	decisions            map[domain.Decision]int
	samples              []time.Duration
	next                 int
	total                time.Duration
}

// Aggregator is an observer feeding both an in-process snapshot and a set of
// Prometheus collectors.
type Aggregator struct {
	mu        sync.Mutex
	hooks     int
	failures  int
	decisions map[domain.Decision]int
	handlers  map[string]*handlerState

	hookTotal       *prometheus.CounterVec
	hookDuration    *prometheus.HistogramVec
	handlerDuration *prometheus.HistogramVec
	handlerDecision *prometheus.CounterVec
	handlerSkips    *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
}

var _ observability.Observer = (*Aggregator)(nil)

// Option configures an Aggregator.
type Option func(*config)

type config struct {
	namespace  string
	registerer prometheus.Registerer
}

// WithNamespace sets the metric namespace. Default: "fasthooks".
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithRegisterer registers the collectors on r. Without it the collectors are
// created but not registered.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) { c.registerer = r }
}

// New creates an Aggregator.
func New(opts ...Option) (*Aggregator, error) {
	cfg := config{namespace: "fasthooks"}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Aggregator{
		decisions: make(map[domain.Decision]int),
		handlers:  make(map[string]*handlerState),
		hookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "hooks_total",
			Help:      "Hook invocations by stage and outcome.",
		}, []string{"stage", "decision"}),
		hookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "hook_duration_seconds",
			Help:      "Wall-clock duration of completed hook invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "handler_duration_seconds",
			Help:      "Duration of handler executions.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"handler"}),
		handlerDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "handler_decisions_total",
			Help:      "Decisions returned by handlers.",
		}, []string{"handler", "decision"}),
		handlerSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "handler_skips_total",
			Help:      "Handlers skipped by a short-circuit.",
		}, []string{"handler", "reason"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "handler_errors_total",
			Help:      "Handler failures by error type.",
		}, []string{"handler", "error_type"}),
	}

	if cfg.registerer != nil {
		for _, c := range a.Collectors() {
			if err := cfg.registerer.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// Collectors returns every Prometheus collector owned by the aggregator.
func (a *Aggregator) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		a.hookTotal, a.hookDuration, a.handlerDuration,
		a.handlerDecision, a.handlerSkips, a.handlerErrors,
	}
}

func (a *Aggregator) Name() string { return "metrics" }

func (a *Aggregator) OnHookStart(*domain.Event, *domain.ObserverContext)    {}
func (a *Aggregator) OnHandlerStart(*domain.Event, *domain.ObserverContext) {}

func (a *Aggregator) OnHookEnd(ev *domain.Event, _ *domain.ObserverContext) {
	decision := ev.Decision.Normalize()
	a.hookTotal.WithLabelValues(string(ev.HookEventName), string(decision)).Inc()
	a.hookDuration.WithLabelValues(string(ev.HookEventName)).Observe(ev.Duration().Seconds())

	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks++
	a.decisions[decision]++
}

func (a *Aggregator) OnHookError(ev *domain.Event, _ *domain.ObserverContext) {
	a.hookTotal.WithLabelValues(string(ev.HookEventName), "error").Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks++
	a.failures++
}

func (a *Aggregator) OnHandlerEnd(ev *domain.Event, _ *domain.ObserverContext) {
	decision := ev.Decision.Normalize()
	d := ev.Duration()
	a.handlerDuration.WithLabelValues(ev.HandlerName).Observe(d.Seconds())
	a.handlerDecision.WithLabelValues(ev.HandlerName, string(decision)).Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.handler(ev.HandlerName)
	h.calls++
	h.decisions[decision]++
	h.total += d
	if len(h.samples) < maxSamples {
		h.samples = append(h.samples, d)
	} else {
		h.samples[h.next] = d
		h.next = (h.next + 1) % maxSamples
	}
}

func (a *Aggregator) OnHandlerSkip(ev *domain.Event, _ *domain.ObserverContext) {
	a.handlerSkips.WithLabelValues(ev.HandlerName, ev.SkipReason).Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler(ev.HandlerName).skips++
}

func (a *Aggregator) OnHandlerError(ev *domain.Event, _ *domain.ObserverContext) {
	a.handlerErrors.WithLabelValues(ev.HandlerName, ev.ErrorType).Inc()
	a.handlerDecision.WithLabelValues(ev.HandlerName, string(domain.Block)).Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.handler(ev.HandlerName)
	h.errors++
	h.decisions[domain.Block]++
}

// handler must be called with mu held.
func (a *Aggregator) handler(name string) *handlerState {
	h, ok := a.handlers[name]
	if !ok {
		h = &handlerState{decisions: make(map[domain.Decision]int)}
		a.handlers[name] = h
	}
	return h
}

// Snapshot copies the accumulated state. The lock is held only for the copy.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	snap := Snapshot{
		Hooks:     a.hooks,
		Failures:  a.failures,
		Decisions: maps.Clone(a.decisions),
		Handlers:  make([]HandlerStats, 0, len(a.handlers)),
	}
	for name, h := range a.handlers {
		samples := make([]time.Duration, 0, len(h.samples))
		samples = append(samples, h.samples[h.next:]...)
		samples = append(samples, h.samples[:h.next]...)
		snap.Handlers = append(snap.Handlers, HandlerStats{
			Name:      name,
			Calls:     h.calls,
			Errors:    h.errors,
			Skips:     h.skips,
			Decisions: maps.Clone(h.decisions),
			Samples:   samples,
			Total:     h.total,
		})
	}
	a.mu.Unlock()

	sort.Slice(snap.Handlers, func(i, j int) bool { return snap.Handlers[i].Name < snap.Handlers[j].Name })
	return snap
}
