package fasthooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/fasthooks/internal/runtime"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/aretw0/fasthooks/pkg/strategies"
	"github.com/aretw0/fasthooks/pkg/tasks"
)

// App is the high-level entry point: a handler registry plus the observers
// that trace its invocations.
type App struct {
	Name string

	sessionID  string
	logger     *slog.Logger
	execOpts   []runtime.ExecutorOption
	pending    []observability.Observer
	observers  *observability.Registry
	contexts   *observability.ContextBuilder
	executor   *runtime.Executor
	strategies *strategies.Registry

	taskOnce sync.Once
	taskBack tasks.Backend

	mu       sync.RWMutex
	handlers []runtime.Handler
}

var (
	_ strategies.Binder = (*App)(nil)
	_ strategies.Binder = (*staging)(nil)
)

// New creates an App.
func New(name string, opts ...Option) *App {
	a := &App{
		Name:       name,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		strategies: strategies.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Name != "" {
		a.logger = a.logger.With("app", a.Name)
	}

	a.observers = observability.NewRegistry(observability.WithLogger(a.logger))
	for _, obs := range a.pending {
		a.observers.Add(obs)
	}
	a.pending = nil

	a.contexts = observability.NewContextBuilder(a.Name, a.Handlers)
	execOpts := append([]runtime.ExecutorOption{runtime.WithLogger(a.logger)}, a.execOpts...)
	a.executor = runtime.NewExecutor(a.observers, a.contexts, execOpts...)
	return a
}

// Observe registers an interface observer. Observers run in registration
// order, before any callback observer.
func (a *App) Observe(obs observability.Observer) {
	a.observers.Add(obs)
}

// OnEvent registers a callback observer, optionally filtered to one kind.
func (a *App) OnEvent(fn observability.CallbackFunc, kinds ...domain.EventKind) error {
	return a.observers.AddCallback(fn, kinds...)
}

// Observers exposes the observer registry.
func (a *App) Observers() *observability.Registry {
	return a.observers
}

// HooksProcessed returns the number of invocations dispatched so far.
func (a *App) HooksProcessed() int64 {
	return a.contexts.Processed()
}

// Handle registers a handler for stage. On tool stages, tools restricts the
// handler to those tools; none means every tool.
func (a *App) Handle(stage domain.Stage, name string, fn domain.HandlerFunc, tools ...string) error {
	r, err := newRegistration(stage, name, fn, tools)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addLocked(r)
	return nil
}

type registration struct {
	stage domain.Stage
	name  string
	fn    domain.HandlerFunc
	tools []string
}

func newRegistration(stage domain.Stage, name string, fn domain.HandlerFunc, tools []string) (registration, error) {
	if !stage.Valid() {
		return registration{}, fmt.Errorf("%w: %q", domain.ErrUnknownStage, stage)
	}
	if fn == nil {
		return registration{}, errors.New("handler function is nil")
	}
	if len(tools) > 0 && !stage.IsToolStage() {
		return registration{}, fmt.Errorf("stage %s does not take tool names", stage)
	}
	return registration{stage: stage, name: name, fn: fn, tools: slices.Clone(tools)}, nil
}

// addLocked must be called with mu held.
func (a *App) addLocked(r registration) {
	name, tools := r.name, r.tools
	if name == "" {
		name = fmt.Sprintf("%s#%d", r.stage, len(a.handlers)+1)
	}
	if r.stage.IsToolStage() && len(tools) == 0 {
		tools = []string{domain.AnyTool}
	}
	if len(tools) == 0 {
		a.handlers = append(a.handlers, runtime.Handler{Info: domain.HandlerInfo{Name: name, Stage: r.stage}, Fn: r.fn})
		return
	}
	for _, tool := range tools {
		a.handlers = append(a.handlers, runtime.Handler{
			Info: domain.HandlerInfo{Name: name, Stage: r.stage, ToolName: tool},
			Fn:   r.fn,
		})
	}
}

// staging collects a strategy's handlers until Include commits them.
type staging struct {
	regs []registration
}

func (s *staging) Handle(stage domain.Stage, name string, fn domain.HandlerFunc, tools ...string) error {
	r, err := newRegistration(stage, name, fn, tools)
	if err != nil {
		return err
	}
	s.regs = append(s.regs, r)
	return nil
}

// Handlers returns a copy of the handler inventory in registration order.
func (a *App) Handlers() []domain.HandlerInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	infos := make([]domain.HandlerInfo, len(a.handlers))
	for i, h := range a.handlers {
		infos[i] = h.Info
	}
	return infos
}

// Include registers a strategy and binds its handlers. A strategy whose hooks
// are already owned is rejected with *strategies.ConflictError. Include is
// all or nothing: when binding or registration fails, neither the strategy
// nor any of its handlers is kept.
func (a *App) Include(s strategies.Strategy) error {
	st := &staging{}
	if err := s.Bind(st); err != nil {
		return fmt.Errorf("strategy %s: %w", s.Meta(), err)
	}
	if err := a.strategies.Register(s); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range st.regs {
		a.addLocked(r)
	}
	return nil
}

// Strategies exposes the strategy registry.
func (a *App) Strategies() *strategies.Registry {
	return a.strategies
}

// TaskBackend returns the backend behind tasks.FromContext in handlers,
// creating an in-memory one on first use unless WithTaskBackend set one.
func (a *App) TaskBackend() tasks.Backend {
	a.taskOnce.Do(func() {
		if a.taskBack == nil {
			a.taskBack = tasks.NewInMemory(tasks.WithLogger(a.logger))
		}
	})
	return a.taskBack
}

// Dispatch runs the handlers matching in and returns the aggregated result.
// A handler failure is returned as *domain.HandlerError; the result then
// carries a block decision. in is not modified; handlers see a copy carrying
// the App's session id when the payload has none, and find that session's
// tasks through tasks.FromContext.
func (a *App) Dispatch(ctx context.Context, in *domain.Input) (domain.Result, error) {
	inv := runtime.Invocation{Input: in}
	if in != nil {
		if in.SessionID == "" && a.sessionID != "" {
			local := *in
			local.SessionID = a.sessionID
			inv.Input = &local
		}
		if in.HookEventName.Valid() {
			inv.Handlers = a.match(in.HookEventName, in.ToolName)
		} else {
			inv.Err = fmt.Errorf("%w: %q", domain.ErrUnknownStage, in.HookEventName)
		}
		ctx = tasks.NewContext(ctx, tasks.Bind(a.TaskBackend(), inv.Input.SessionID))
	}
	return a.executor.Execute(ctx, inv)
}

func (a *App) match(stage domain.Stage, tool string) []runtime.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.DeleteFunc(slices.Clone(a.handlers), func(h runtime.Handler) bool {
		return !h.Info.Matches(stage, tool)
	})
}
