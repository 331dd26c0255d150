package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/google/uuid"
)

// Skip reasons reported on handler_skip.
const (
	SkipEarlyDeny    = "early deny"
	SkipEarlyBlock   = "early block"
	SkipHandlerError = "prior handler error"
)

// Handler is a registered handler as the executor sees it.
type Handler struct {
	Info domain.HandlerInfo
	Fn   domain.HandlerFunc
}

// Invocation is one hook call to process.
type Invocation struct {
	Input    *domain.Input
	Handlers []Handler
	// Err, when set, fails the invocation at hook level before any handler
	// runs (e.g. the payload named an unknown stage).
	Err error
}

// Executor runs handler chains and drives event emission.
type Executor struct {
	observers *observability.Registry
	contexts  *observability.ContextBuilder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithClock replaces time.Now. Durations are measured with it too.
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) {
		x.now = now
	}
}

// WithIDGenerator replaces the hook_id generator.
func WithIDGenerator(gen func() string) ExecutorOption {
	return func(x *Executor) {
		x.newID = gen
	}
}

// NewExecutor creates an executor bound to an observer registry and a context
// builder. Either may be nil, which disables instrumentation.
func NewExecutor(observers *observability.Registry, contexts *observability.ContextBuilder, opts ...ExecutorOption) *Executor {
	x := &Executor{
		observers: observers,
		contexts:  contexts,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	if x.contexts == nil {
		x.contexts = observability.NewContextBuilder("", nil)
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute runs the handlers of inv in order and returns the aggregated result.
//
// Once a handler reports a decision stricter than allow, or fails, the rest
// of the chain is reported as skipped and not invoked. A handler failure is
// returned as *domain.HandlerError after hook_error has been emitted.
func (x *Executor) Execute(ctx context.Context, inv Invocation) (res domain.Result, err error) {
	processed := x.contexts.Count()
	em := x.begin(inv.Input, processed)
	res.HookID = em.hookID()
	res.Decision = domain.Allow

	em.hookStart()
	start := x.now()

	terminated := false
	defer func() {
		if terminated {
			return
		}
		if p := recover(); p != nil {
			em.hookError(&domain.PanicError{Value: p})
			panic(p)
		}
	}()

	if setupErr := x.setupError(ctx, inv); setupErr != nil {
		terminated = true
		em.hookError(setupErr)
		res.Decision = domain.Block
		return res, setupErr
	}

	var failure *domain.HandlerError
	for i, h := range inv.Handlers {
		if failure != nil || res.Decision.IsRestrictive() {
			reason := skipReason(res.Decision, failure != nil)
			for _, rest := range inv.Handlers[i:] {
				em.handlerSkip(rest.Info, reason)
			}
			res.Skipped = len(inv.Handlers) - i
			break
		}

		em.handlerStart(h.Info)
		resp, elapsed, callErr := x.call(ctx, h, inv.Input)
		res.Handlers++

		if callErr != nil {
			em.handlerError(h.Info, callErr)
			x.logger.Debug("handler failed", "handler", h.Info.Name, "err", callErr)
			failure = &domain.HandlerError{Handler: h.Info.Name, Err: callErr}
			res.Decision = domain.Block
			res.Reason = callErr.Error()
			continue
		}

		decision := domain.Allow
		var reason string
		if resp != nil {
			decision = resp.Decision.Normalize()
			reason = resp.Reason
		}
		em.handlerEnd(h.Info, elapsed, decision, reason)

		if decision.Severity() > res.Decision.Severity() {
			res.Decision = decision
			res.Reason = reason
			res.Message = resp.Message
		} else if res.Message == "" && resp != nil {
			res.Message = resp.Message
		}
	}

	terminated = true
	if failure != nil {
		em.hookError(failure)
		return res, failure
	}
	em.hookEnd(x.now().Sub(start), res.Decision, res.Reason)
	return res, nil
}

// call runs one handler body and measures only its wall-clock time.
// Panics and unknown decisions are turned into errors.
func (x *Executor) call(ctx context.Context, h Handler, in *domain.Input) (resp *domain.Response, elapsed time.Duration, err error) {
	if h.Fn == nil {
		return nil, 0, fmt.Errorf("handler %s has no function", h.Info.Name)
	}

	start := x.now()
	defer func() {
		elapsed = x.now().Sub(start)
		if p := recover(); p != nil {
			resp = nil
			err = &domain.PanicError{Value: p}
		}
	}()

	resp, err = h.Fn(ctx, in)
	if err == nil && resp != nil && !resp.Decision.Normalize().Valid() {
		err = fmt.Errorf("%w: %q", domain.ErrInvalidDecision, resp.Decision)
	}
	return resp, elapsed, err
}

func (x *Executor) setupError(ctx context.Context, inv Invocation) error {
	if inv.Err != nil {
		return inv.Err
	}
	if inv.Input == nil {
		return domain.ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("hook cancelled before handlers ran: %w", err)
	}
	return nil
}

func skipReason(decision domain.Decision, failed bool) string {
	switch {
	case failed:
		return SkipHandlerError
	case decision == domain.Block:
		return SkipEarlyBlock
	default:
		return SkipEarlyDeny
	}
}
