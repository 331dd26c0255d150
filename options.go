package fasthooks

import (
	"log/slog"
	"time"

	"github.com/aretw0/fasthooks/internal/runtime"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/aretw0/fasthooks/pkg/tasks"
)

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithLogger sets a custom structured logger for the app.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSessionID sets the session id used when a payload carries none.
func WithSessionID(id string) Option {
	return func(a *App) {
		a.sessionID = id
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(obs observability.Observer) Option {
	return func(a *App) {
		a.pending = append(a.pending, obs)
	}
}

// WithClock replaces time.Now for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.execOpts = append(a.execOpts, runtime.WithClock(now))
	}
}

// WithIDGenerator replaces the hook_id generator.
func WithIDGenerator(gen func() string) Option {
	return func(a *App) {
		a.execOpts = append(a.execOpts, runtime.WithIDGenerator(gen))
	}
}

// WithTaskBackend sets the backend handlers reach through tasks.FromContext.
func WithTaskBackend(b tasks.Backend) Option {
	return func(a *App) {
		a.taskBack = b
	}
}
