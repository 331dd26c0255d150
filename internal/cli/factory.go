package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/fasthooks"
	"github.com/aretw0/fasthooks/internal/config"
	"github.com/aretw0/fasthooks/pkg/adapters/console"
	"github.com/aretw0/fasthooks/pkg/adapters/file"
	"github.com/aretw0/fasthooks/pkg/adapters/logger"
	"github.com/aretw0/fasthooks/pkg/adapters/metrics"
	"github.com/aretw0/fasthooks/pkg/adapters/redis"
	"github.com/aretw0/fasthooks/pkg/adapters/sqlite"
	"github.com/aretw0/fasthooks/pkg/persistence/middleware"
	"github.com/aretw0/fasthooks/pkg/rules"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime is an App wired from configuration, plus the resources its
// observers hold.
type Runtime struct {
	App      *fasthooks.App
	Metrics  *metrics.Aggregator
	Registry *prometheus.Registry
	closers  []io.Closer
}

// Close releases every observer resource, flushing buffered events.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build creates the App described by cfg. Console output goes to stderr so
// stdout stays reserved for the hook response.
func Build(cfg *config.Config, log *slog.Logger, stderr io.Writer) (*Runtime, error) {
	compiled, err := rules.CompileAll(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	redact, err := middleware.NewRedactor(cfg.Observers.Redact)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{}
	app := fasthooks.New(cfg.App.Name,
		fasthooks.WithLogger(log),
		fasthooks.WithSessionID(cfg.App.SessionID),
	)
	rt.App = app
	rt.closers = append(rt.closers, app.TaskBackend())

	obs := cfg.Observers
	if obs.Metrics {
		rt.Registry = prometheus.NewRegistry()
		rt.Metrics, err = metrics.New(metrics.WithRegisterer(rt.Registry))
		if err != nil {
			return nil, err
		}
		app.Observe(rt.Metrics)
	}
	if obs.JSONL.Path != "" {
		sink, err := file.Open(obs.JSONL.Path, file.WithFsync(obs.JSONL.Fsync), file.WithLogger(log))
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, sink)
		app.Observe(redact(sink))
	}
	if obs.SQLite.Path != "" {
		store, err := sqlite.Open(obs.SQLite.Path, sqlite.WithBatchSize(obs.SQLite.BatchSize), sqlite.WithLogger(log))
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, store)
		app.Observe(redact(store))
	}
	if obs.Redis.URL != "" {
		redisOpts := []redis.Option{
			redis.WithKey(obs.Redis.Key),
			redis.WithTimeout(obs.Redis.Timeout),
			redis.WithLogger(log),
		}
		if obs.Redis.MaxLen > 0 {
			redisOpts = append(redisOpts, redis.WithMaxLen(obs.Redis.MaxLen))
		}
		stream, err := redis.New(obs.Redis.URL, redisOpts...)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, stream)
		app.Observe(redact(stream))
	}
	if obs.Log {
		app.Observe(logger.New(log))
	}
	if obs.Console {
		app.Observe(console.New(stderr))
	}

	for _, c := range compiled {
		if err := app.Handle(c.Stage, c.Name, c.Handler(), c.Tools...); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("rule %s: %w", c.Name, err)
		}
	}
	return rt, nil
}
