// Package strategies groups handlers into named, versioned bundles and keeps
// two bundles from claiming the same hook.
package strategies

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// Meta describes a strategy. Hooks names the hooks the strategy owns, e.g.
// "Stop" or "PreToolUse:Bash"; ownership is exclusive across a registry.
type Meta struct {
	Name    string
	Version string
	Hooks   []string
}

func (m Meta) String() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + " v" + m.Version
}

// Binder is the registration surface a strategy writes its handlers to.
type Binder interface {
	Handle(stage domain.Stage, name string, fn domain.HandlerFunc, tools ...string) error
}

// Strategy is a bundle of handlers.
type Strategy interface {
	Meta() Meta
	Bind(b Binder) error
}

// ConflictError is returned when two strategies declare the same hook.
type ConflictError struct {
	Hook     string
	Existing Meta
	Incoming Meta
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("strategy conflict on hook %s: %s already registered, %s rejected\n"+
		"resolution options:\n"+
		"  1. remove one strategy from configuration\n"+
		"  2. configure one strategy to use a different hook\n"+
		"  3. create a combined strategy that handles both concerns",
		e.Hook, e.Existing, e.Incoming)
}

// Registry tracks registered strategies and the hooks they own.
type Registry struct {
	mu         sync.RWMutex
	hooks      map[string]Meta
	strategies []Strategy
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[string]Meta),
	}
}

// Register adds a strategy. It fails with *ConflictError, without registering
// anything, when one of its hooks is already owned.
func (r *Registry) Register(s Strategy) error {
	meta := s.Meta()
	if meta.Name == "" {
		return fmt.Errorf("strategy has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, hook := range meta.Hooks {
		if existing, ok := r.hooks[hook]; ok {
			return &ConflictError{Hook: hook, Existing: existing, Incoming: meta}
		}
	}
	for _, hook := range meta.Hooks {
		r.hooks[hook] = meta
	}
	r.strategies = append(r.strategies, s)
	return nil
}

// IsRegistered reports whether a strategy with that name is registered.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Get returns the registered strategy with that name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.strategies {
		if s.Meta().Name == name {
			return s, true
		}
	}
	return nil, false
}

// Strategies returns the registered strategies in registration order.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.strategies)
}

// Hooks returns a copy of the hook ownership map.
func (r *Registry) Hooks() map[string]Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Meta, len(r.hooks))
	for k, v := range r.hooks {
		out[k] = v
	}
	return out
}

// Clear forgets every strategy.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = make(map[string]Meta)
	r.strategies = nil
}
