package observability

import (
	"slices"
	"sync/atomic"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// ContextBuilder produces the ObserverContext of each invocation.
type ContextBuilder struct {
	appName   string
	inventory func() []domain.HandlerInfo
	processed atomic.Int64
}

// NewContextBuilder creates a builder. inventory returns the handlers currently
// registered; its result is copied into every context.
func NewContextBuilder(appName string, inventory func() []domain.HandlerInfo) *ContextBuilder {
	return &ContextBuilder{appName: appName, inventory: inventory}
}

// Count records one more invocation and returns the running total.
// It is cheap and is called whether or not observers are registered.
func (b *ContextBuilder) Count() int64 {
	return b.processed.Add(1)
}

// Processed returns the number of invocations counted so far.
func (b *ContextBuilder) Processed() int64 {
	return b.processed.Load()
}

// Build creates the snapshot for one invocation. Call it once per invocation
// and share the result across all events of that invocation.
func (b *ContextBuilder) Build(sessionID string, processed int64) *domain.ObserverContext {
	var handlers []domain.HandlerInfo
	if b.inventory != nil {
		handlers = slices.Clone(b.inventory())
	}
	return &domain.ObserverContext{
		AppName:        b.appName,
		SessionID:      sessionID,
		HooksProcessed: processed,
		Handlers:       handlers,
	}
}
