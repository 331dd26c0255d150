package middleware

import "github.com/aretw0/fasthooks/pkg/observability"

// Middleware wraps an observer to transform events on their way to it.
type Middleware func(observability.Observer) observability.Observer

// Chain applies middlewares so that the first one sees events first.
func Chain(obs observability.Observer, mws ...Middleware) observability.Observer {
	for i := len(mws) - 1; i >= 0; i-- {
		obs = mws[i](obs)
	}
	return obs
}
