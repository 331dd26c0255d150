/*
Package fasthooks runs agent lifecycle hooks written in Go.

An App holds an ordered list of handlers, each bound to a lifecycle stage
(PreToolUse, Stop, ...) and, for tool stages, to tool names. For every
incoming payload the matching handlers run in registration order; their
decisions are aggregated as allow < deny < block and the first restrictive
decision or failure short-circuits the rest of the chain.

# Observability

Every invocation can be traced as an ordered stream of events (hook_start,
handler_start, handler_end, handler_skip, handler_error, hook_end, hook_error)
delivered synchronously to registered observers. With no observer registered
no event is built at all.

Observers implement observability.Observer (embed observability.BaseObserver
to get no-op defaults) or are plain callbacks registered with OnEvent. A
panicking observer is logged and skipped; it never affects the hook result.

# Usage

	package main

	import (
		"context"
		"os"
		"strings"

		"github.com/aretw0/fasthooks"
		"github.com/aretw0/fasthooks/pkg/adapters/file"
		"github.com/aretw0/fasthooks/pkg/domain"
	)

	func main() {
		app := fasthooks.New("guard")

		sink, err := file.Open(".fasthooks/events.jsonl")
		if err == nil {
			defer sink.Close()
			app.Observe(sink)
		}

		app.PreToolUse("no-rm", func(ctx context.Context, in *domain.Input) (*domain.Response, error) {
			if cmd, _ := in.Field("command"); strings.Contains(cmd, "rm -rf") {
				return domain.DenyResponse("destructive command"), nil
			}
			return nil, nil
		}, "Bash")

		if err := app.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
			os.Exit(2)
		}
	}
*/
package fasthooks
