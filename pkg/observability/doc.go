/*
Package observability delivers the lifecycle events of a hook invocation to
pluggable observers.

An Observer implements one method per event kind. Embedding BaseObserver gives
a no-op default for every method, so concrete observers implement only what
they need. Hooks is the function-table form of the same contract, and a plain
CallbackFunc can be registered for every kind or for exactly one.

The Registry owns the ordered observer list of one application. It never lets
an observer failure reach the caller: panics are recovered at the call site,
logged as a warning, and dispatch moves on to the next observer. When nothing
is registered, Enabled reports false and the executor skips building events
altogether.
*/
package observability
