/*
Package domain contains the data model of the hook pipeline.

It is kept free of I/O and of any observer or executor logic, so that third
party observers can depend on it without pulling in the dispatcher.

# Key Entities

  - Decision: the three-valued outcome allow < deny < block.
  - Input: the payload the host sends for one lifecycle stage.
  - HandlerInfo: the static descriptor of a registered handler.
  - Event: an immutable record of one lifecycle moment (hook_start, handler_end, ...).
  - ObserverContext: the per-invocation snapshot shared by all events.
*/
package domain
