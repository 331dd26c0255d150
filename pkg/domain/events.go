package domain

import (
	"fmt"
	"time"
)

// EventKind identifies one moment in the life of a hook invocation.
// The set is closed; NumEventKinds bounds dispatch tables indexed by kind.
type EventKind uint8

const (
	EventHookStart EventKind = iota
	EventHookEnd
	EventHookError
	EventHandlerStart
	EventHandlerEnd
	EventHandlerSkip
	EventHandlerError

	NumEventKinds = int(iota)
)

var eventKindNames = [NumEventKinds]string{
	EventHookStart:    "hook_start",
	EventHookEnd:      "hook_end",
	EventHookError:    "hook_error",
	EventHandlerStart: "handler_start",
	EventHandlerEnd:   "handler_end",
	EventHandlerSkip:  "handler_skip",
	EventHandlerError: "handler_error",
}

// EventKinds returns every kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, NumEventKinds)
	for i := range kinds {
		kinds[i] = EventKind(i)
	}
	return kinds
}

func (k EventKind) String() string {
	if int(k) < NumEventKinds {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Valid reports whether k is one of the seven kinds.
func (k EventKind) Valid() bool {
	return int(k) < NumEventKinds
}

// IsTerminal reports whether k closes a hook invocation.
func (k EventKind) IsTerminal() bool {
	return k == EventHookEnd || k == EventHookError
}

// ParseEventKind maps the wire name (e.g. "handler_end") to its kind.
func ParseEventKind(s string) (EventKind, error) {
	for i, name := range eventKindNames {
		if name == s {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown event kind %q", ErrInvalidFilter, s)
}

func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFilter, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is an immutable record of one lifecycle moment. The same instance is
// handed to every observer; observers must copy out anything they keep.
type Event struct {
	Kind          EventKind `json:"event_type"`
	HookID        string    `json:"hook_id"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	HookEventName Stage     `json:"hook_event_name"`
	ToolName      string    `json:"tool_name,omitempty"`
	HandlerName   string    `json:"handler_name,omitempty"`
	// DurationMS is set on handler_end and hook_end only.
	DurationMS   *float64 `json:"duration_ms,omitempty"`
	Decision     Decision `json:"decision,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	InputPreview string   `json:"input_preview,omitempty"`
	SkipReason   string   `json:"skip_reason,omitempty"`
	ErrorType    string   `json:"error_type,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Duration returns the event duration, or zero when the event carries none.
func (e *Event) Duration() time.Duration {
	if e.DurationMS == nil {
		return 0
	}
	return time.Duration(*e.DurationMS * float64(time.Millisecond))
}

// Milliseconds converts a duration into the float representation used on events.
func Milliseconds(d time.Duration) *float64 {
	ms := float64(d) / float64(time.Millisecond)
	return &ms
}
