package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PreviewLimit caps input_preview at this many characters (runes).
const PreviewLimit = 4096

// MessageLimit caps the reason and error_message of an event.
const MessageLimit = 4096

// Input is the payload the host writes to the hook's stdin.
type Input struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path,omitempty"`
	Cwd            string         `json:"cwd,omitempty"`
	HookEventName  Stage          `json:"hook_event_name"`
	ToolName       string         `json:"tool_name,omitempty"`
	ToolInput      map[string]any `json:"tool_input,omitempty"`
	ToolResponse   map[string]any `json:"tool_response,omitempty"`
	Prompt         string         `json:"prompt,omitempty"`
	Message        string         `json:"message,omitempty"`

	raw []byte
}

// ParseInput decodes a payload and keeps the raw bytes for previews.
func ParseInput(data []byte) (*Input, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to decode hook input: %w", err)
	}
	in.raw = data
	return &in, nil
}

// Raw returns the original payload, or a fresh encoding if the input was
// built in code.
func (in *Input) Raw() []byte {
	if in.raw != nil {
		return in.raw
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return data
}

// Field resolves a dot path against the payload. "prompt", "message" and
// "tool_name" address top-level fields; anything else is looked up inside
// tool_input ("command", "file_path"). Only nested maps are traversed.
func (in *Input) Field(path string) (string, bool) {
	switch path {
	case "prompt":
		return in.Prompt, in.Prompt != ""
	case "message":
		return in.Message, in.Message != ""
	case "tool_name":
		return in.ToolName, in.ToolName != ""
	case "cwd":
		return in.Cwd, in.Cwd != ""
	}
	var cur any = in.ToolInput
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
