// Package transcript reads the JSONL conversation log named by a payload's
// transcript_path into typed entries and content blocks.
package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Entry types found in transcripts.
const (
	TypeUser         = "user"
	TypeAssistant    = "assistant"
	TypeSystem       = "system"
	TypeSummary      = "summary"
	TypeFileSnapshot = "file-history-snapshot"
)

// System entry subtypes.
const (
	SubtypeCompactBoundary = "compact_boundary"
	SubtypeStopHookSummary = "stop_hook_summary"
)

// Block types.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Entry is one line of a transcript.
type Entry struct {
	Type       string    `json:"type"`
	Subtype    string    `json:"subtype,omitempty"`
	UUID       string    `json:"uuid,omitempty"`
	ParentUUID string    `json:"parentUuid,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	IsMeta     bool      `json:"isMeta,omitempty"`
	Content    string    `json:"content,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Message    *Message  `json:"message,omitempty"`

	// Line is the 1-based line number in the file.
	Line int `json:"-"`
	// Raw is the line as read, for fields not modelled here.
	Raw json.RawMessage `json:"-"`
}

// Message is the payload of user and assistant entries.
type Message struct {
	ID      string  `json:"id,omitempty"`
	Role    string  `json:"role"`
	Model   string  `json:"model,omitempty"`
	Content Content `json:"content"`
}

// Content is a message body. A plain string body decodes as one text block.
type Content []Block

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = Content{{Type: BlockText, Text: text}}
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = blocks
	return nil
}

// Block is one content block. Which fields are set depends on Type.
type Block struct {
	Type string `json:"type"`

	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Result    json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ResultText flattens a tool_result body, which is either a string or a list
// of text blocks.
func (b *Block) ResultText() string {
	if len(b.Result) == 0 {
		return ""
	}
	var c Content
	if err := json.Unmarshal(b.Result, &c); err != nil {
		return string(b.Result)
	}
	return c.Text()
}

// InputField returns a top-level string field of a tool_use input.
func (b *Block) InputField(key string) (string, bool) {
	var fields map[string]any
	if err := json.Unmarshal(b.Input, &fields); err != nil {
		return "", false
	}
	s, ok := fields[key].(string)
	return s, ok
}

// Text joins the text blocks with newlines.
func (c Content) Text() string {
	var parts []string
	for _, b := range c {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Blocks returns the message content, or nil for entries without a message.
func (e *Entry) Blocks() Content {
	if e.Message == nil {
		return nil
	}
	return e.Message.Content
}

// Text returns the joined text of the message, or Content for system entries.
func (e *Entry) Text() string {
	if e.Message == nil {
		return e.Content
	}
	return e.Message.Content.Text()
}

// IsToolResult reports a user entry that carries tool results rather than a
// prompt.
func (e *Entry) IsToolResult() bool {
	if e.Type != TypeUser {
		return false
	}
	for _, b := range e.Blocks() {
		if b.Type == BlockToolResult {
			return true
		}
	}
	return false
}

// IsCompactBoundary reports a compaction marker.
func (e *Entry) IsCompactBoundary() bool {
	return e.Type == TypeSystem && e.Subtype == SubtypeCompactBoundary
}
