package domain

import (
	"context"
	"fmt"
	"slices"
)

// Stage is the lifecycle moment the host is notifying about.
type Stage string

const (
	StagePreToolUse        Stage = "PreToolUse"
	StagePostToolUse       Stage = "PostToolUse"
	StagePermissionRequest Stage = "PermissionRequest"
	StageStop              Stage = "Stop"
	StageSubagentStop      Stage = "SubagentStop"
	StageSessionStart      Stage = "SessionStart"
	StageSessionEnd        Stage = "SessionEnd"
	StagePreCompact        Stage = "PreCompact"
	StageUserPromptSubmit  Stage = "UserPromptSubmit"
	StageNotification      Stage = "Notification"
)

// Stages lists every stage the app accepts, tool stages first.
var Stages = []Stage{
	StagePreToolUse,
	StagePostToolUse,
	StagePermissionRequest,
	StageStop,
	StageSubagentStop,
	StageSessionStart,
	StageSessionEnd,
	StagePreCompact,
	StageUserPromptSubmit,
	StageNotification,
}

// IsToolStage reports whether handlers on this stage are matched by tool name.
func (s Stage) IsToolStage() bool {
	switch s {
	case StagePreToolUse, StagePostToolUse, StagePermissionRequest:
		return true
	}
	return false
}

// Valid reports whether the stage is known.
func (s Stage) Valid() bool {
	return slices.Contains(Stages, s)
}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return st, nil
}

// AnyTool is the matcher for tool handlers registered without a tool name.
const AnyTool = "*"

// HandlerFunc is user logic bound to a stage. Returning a nil Response means
// the handler has no opinion, which counts as Allow.
type HandlerFunc func(ctx context.Context, in *Input) (*Response, error)

// HandlerInfo is the static descriptor of one registered handler.
// It is built once at registration and never mutated.
type HandlerInfo struct {
	Name     string `json:"name"`
	Stage    Stage  `json:"event_type"`
	ToolName string `json:"tool_name,omitempty"`
}

// Matches reports whether the handler is bound to the given stage and tool.
func (h HandlerInfo) Matches(stage Stage, tool string) bool {
	if h.Stage != stage {
		return false
	}
	if !stage.IsToolStage() {
		return true
	}
	return h.ToolName == "" || h.ToolName == AnyTool || h.ToolName == tool
}
