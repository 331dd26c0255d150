package fasthooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// Output is the JSON document written back to the host.
type Output struct {
	Decision           string          `json:"decision,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	SystemMessage      string          `json:"systemMessage,omitempty"`
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries stage-specific decisions.
type SpecificOutput struct {
	HookEventName            domain.Stage      `json:"hookEventName"`
	PermissionDecision       string            `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string            `json:"permissionDecisionReason,omitempty"`
	Decision                 *PermissionResult `json:"decision,omitempty"`
}

// PermissionResult answers a PermissionRequest.
type PermissionResult struct {
	Behavior string `json:"behavior"`
	Message  string `json:"message,omitempty"`
}

// Render converts a result into the host document. A silent allow renders
// as nil, meaning nothing is written.
func Render(stage domain.Stage, res domain.Result) *Output {
	out := &Output{SystemMessage: res.Message}

	switch res.Decision.Normalize() {
	case domain.Block:
		out.Decision = string(domain.Block)
		out.Reason = res.Reason
	case domain.Deny:
		switch stage {
		case domain.StagePreToolUse:
			out.HookSpecificOutput = &SpecificOutput{
				HookEventName:            stage,
				PermissionDecision:       string(domain.Deny),
				PermissionDecisionReason: res.Reason,
			}
		case domain.StagePermissionRequest:
			out.HookSpecificOutput = &SpecificOutput{
				HookEventName: stage,
				Decision:      &PermissionResult{Behavior: string(domain.Deny), Message: res.Reason},
			}
		default:
			// Stages without a deny channel stop the agent instead.
			out.Decision = string(domain.Block)
			out.Reason = res.Reason
		}
	default:
		if out.SystemMessage == "" {
			return nil
		}
	}
	return out
}

// Run reads one payload from r, dispatches it and writes the response to w.
// Empty input is a no-op. On a handler failure nothing is written and the
// *domain.HandlerError is returned so the caller can exit with status 2.
func (a *App) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read hook input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		a.logger.Debug("empty hook input")
		return nil
	}

	in, err := domain.ParseInput(data)
	if err != nil {
		return err
	}

	res, err := a.Dispatch(ctx, in)
	if err != nil {
		var herr *domain.HandlerError
		if errors.As(err, &herr) {
			a.logger.Error("handler failed", "handler", herr.Handler, "hook_id", res.HookID, "error", herr.Err)
		}
		return err
	}

	out := Render(in.HookEventName, res)
	if out == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(out)
}
