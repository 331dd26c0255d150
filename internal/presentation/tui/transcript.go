package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/transcript"
)

// TranscriptMarkdown summarizes a conversation log with a table of tool calls.
func TranscriptMarkdown(tr *transcript.Transcript) string {
	var b strings.Builder
	b.WriteString("# Transcript\n\n")
	if tr.Path != "" {
		fmt.Fprintf(&b, "`%s`\n\n", tr.Path)
	}
	fmt.Fprintf(&b, "- **Entries:** %d (%d archived)\n", tr.Len(), len(tr.Archived()))
	fmt.Fprintf(&b, "- **Prompts:** %d\n", len(tr.Prompts()))
	fmt.Fprintf(&b, "- **Assistant messages:** %d\n", len(tr.AssistantMessages()))
	fmt.Fprintf(&b, "- **Compactions:** %d\n", len(tr.CompactBoundaries()))
	if tr.Skipped > 0 {
		fmt.Fprintf(&b, "- **Unreadable lines:** %d\n", tr.Skipped)
	}

	b.WriteString("\n## Tools\n\n")
	uses := tr.ToolUses()
	if len(uses) == 0 {
		b.WriteString("_No tool calls recorded._\n")
	} else {
		var order []string
		calls := make(map[string]int)
		failed := make(map[string]int)
		for _, u := range uses {
			if calls[u.Name] == 0 {
				order = append(order, u.Name)
			}
			calls[u.Name]++
			if r := tr.FindToolResult(u.ID); r != nil && r.IsError {
				failed[u.Name]++
			}
		}
		b.WriteString("| Tool | Calls | Errors |\n")
		b.WriteString("|---|---:|---:|\n")
		for _, name := range order {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", escape(name), calls[name], failed[name])
		}
	}

	if errs := tr.Errors(); len(errs) > 0 {
		b.WriteString("\n## Failed tool calls\n\n")
		for _, r := range errs {
			name := "unknown"
			if u := tr.FindToolUse(r.ToolUseID); u != nil {
				name = u.Name
			}
			fmt.Fprintf(&b, "- `%s` **%s**: %s\n", r.ToolUseID, escape(name), escape(domain.Truncate(r.ResultText(), 120)))
		}
	}
	return b.String()
}
