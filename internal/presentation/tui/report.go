package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/fasthooks/pkg/adapters/sqlite"
	"github.com/aretw0/fasthooks/pkg/domain"
)

// StatsMarkdown renders the event store summary as a markdown document.
func StatsMarkdown(sum sqlite.Summary, handlers []sqlite.HandlerSummary, errs []sqlite.ErrorRecord) string {
	var b strings.Builder
	b.WriteString("# Hook statistics\n\n")
	fmt.Fprintf(&b, "- **Invocations:** %d\n", sum.Hooks)
	fmt.Fprintf(&b, "- **Failed:** %d\n", sum.Failed)
	for _, d := range []domain.Decision{domain.Allow, domain.Deny, domain.Block} {
		fmt.Fprintf(&b, "- **%s:** %d\n", d, sum.Decisions[d])
	}

	b.WriteString("\n## Handlers\n\n")
	if len(handlers) == 0 {
		b.WriteString("_No handler executions recorded._\n")
	} else {
		b.WriteString("| Handler | Calls | Errors | Skips | Deny/Block | Avg ms | Max ms |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
		for _, h := range handlers {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %.2f | %.2f |\n",
				escape(h.Name), h.Calls, h.Errors, h.Skips, h.Restrictive, h.AvgMS, h.MaxMS)
		}
	}

	if len(errs) > 0 {
		b.WriteString("\n## Recent errors\n\n")
		for _, e := range errs {
			where := "hook"
			if e.Handler != "" {
				where = "`" + e.Handler + "`"
			}
			fmt.Fprintf(&b, "- %s **%s**: %s (`%s`)\n", where, escape(e.Type), escape(e.Message), e.HookID)
		}
	}
	return b.String()
}

// HandlersMarkdown renders a handler inventory grouped by stage.
func HandlersMarkdown(infos []domain.HandlerInfo) string {
	var b strings.Builder
	b.WriteString("# Handlers\n\n")
	if len(infos) == 0 {
		b.WriteString("_No handlers configured._\n")
		return b.String()
	}

	byStage := make(map[domain.Stage][]domain.HandlerInfo)
	for _, h := range infos {
		byStage[h.Stage] = append(byStage[h.Stage], h)
	}
	stages := make([]domain.Stage, 0, len(byStage))
	for s := range byStage {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })

	for _, s := range stages {
		fmt.Fprintf(&b, "## %s\n\n", s)
		for i, h := range byStage[s] {
			if h.ToolName != "" {
				fmt.Fprintf(&b, "%d. `%s` on `%s`\n", i+1, h.Name, h.ToolName)
			} else {
				fmt.Fprintf(&b, "%d. `%s`\n", i+1, h.Name)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
