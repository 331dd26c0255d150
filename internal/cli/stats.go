package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/fasthooks/internal/presentation/tui"
	"github.com/aretw0/fasthooks/pkg/adapters/sqlite"
	"github.com/aretw0/fasthooks/pkg/transcript"
)

// StatsMarkdown reads the SQLite event store at path and summarizes it.
func StatsMarkdown(ctx context.Context, path string, errorLimit int) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("event store not found: %w", err)
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	sum, err := store.Summary(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to summarize hooks: %w", err)
	}
	handlers, err := store.Handlers(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to summarize handlers: %w", err)
	}
	errs, err := store.RecentErrors(ctx, errorLimit)
	if err != nil {
		return "", fmt.Errorf("failed to list errors: %w", err)
	}
	return tui.StatsMarkdown(sum, handlers, errs), nil
}

// HandlersMarkdown lists the handlers the runtime would run.
func HandlersMarkdown(rt *Runtime) string {
	return tui.HandlersMarkdown(rt.App.Handlers())
}

// Render writes markdown through glamour, or verbatim when raw is set.
func Render(w io.Writer, markdown string, raw bool) error {
	if !raw {
		if out, err := tui.NewRenderer(0)(markdown); err == nil {
			markdown = out
		}
	}
	_, err := io.WriteString(w, markdown)
	return err
}

// TranscriptMarkdown loads the conversation log at path and summarizes it.
func TranscriptMarkdown(path string, strict bool) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("transcript not found: %w", err)
	}
	var opts []transcript.Option
	if strict {
		opts = append(opts, transcript.Strict())
	}
	tr, err := transcript.Load(path, opts...)
	if err != nil {
		return "", err
	}
	return tui.TranscriptMarkdown(tr), nil
}
