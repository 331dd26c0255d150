package cli

import (
	"io"

	"github.com/aretw0/fasthooks/pkg/adapters/console"
	"github.com/aretw0/fasthooks/pkg/adapters/file"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/muesli/termenv"
)

// ReplayOptions selects what Replay prints.
type ReplayOptions struct {
	Path   string
	HookID string
	Kinds  []domain.EventKind
	Plain  bool
}

// Replay prints the events of a JSONL sink file, one line each. It returns
// the number of events printed.
func Replay(opts ReplayOptions, w io.Writer) (int, error) {
	events, err := file.ReadFile(opts.Path)
	if err != nil {
		return 0, err
	}

	var printerOpts []console.Option
	if opts.Plain {
		printerOpts = append(printerOpts, console.WithProfile(termenv.Ascii))
	}
	printer := console.New(w, printerOpts...)

	printed := 0
	for i := range events {
		ev := &events[i]
		if opts.HookID != "" && ev.HookID != opts.HookID {
			continue
		}
		if len(opts.Kinds) > 0 && !containsKind(opts.Kinds, ev.Kind) {
			continue
		}
		printer.Print(ev)
		printed++
	}
	return printed, nil
}

func containsKind(kinds []domain.EventKind, k domain.EventKind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
