package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aretw0/fasthooks/pkg/domain"
	"golang.org/x/term"
)

// Exit codes of the run command. The host treats 2 as a blocking error and
// shows stderr to the agent.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitHandlerError = 2
)

// ErrInteractive is returned when run is started on a terminal instead of a pipe.
var ErrInteractive = errors.New("run expects a hook payload on stdin, not a terminal")

// RunHook processes one payload from stdin and maps the outcome to an exit code.
func RunHook(ctx context.Context, rt *Runtime, stdin io.Reader, stdout io.Writer) (int, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ExitError, ErrInteractive
	}

	err := rt.App.Run(ctx, stdin, stdout)
	if err == nil {
		return ExitOK, nil
	}
	var herr *domain.HandlerError
	if errors.As(err, &herr) {
		return ExitHandlerError, err
	}
	return ExitError, err
}
