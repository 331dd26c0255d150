package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes a one-line colored header.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	name := out.String("fasthooks").Foreground(out.Color("#818cf8")).Bold()
	ver := out.String("v" + version).Faint()
	fmt.Fprintf(w, "%s %s\n", name, ver)
}
