/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// render.go prints markdown, styled with glamour when stdout is a
// terminal and raw otherwise.

package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// stdoutIsTerminal reports whether output goes to a terminal. Tests
// replace it.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Colour reports whether output may carry ANSI styling.
func Colour() bool { return stdoutIsTerminal() }

// RenderMarkdown writes md to the output writer.
func RenderMarkdown(md string) {
	if stdoutIsTerminal() {
		if rendered, err := glamour.Render(md, "dark"); err == nil {
			fmt.Fprint(out, rendered)
			return
		}
	}
	fmt.Fprint(out, md)
}
