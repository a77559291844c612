/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// shell.go runs commands against one open store until quit.
//
// Each line is split like a shell command line and executed through the
// root command, so every command behaves the same in the shell as on the
// command line. Changes are not saved until "save". "quit" refuses to
// leave while changes are unsaved unless --force is given.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrUnsaved is returned by quit while changes are unsaved.
var ErrUnsaved = errors.New("unsaved changes (run 'save', or 'quit --force' to discard them)")

var (
	interactive bool
	quitting    bool
)

// Interactive reports whether commands are running inside the shell.
func Interactive() bool { return interactive }

// RequestQuit ends the shell after the current command.
func RequestQuit() { quitting = true }

// RunShell reads command lines from in until quit, end of input or ctx is
// cancelled. Command errors are printed and the shell carries on.
func RunShell(ctx context.Context, in *bufio.Reader, errOut io.Writer) error {
	if interactive {
		return errors.New("already in the shell")
	}
	interactive, quitting = true, false
	defer func() { interactive, quitting = false, false }()
	baseOutput := output

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line, err := in.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for !quitting {
		if stdinIsTerminal() {
			fmt.Fprint(prompt, "vpnutils> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err == nil || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			line = l
		}

		args, err := shlex.Split(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "shell" {
			fmt.Fprintln(errOut, "error: already in the shell")
			continue
		}
		if err := runLine(ctx, args, baseOutput); err != nil {
			reportError(errOut, err)
		}
	}
	return nil
}

// runLine executes one shell command through the root command. The
// output format chosen when the shell started applies to every line.
func runLine(ctx context.Context, args []string, baseOutput string) error {
	resetFlags(rootCmd)
	output = baseOutput
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// resetFlags restores every flag to its default. Cobra keeps parsed
// values on the command tree between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
