// Package diff compares two inventory dumps line by line for
// "vpnutils changes".
//
// A dump has one record per line, so whole lines are the unit: a peer
// whose status changed shows as its old line removed and its new line
// added.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// keep is how many unchanged lines are shown on each side of a change.
// Longer unchanged runs are collapsed.
const keep = 2

// Op says what happened to a line.
type Op int

const (
	Same Op = iota
	Added
	Removed
)

var marks = map[Op]string{Same: "  ", Added: "+ ", Removed: "- "}

// Line is one line of a dump with its fate.
type Line struct {
	Op   Op
	Text string
}

// Result is a comparison of an old and a new dump.
type Result struct {
	Old, New string // labels for the header
	Lines    []Line
}

// Compute compares oldText with newText.
func Compute(oldText, newText, oldLabel, newLabel string) Result {
	dmp := diffmatchpatch.New()
	a, b, index := dmp.DiffLinesToChars(oldText, newText)
	chunks := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), index)

	r := Result{Old: oldLabel, New: newLabel}
	for _, c := range chunks {
		op := Same
		switch c.Type {
		case diffmatchpatch.DiffInsert:
			op = Added
		case diffmatchpatch.DiffDelete:
			op = Removed
		}
		for _, text := range strings.SplitAfter(c.Text, "\n") {
			if text = strings.TrimSuffix(text, "\n"); text != "" {
				r.Lines = append(r.Lines, Line{Op: op, Text: text})
			}
		}
	}
	return r
}

// Empty reports whether nothing was added or removed.
func (r Result) Empty() bool {
	for _, l := range r.Lines {
		if l.Op != Same {
			return false
		}
	}
	return true
}

// Changed returns the text of added and removed lines.
func (r Result) Changed() (added, removed []string) {
	for _, l := range r.Lines {
		switch l.Op {
		case Added:
			added = append(added, l.Text)
		case Removed:
			removed = append(removed, l.Text)
		}
	}
	return added, removed
}

// String renders the body with long unchanged runs collapsed.
func (r Result) String() string {
	var b strings.Builder
	for i := 0; i < len(r.Lines); {
		if r.Lines[i].Op != Same {
			b.WriteString(marks[r.Lines[i].Op] + r.Lines[i].Text + "\n")
			i++
			continue
		}
		j := i
		for j < len(r.Lines) && r.Lines[j].Op == Same {
			j++
		}
		run := r.Lines[i:j]
		if len(run) > 2*keep+1 {
			head, tail := run[:keep], run[len(run)-keep:]
			if i == 0 {
				head = nil
			}
			if j == len(r.Lines) {
				tail = nil
			}
			for _, l := range head {
				b.WriteString("  " + l.Text + "\n")
			}
			fmt.Fprintf(&b, "  ... %d unchanged\n", len(run)-len(head)-len(tail))
			run = tail
		}
		for _, l := range run {
			b.WriteString("  " + l.Text + "\n")
		}
		i = j
	}
	return b.String()
}

const (
	red   = "\033[31m"
	green = "\033[32m"
	reset = "\033[0m"
)

// Format returns the diff under a ---/+++ header, coloured for terminals.
func (r Result) Format(colour bool) string {
	body := r.String()
	if colour {
		lines := strings.SplitAfter(body, "\n")
		for i, l := range lines {
			switch {
			case strings.HasPrefix(l, marks[Added]):
				lines[i] = green + strings.TrimSuffix(l, "\n") + reset + "\n"
			case strings.HasPrefix(l, marks[Removed]):
				lines[i] = red + strings.TrimSuffix(l, "\n") + reset + "\n"
			}
		}
		body = strings.Join(lines, "")
	}
	return fmt.Sprintf("--- %s\n+++ %s\n", r.Old, r.New) + body
}
