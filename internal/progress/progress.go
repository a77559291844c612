// Package progress provides CLI progress indicators. Output goes to stderr
// to keep stdout clean for piping, and TTY detection keeps scripted output
// free of control characters.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// interval between spinner frames.
const interval = 100 * time.Millisecond

// Spinner shows that a slow step, such as passphrase key derivation, is
// still running.
type Spinner struct {
	w      io.Writer
	label  string
	isTTY  bool
	frames []string

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner that writes to stderr.
func NewSpinner(label string) *Spinner {
	return newSpinner(os.Stderr, label, term.IsTerminal(int(os.Stderr.Fd())))
}

func newSpinner(w io.Writer, label string, tty bool) *Spinner {
	return &Spinner{
		w:      w,
		label:  label,
		isTTY:  tty,
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start displays the spinner and animates it until Stop. A no-op off a TTY.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isTTY || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(s.stop, s.stopped)
}

func (s *Spinner) run(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	t := time.NewTicker(interval)
	defer t.Stop()
	for frame := 0; ; frame = (frame + 1) % len(s.frames) {
		fmt.Fprintf(s.w, "\r%s %s...", s.frames[frame], s.label)
		select {
		case <-stop:
			fmt.Fprintf(s.w, "\r%s\r", "                                        ")
			return
		case <-t.C:
		}
	}
}

// Stop clears the spinner line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
	s.stop, s.stopped = nil, nil
}
