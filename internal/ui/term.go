package ui

import (
	"os"

	"golang.org/x/term"
)

// Terminal reports whether f is a terminal and, if so, its width in
// columns. Width is 0 when f is not a terminal or its size is unknown,
// which turns off progress-line truncation.
func Terminal(f *os.File) (tty bool, width int) {
	fd := int(f.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return false, 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w < 0 {
		w = 0
	}
	return true, w
}
