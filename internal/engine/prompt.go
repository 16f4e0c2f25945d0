package engine

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter asks the user to confirm an overwrite.
type Prompter interface {
	Confirm(question string) bool
}

// LinePrompter reads y/n answers line by line. Anything other than "y" or
// "yes" is a no, including EOF.
type LinePrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a prompter reading from in and asking on out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Confirm(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "cpx: %s (y/n) ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
