package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/stats"
)

// createTestTree populates root with a standard test tree:
//
//	root.txt          (17 bytes)
//	big.bin           (320KB)
//	sub/mid.txt       (19 bytes)
//	sub/deep/leaf.txt (17 bytes)
//	link.txt          → root.txt (symlink)
func createTestTree(t *testing.T, root string) {
	t.Helper()

	writeFile(t, filepath.Join(root, "root.txt"), "root file content")
	bigData := bytes.Repeat([]byte("ABCDEFGHIJKLMNOP"), 20000)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), bigData, 0o644))
	writeFile(t, filepath.Join(root, "sub", "mid.txt"), "middle file content")
	writeFile(t, filepath.Join(root, "sub", "deep", "leaf.txt"), "leaf file content")
	require.NoError(t, os.Symlink("root.txt", filepath.Join(root, "link.txt")))
}

// verifyTreeCopy checks that dstRoot contains an exact copy of the tree
// created by createTestTree under srcRoot.
func verifyTreeCopy(t *testing.T, srcRoot, dstRoot string) {
	t.Helper()

	for _, rel := range []string{
		"root.txt",
		"big.bin",
		filepath.Join("sub", "mid.txt"),
		filepath.Join("sub", "deep", "leaf.txt"),
	} {
		srcData, err := os.ReadFile(filepath.Join(srcRoot, rel))
		require.NoError(t, err, "read src %s", rel)
		dstData, err := os.ReadFile(filepath.Join(dstRoot, rel))
		require.NoError(t, err, "read dst %s", rel)
		require.Equal(t, srcData, dstData, "content mismatch for %s", rel)
	}

	target, err := os.Readlink(filepath.Join(dstRoot, "link.txt"))
	require.NoError(t, err)
	require.Equal(t, "root.txt", target)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// setMtime sets both timestamps of path.
func setMtime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// testOptions returns defaults suitable for tests: recursive, and a
// prompter that fails the test if it is ever asked.
func testOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.Recursive = true
	opts.Prompter = &fakePrompter{t: t}
	return opts
}

// runCopy runs the engine and returns the result and every emitted event.
func runCopy(t *testing.T, sources []string, dst string, opts Options) (Result, []event.Event) {
	t.Helper()
	events := make(chan event.Event, 4096)
	result := Run(context.Background(), Config{
		Sources: sources,
		Dst:     dst,
		Options: opts,
		Events:  events,
		Stats:   stats.NewCollector(),
	})
	close(events)
	var got []event.Event
	for ev := range events {
		got = append(got, ev)
	}
	return result, got
}

func countEvents(events []event.Event, typ event.Type) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// fakePrompter answers from a fixed script. Without answers, any question
// fails the test.
type fakePrompter struct {
	t       *testing.T
	mu      sync.Mutex
	answers []bool
	asked   []string
}

func (p *fakePrompter) Confirm(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		if p.t != nil {
			p.t.Errorf("unexpected prompt: %s", question)
		}
		return false
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer
}
