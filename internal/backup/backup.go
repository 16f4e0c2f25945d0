// Package backup computes and creates pre-overwrite backups of destination
// files.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Suffix is appended to simple backups.
const Suffix = "~"

// Mode selects how backups are named.
type Mode int

const (
	None     Mode = iota // no backups
	Simple               // <dest>~
	Numbered             // <dest>.~N~
	Existing             // numbered if numbered backups exist, else simple
)

var modeNames = [...]string{
	None:     "none",
	Simple:   "simple",
	Numbered: "numbered",
	Existing: "existing",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode parses a backup mode name. GNU cp aliases are accepted.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return None, nil
	case "simple", "never":
		return Simple, nil
	case "numbered", "t":
		return Numbered, nil
	case "existing", "nil":
		return Existing, nil
	default:
		return None, fmt.Errorf("invalid backup mode %q (valid: none, simple, numbered, existing)", s)
	}
}

// Path returns the backup path for dst under mode. None returns dst
// unchanged.
func Path(dst string, mode Mode) (string, error) {
	switch mode {
	case None:
		return dst, nil
	case Simple:
		return dst + Suffix, nil
	case Numbered:
		n, err := maxNumber(dst)
		if err != nil {
			return "", err
		}
		return numbered(dst, n+1), nil
	case Existing:
		n, err := maxNumber(dst)
		if err != nil {
			return "", err
		}
		if n > 0 {
			return numbered(dst, n+1), nil
		}
		return dst + Suffix, nil
	default:
		return "", fmt.Errorf("unknown backup mode %d", mode)
	}
}

// Create renames dst to its backup path and returns that path.
func Create(dst string, mode Mode) (string, error) {
	path, err := Path(dst, mode)
	if err != nil {
		return "", fmt.Errorf("backup path for %s: %w", dst, err)
	}
	if path == dst {
		return "", nil
	}
	if err := os.Rename(dst, path); err != nil {
		return "", fmt.Errorf("backup %s: %w", dst, err)
	}
	return path, nil
}

func numbered(dst string, n int) string {
	return dst + ".~" + strconv.Itoa(n) + "~"
}

// maxNumber scans the siblings of dst for numbered backups and returns the
// highest suffix, or 0 when there are none.
func maxNumber(dst string) (int, error) {
	dir, name := filepath.Split(dst)
	if name == "" {
		return 0, fmt.Errorf("invalid file name %q", dst)
	}
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	prefix := name + ".~"
	maxN := 0
	for _, e := range entries {
		n, ok := parseNumber(e.Name(), prefix)
		if ok && n > maxN {
			maxN = n
		}
	}
	return maxN, nil
}

func parseNumber(entry, prefix string) (int, bool) {
	if !strings.HasPrefix(entry, prefix) || !strings.HasSuffix(entry, Suffix) {
		return 0, false
	}
	digits := entry[len(prefix) : len(entry)-len(Suffix)]
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
