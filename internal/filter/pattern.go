package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPattern is returned for exclude patterns that cannot be used.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Kind classifies an exclude pattern.
type Kind int

const (
	AbsolutePath Kind = iota // rooted filesystem path
	Basename                 // plain name matched against any path component
	Glob                     // glob matched against the root-relative path
)

func (k Kind) String() string {
	switch k {
	case AbsolutePath:
		return "absolute"
	case Basename:
		return "basename"
	case Glob:
		return "glob"
	default:
		return "unknown"
	}
}

// Pattern is a single classified exclude pattern.
type Pattern struct {
	Value string
	Kind  Kind
}

// Classify determines the kind of a raw pattern. Rooted paths are absolute,
// anything with glob metacharacters or a separator is a glob, and the rest
// are basenames.
func Classify(raw string) Pattern {
	p := strings.TrimSpace(raw)
	if filepath.IsAbs(p) {
		return Pattern{Value: p, Kind: AbsolutePath}
	}
	if strings.ContainsAny(p, "*?[]{}") || strings.ContainsAny(p, `/\`) {
		return Pattern{Value: p, Kind: Glob}
	}
	return Pattern{Value: p, Kind: Basename}
}

// ParsePatternList splits comma-separated pattern lists, drops blank
// entries, rejects parent-directory references and classifies the rest.
func ParsePatternList(inputs ...string) ([]Pattern, error) {
	var patterns []Pattern
	for _, input := range inputs {
		for _, raw := range strings.Split(input, ",") {
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}
			if hasParentRef(trimmed) {
				return nil, fmt.Errorf(
					"%w: parent directory references (..) are not allowed in %q",
					ErrInvalidPattern, trimmed,
				)
			}
			patterns = append(patterns, Classify(trimmed))
		}
	}
	return patterns, nil
}

func hasParentRef(p string) bool {
	for _, part := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
