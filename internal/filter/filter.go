package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rules is an immutable set of compiled exclude rules. A nil *Rules
// excludes nothing.
type Rules struct {
	absolute  []string // canonical paths, longest first
	basenames map[string]struct{}
	globs     []string
}

// Build compiles patterns into Rules. Absolute paths are canonicalized
// when they exist, and every glob is validated up front.
func Build(patterns []Pattern) (*Rules, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	r := &Rules{basenames: make(map[string]struct{})}
	for _, p := range patterns {
		if hasParentRef(p.Value) {
			return nil, fmt.Errorf(
				"%w: parent directory references (..) are not allowed in %q",
				ErrInvalidPattern, p.Value,
			)
		}
		switch p.Kind {
		case AbsolutePath:
			r.absolute = append(r.absolute, canonical(p.Value))
		case Basename:
			r.basenames[p.Value] = struct{}{}
		case Glob:
			g := filepath.ToSlash(p.Value)
			if !doublestar.ValidatePattern(g) {
				return nil, fmt.Errorf("%w: invalid glob %q", ErrInvalidPattern, p.Value)
			}
			// Separator-free globs match at any depth.
			if !strings.Contains(g, "/") {
				g = "**/" + g
			}
			r.globs = append(r.globs, g)
		}
	}

	sort.SliceStable(r.absolute, func(i, j int) bool {
		return len(r.absolute[i]) > len(r.absolute[j])
	})
	return r, nil
}

// BuildFromStrings parses comma-separated pattern lists and compiles them.
func BuildFromStrings(inputs ...string) (*Rules, error) {
	patterns, err := ParsePatternList(inputs...)
	if err != nil {
		return nil, err
	}
	return Build(patterns)
}

// Empty reports whether the rules exclude nothing.
func (r *Rules) Empty() bool {
	return r == nil || (len(r.absolute) == 0 && len(r.basenames) == 0 && len(r.globs) == 0)
}

// ShouldExclude reports whether path, found while walking sourceRoot, is
// excluded. A path is excluded when its basename or any component between
// sourceRoot and path is an excluded basename, when it equals or descends
// from an excluded absolute path, or when its root-relative form or any of
// its ancestor directories matches a glob (directories are also tried with a
// trailing slash).
func (r *Rules) ShouldExclude(path, sourceRoot string, isDir bool) bool {
	if r.Empty() {
		return false
	}

	if _, ok := r.basenames[filepath.Base(path)]; ok {
		return true
	}

	rel := relativeTo(path, sourceRoot)
	if len(r.basenames) > 0 {
		for _, part := range strings.Split(rel, "/") {
			if _, ok := r.basenames[part]; ok {
				return true
			}
		}
	}

	if len(r.absolute) > 0 {
		c := canonical(path)
		for _, excluded := range r.absolute {
			if c == excluded || isDescendant(c, excluded) {
				return true
			}
		}
	}

	for _, g := range r.globs {
		if match(g, rel) || (isDir && match(g, rel+"/")) {
			return true
		}
	}
	if len(r.globs) > 0 {
		// Anything under a glob-excluded directory is excluded too.
		for i := range len(rel) {
			if rel[i] != '/' || i == 0 {
				continue
			}
			dir := rel[:i]
			for _, g := range r.globs {
				if match(g, dir) || match(g, dir+"/") {
					return true
				}
			}
		}
	}
	return false
}

func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// relativeTo returns path relative to root with forward slashes. Paths
// outside root are returned as-is.
func relativeTo(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func isDescendant(path, ancestor string) bool {
	if ancestor == string(filepath.Separator) {
		return path != ancestor && strings.HasPrefix(path, ancestor)
	}
	return strings.HasPrefix(path, ancestor+string(filepath.Separator))
}

// canonical resolves symlinks and cleans p. Paths that cannot be resolved
// (usually because they do not exist) are only cleaned.
func canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if _, err := os.Lstat(abs); err != nil {
		// Resolve the deepest existing parent so /tmp-style symlinked roots
		// still compare equal to walked paths.
		dir, base := filepath.Split(abs)
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, base)
		}
	}
	return abs
}
