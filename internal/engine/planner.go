package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

type entryKind int

const (
	entryDir entryKind = iota
	entryFile
	entrySymlink
)

// walkEntry is one filesystem object found while walking the sources.
type walkEntry struct {
	kind   entryKind
	src    string
	dst    string
	arg    string // command-line argument the entry was reached from
	target string // link text, symlinks only
	size   int64
	group  DevIno
}

// planner walks sources in parallel, collecting entries. The plan itself is
// assembled afterwards in one sorted pass so it does not depend on
// goroutine scheduling.
type planner struct {
	opts *Options

	mu      sync.Mutex
	entries []walkEntry
	errs    []error
}

// BuildPlan resolves sources against dst and walks them into a CopyPlan.
// It reads the filesystem but never modifies it.
func BuildPlan(ctx context.Context, sources []string, dst string, opts Options) (*CopyPlan, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source given", ErrInvalidSource)
	}
	if dst == "" {
		return nil, fmt.Errorf("%w: empty destination", ErrInvalidDestination)
	}

	dstInfo, dstErr := os.Stat(dst)
	dstExists := dstErr == nil
	dstIsDir := dstExists && dstInfo.IsDir()

	if len(sources) > 1 && !dstIsDir {
		return nil, fmt.Errorf("%w: target %s is not a directory", ErrInvalidDestination, dst)
	}
	if opts.Parents && !dstIsDir {
		return nil, fmt.Errorf("%w: with --parents, %s must be an existing directory", ErrInvalidDestination, dst)
	}

	p := &planner{opts: &opts}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.addSource(ctx, src, dst, dstExists, dstIsDir); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.errs) > 0 {
		return nil, combineErrors(p.errs)
	}
	return p.build(ctx)
}

func (p *planner) addSource(ctx context.Context, src, dst string, dstExists, dstIsDir bool) error {
	var (
		info os.FileInfo
		err  error
	)
	// Command-line arguments are followed unless -P was given.
	if p.opts.Follow == FollowNever {
		info, err = os.Lstat(src)
	} else {
		info, err = os.Stat(src)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	isDir := info.IsDir()
	if isDir && !p.opts.Recursive {
		return fmt.Errorf("%w: %s is a directory (use -r to copy recursively)", ErrInvalidSource, src)
	}

	target, err := resolveTarget(src, dst, isDir, dstExists, dstIsDir, p.opts.Parents)
	if err != nil {
		return err
	}
	if sameFile(src, target) {
		return fmt.Errorf("%w: %s and %s are the same file", ErrInvalidDestination, src, target)
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if p.opts.Exclude.ShouldExclude(absSrc, filepath.Dir(absSrc), isDir) {
		slog.Debug("source excluded", "src", src)
		return nil
	}

	if p.opts.Parents {
		p.addParents(src, target)
	}

	switch mode := info.Mode(); {
	case isDir:
		p.record(walkEntry{kind: entryDir, src: src, dst: target, arg: src})
		var ancestors []DevIno
		if id, _, ok := inodeOf(info); ok {
			ancestors = append(ancestors, id)
		}
		p.walk(ctx, src, target, ancestors)
	case mode&os.ModeSymlink != 0:
		link, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("%w: readlink %s: %w", ErrInvalidSource, src, err)
		}
		p.record(walkEntry{kind: entrySymlink, src: src, dst: target, arg: src, target: link})
	case mode.IsRegular():
		p.record(p.fileEntry(src, target, src, info))
	default:
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidSource, src)
	}
	return nil
}

// resolveTarget computes where a command-line source lands. Directories
// always land under dst by their base name; files land at dst itself unless
// dst is a directory.
func resolveTarget(src, dst string, isDir, dstExists, dstIsDir, parents bool) (string, error) {
	if parents {
		rel := filepath.Clean(src)
		if filepath.IsAbs(rel) {
			rel = strings.TrimPrefix(rel, filepath.VolumeName(rel))
			rel = strings.TrimLeft(rel, string(filepath.Separator))
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: --parents cannot be used with %s", ErrInvalidSource, src)
		}
		return filepath.Join(dst, rel), nil
	}

	if isDir {
		if dstExists && !dstIsDir {
			return "", fmt.Errorf("%w: cannot overwrite non-directory %s with directory %s",
				ErrInvalidDestination, dst, src)
		}
		abs, err := filepath.Abs(src)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidSource, err)
		}
		return filepath.Join(dst, filepath.Base(abs)), nil
	}

	if dstIsDir {
		return filepath.Join(dst, filepath.Base(src)), nil
	}
	return dst, nil
}

// addParents records the intermediate directories --parents recreates.
func (p *planner) addParents(src, target string) {
	srcDir := filepath.Dir(filepath.Clean(src))
	dstDir := filepath.Dir(target)
	for srcDir != "." && srcDir != string(filepath.Separator) && srcDir != filepath.Dir(srcDir) {
		p.record(walkEntry{kind: entryDir, src: srcDir, dst: dstDir, arg: src})
		srcDir = filepath.Dir(srcDir)
		dstDir = filepath.Dir(dstDir)
	}
}

// walk descends into dir using up to ScanWorkers goroutines. When every
// worker is busy the subdirectory is walked inline, so the walk can never
// block on its own queue.
func (p *planner) walk(ctx context.Context, root, dstRoot string, ancestors []DevIno) {
	var g errgroup.Group
	g.SetLimit(p.opts.scanWorkers())

	var visit func(dir, dstDir string, ancestors []DevIno)
	visit = func(dir, dstDir string, ancestors []DevIno) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			p.fail(fmt.Errorf("readdir %s: %w", dir, err))
			return
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			src := filepath.Join(dir, entry.Name())
			dst := filepath.Join(dstDir, entry.Name())

			id, descend := p.visitEntry(root, src, dst, ancestors)
			if !descend {
				continue
			}
			chain := append(slices.Clip(ancestors), id)
			if !g.TryGo(func() error {
				visit(src, dst, chain)
				return nil
			}) {
				visit(src, dst, chain)
			}
		}
	}

	visit(root, dstRoot, ancestors)
	_ = g.Wait()
}

// visitEntry records one directory entry and reports whether it is a
// directory to descend into.
func (p *planner) visitEntry(root, src, dst string, ancestors []DevIno) (DevIno, bool) {
	info, err := os.Lstat(src)
	if err != nil {
		p.fail(fmt.Errorf("lstat %s: %w", src, err))
		return DevIno{}, false
	}

	if info.Mode()&os.ModeSymlink != 0 && p.opts.Follow == FollowAlways {
		// Broken links are copied as links.
		if resolved, err := os.Stat(src); err == nil {
			info = resolved
		}
	}

	isDir := info.IsDir()
	if p.opts.Exclude.ShouldExclude(src, root, isDir) {
		slog.Debug("excluded", "src", src)
		return DevIno{}, false
	}

	switch mode := info.Mode(); {
	case isDir:
		id, _, _ := inodeOf(info)
		if id != (DevIno{}) && slices.Contains(ancestors, id) {
			slog.Warn("skipping directory loop", "src", src)
			return DevIno{}, false
		}
		p.record(walkEntry{kind: entryDir, src: src, dst: dst, arg: root})
		return id, true

	case mode&os.ModeSymlink != 0:
		link, err := os.Readlink(src)
		if err != nil {
			p.fail(fmt.Errorf("readlink %s: %w", src, err))
			return DevIno{}, false
		}
		p.record(walkEntry{kind: entrySymlink, src: src, dst: dst, arg: root, target: link})

	case mode.IsRegular():
		p.record(p.fileEntry(src, dst, root, info))

	default:
		slog.Debug("skipping special file", "src", src, "mode", mode.String())
	}
	return DevIno{}, false
}

func (p *planner) fileEntry(src, dst, arg string, info os.FileInfo) walkEntry {
	e := walkEntry{kind: entryFile, src: src, dst: dst, arg: arg, size: info.Size()}
	if p.opts.Preserve.Links {
		if id, nlink, ok := inodeOf(info); ok && nlink > 1 {
			e.group = id
		}
	}
	return e
}

func (p *planner) record(e walkEntry) {
	p.mu.Lock()
	p.entries = append(p.entries, e)
	p.mu.Unlock()
}

func (p *planner) fail(err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// build turns the collected entries into a plan. Entries are processed in
// source-path order, so the first path of each inode group becomes the
// group's canonical destination.
func (p *planner) build(ctx context.Context) (*CopyPlan, error) {
	slices.SortFunc(p.entries, func(a, b walkEntry) int {
		return cmp.Or(cmp.Compare(a.src, b.src), cmp.Compare(a.dst, b.dst))
	})

	plan := &CopyPlan{}
	tracker := NewTracker()
	dirs := make(map[string]struct{})
	var candidates []FileTask

	for _, e := range p.entries {
		switch e.kind {
		case entryDir:
			if _, dup := dirs[e.dst]; dup {
				continue
			}
			dirs[e.dst] = struct{}{}
			plan.addDir(DirTask{Source: e.src, Destination: e.dst})

		case entrySymlink:
			plan.addSymlink(SymlinkTask{LinkTarget: e.target, Destination: e.dst, Kind: PreserveExact})

		case entryFile:
			switch {
			case p.opts.Symlink != SymlinkNone:
				plan.addSymlink(SymlinkTask{LinkTarget: e.src, Destination: e.dst, Kind: p.symlinkKind(e.arg)})
			case p.opts.Hardlink:
				plan.addHardlink(HardlinkTask{Source: e.src, Destination: e.dst})
			default:
				t := FileTask{Source: e.src, Destination: e.dst, Size: e.size, Group: e.group}
				if t.Grouped() {
					if canonical, first := tracker.Claim(t.Group, t.Destination); !first {
						t.LinkTo = canonical
					}
				}
				candidates = append(candidates, t)
			}
		}
	}

	skip, err := p.resumeChecks(ctx, candidates)
	if err != nil {
		return nil, err
	}
	for i, t := range candidates {
		if skip[i] {
			plan.markSkipped(t)
			continue
		}
		plan.addFile(t)
	}

	plan.sort()
	return plan, nil
}

func (p *planner) symlinkKind(arg string) SymlinkKind {
	switch p.opts.Symlink {
	case SymlinkRelative:
		return RelativeToSource
	case SymlinkAbsolute:
		return AbsoluteToSource
	default:
		if filepath.IsAbs(arg) {
			return AbsoluteToSource
		}
		return RelativeToSource
	}
}

// resumeChecks runs the resume oracle over files with bounded fan-out.
// Files whose check fails are copied again rather than failing the plan.
func (p *planner) resumeChecks(ctx context.Context, files []FileTask) ([]bool, error) {
	skip := make([]bool, len(files))
	if !p.opts.Resume || len(files) == 0 {
		return skip, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.scanWorkers())
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := ShouldSkip(f.Source, f.Destination)
			if err != nil {
				slog.Debug("resume check failed", "src", f.Source, "dst", f.Destination, "error", err)
				return nil
			}
			skip[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return skip, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
