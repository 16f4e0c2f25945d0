package engine

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"
)

// DevIno uniquely identifies an inode for hard-link detection. The zero
// value means "no group".
type DevIno struct {
	Dev uint64
	Ino uint64
}

// FileTask is one regular file to move through the transfer cascade.
type FileTask struct {
	Source      string
	Destination string
	Size        int64
	// Group is set when the source has other hard links and link topology
	// is being preserved.
	Group DevIno
	// LinkTo is the destination already assigned to this file's inode
	// group. Empty for group leaders and ungrouped files.
	LinkTo string
}

// Grouped reports whether the file belongs to an inode group.
func (f FileTask) Grouped() bool { return f.Group != DevIno{} }

// DirTask is a directory to create. Source is empty for directories that
// only exist to hold a destination.
type DirTask struct {
	Source      string
	Destination string
}

// SymlinkKind says how a symlink's target is derived.
type SymlinkKind int

const (
	PreserveExact    SymlinkKind = iota // copy the source link's target verbatim
	RelativeToSource                    // relative path from the link to the source file
	AbsoluteToSource                    // canonical absolute path of the source file
)

func (k SymlinkKind) String() string {
	switch k {
	case PreserveExact:
		return "exact"
	case RelativeToSource:
		return "relative"
	case AbsoluteToSource:
		return "absolute"
	default:
		return "unknown"
	}
}

// SymlinkTask is a symlink to create. For PreserveExact, LinkTarget is the
// original link text; otherwise it is the source file the link points at.
type SymlinkTask struct {
	LinkTarget  string
	Destination string
	Kind        SymlinkKind
}

// HardlinkTask links Destination to Source (explicit --link mode).
type HardlinkTask struct {
	Source      string
	Destination string
}

// CopyPlan is the full set of operations for a run, computed before any
// mutation. The executor treats it as read-only.
type CopyPlan struct {
	Files       []FileTask
	Directories []DirTask
	Symlinks    []SymlinkTask
	Hardlinks   []HardlinkTask

	TotalSize      int64
	TotalFiles     int
	TotalSymlinks  int
	TotalHardlinks int
	SkippedFiles   int
	SkippedBytes   int64

	// resumed holds grouped files whose destination was already up to date.
	// Their destinations are valid link targets for the rest of the group.
	resumed []FileTask
}

func (p *CopyPlan) addFile(t FileTask) {
	p.Files = append(p.Files, t)
	p.TotalSize += t.Size
	p.TotalFiles++
}

func (p *CopyPlan) addDir(d DirTask) {
	p.Directories = append(p.Directories, d)
}

func (p *CopyPlan) addSymlink(s SymlinkTask) {
	p.Symlinks = append(p.Symlinks, s)
	p.TotalSymlinks++
}

func (p *CopyPlan) addHardlink(h HardlinkTask) {
	p.Hardlinks = append(p.Hardlinks, h)
	p.TotalHardlinks++
}

func (p *CopyPlan) markSkipped(t FileTask) {
	p.SkippedFiles++
	p.SkippedBytes += t.Size
	if t.Grouped() {
		p.resumed = append(p.resumed, t)
	}
}

// sort orders directories parents-first and files largest-first. Ties are
// broken by destination so plans are deterministic.
func (p *CopyPlan) sort() {
	slices.SortStableFunc(p.Directories, func(a, b DirTask) int {
		return cmp.Or(
			cmp.Compare(pathDepth(a.Destination), pathDepth(b.Destination)),
			cmp.Compare(a.Destination, b.Destination),
		)
	})
	slices.SortStableFunc(p.Files, func(a, b FileTask) int {
		return cmp.Or(
			cmp.Compare(b.Size, a.Size),
			cmp.Compare(a.Destination, b.Destination),
		)
	})
	slices.SortStableFunc(p.Symlinks, func(a, b SymlinkTask) int {
		return cmp.Compare(a.Destination, b.Destination)
	})
	slices.SortStableFunc(p.Hardlinks, func(a, b HardlinkTask) int {
		return cmp.Compare(a.Destination, b.Destination)
	})
}

func pathDepth(p string) int {
	return strings.Count(filepath.Clean(p), string(filepath.Separator))
}
