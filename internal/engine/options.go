package engine

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/bamsammich/cpx/internal/backup"
	"github.com/bamsammich/cpx/internal/filter"
	"github.com/bamsammich/cpx/internal/preserve"
)

// SymlinkMode controls -s: instead of copying file data, create symlinks
// pointing back at the sources.
type SymlinkMode int

const (
	SymlinkNone SymlinkMode = iota
	SymlinkAuto             // relative for relative source arguments, absolute otherwise
	SymlinkAbsolute
	SymlinkRelative
)

var symlinkModeNames = [...]string{
	SymlinkNone:     "none",
	SymlinkAuto:     "auto",
	SymlinkAbsolute: "absolute",
	SymlinkRelative: "relative",
}

func (m SymlinkMode) String() string {
	if int(m) < len(symlinkModeNames) {
		return symlinkModeNames[m]
	}
	return "unknown"
}

// ParseSymlinkMode parses a -s mode name. An empty string means auto.
func ParseSymlinkMode(s string) (SymlinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SymlinkAuto, nil
	case "absolute":
		return SymlinkAbsolute, nil
	case "relative":
		return SymlinkRelative, nil
	case "none":
		return SymlinkNone, nil
	default:
		return SymlinkNone, fmt.Errorf("invalid symlink mode %q (valid: auto, absolute, relative)", s)
	}
}

// FollowMode is the symlink dereference policy.
type FollowMode int

const (
	FollowDefault     FollowMode = iota // follow command-line arguments only
	FollowNever                         // -P: copy every symlink as a symlink
	FollowAlways                        // -L: follow every symlink
	FollowCommandLine                   // -H: follow command-line arguments only
)

var followModeNames = [...]string{
	FollowDefault:     "default",
	FollowNever:       "never",
	FollowAlways:      "always",
	FollowCommandLine: "command-line",
}

func (m FollowMode) String() string {
	if int(m) < len(followModeNames) {
		return followModeNames[m]
	}
	return "unknown"
}

// ParseFollowMode parses a dereference policy name as used in the config
// file.
func ParseFollowMode(s string) (FollowMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return FollowDefault, nil
	case "never":
		return FollowNever, nil
	case "always":
		return FollowAlways, nil
	case "command-line", "commandline":
		return FollowCommandLine, nil
	default:
		return FollowDefault, fmt.Errorf("invalid follow mode %q (valid: never, always, command-line)", s)
	}
}

// ResolveFollow turns the -P/-L/-H flags into a FollowMode. At most one may
// be set.
func ResolveFollow(never, always, commandLine bool) (FollowMode, error) {
	var set []string
	mode := FollowDefault
	if never {
		set = append(set, "-P")
		mode = FollowNever
	}
	if always {
		set = append(set, "-L")
		mode = FollowAlways
	}
	if commandLine {
		set = append(set, "-H")
		mode = FollowCommandLine
	}
	if len(set) > 1 {
		return FollowDefault, &ValidationError{Conflicts: []string{
			"multiple dereference flags (" + strings.Join(set, ", ") + ")",
		}}
	}
	return mode, nil
}

// ReflinkMode controls copy-on-write cloning.
type ReflinkMode int

const (
	ReflinkUnset  ReflinkMode = iota // not requested
	ReflinkAuto                      // clone when possible, fall back silently
	ReflinkAlways                    // clone or fail
	ReflinkNever                     // never clone
)

var reflinkModeNames = [...]string{
	ReflinkUnset:  "",
	ReflinkAuto:   "auto",
	ReflinkAlways: "always",
	ReflinkNever:  "never",
}

func (m ReflinkMode) String() string {
	if int(m) < len(reflinkModeNames) {
		return reflinkModeNames[m]
	}
	return "unknown"
}

// Requested reports whether cloning should be attempted.
func (m ReflinkMode) Requested() bool {
	return m == ReflinkAuto || m == ReflinkAlways
}

// ParseReflinkMode parses a --reflink value. An empty string means auto,
// matching a bare --reflink.
func ParseReflinkMode(s string) (ReflinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ReflinkAuto, nil
	case "always":
		return ReflinkAlways, nil
	case "never":
		return ReflinkNever, nil
	default:
		return ReflinkUnset, fmt.Errorf("invalid reflink mode %q (valid: auto, always, never)", s)
	}
}

// Options is the resolved, read-only configuration for one run. Only the
// cancel token is mutated while a copy is in flight.
type Options struct {
	Recursive         bool
	Parallel          int // concurrent file transfers
	ScanWorkers       int // concurrent directory reads and resume checks
	Resume            bool
	Force             bool
	Interactive       bool
	Parents           bool
	Preserve          preserve.Attrs
	AttributesOnly    bool
	RemoveDestination bool
	Symlink           SymlinkMode
	Hardlink          bool
	Follow            FollowMode
	Backup            backup.Mode
	Reflink           ReflinkMode
	Exclude           *filter.Rules
	BWLimit           int64 // bytes per second, 0 for unlimited
	Verify            bool
	Cancel            *CancelToken
	Prompter          Prompter
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Parallel:    4,
		ScanWorkers: min(runtime.NumCPU(), 8),
	}
}

// Validate reports conflicting options as a *ValidationError. It must be
// called before planning; nothing on disk has been touched at that point.
func (o *Options) Validate() error {
	var conflicts []string
	conflict := func(cond bool, msg string) {
		if cond {
			conflicts = append(conflicts, msg)
		}
	}

	reflink := o.Reflink.Requested()
	symlink := o.Symlink != SymlinkNone

	conflict(reflink && o.Hardlink, "--reflink cannot be combined with --link")
	conflict(reflink && symlink, "--reflink cannot be combined with --symbolic-link")
	conflict(symlink && o.Hardlink, "--symbolic-link cannot be combined with --link")
	conflict(symlink && o.Resume, "--symbolic-link cannot be combined with --resume")
	conflict(symlink && o.AttributesOnly, "--symbolic-link cannot be combined with --attributes-only")
	conflict(o.Hardlink && o.Resume, "--link cannot be combined with --resume")
	conflict(o.Hardlink && o.AttributesOnly, "--link cannot be combined with --attributes-only")
	conflict(o.Parallel < 0, fmt.Sprintf("parallelism must be positive, got %d", o.Parallel))
	conflict(o.BWLimit < 0, "bandwidth limit must not be negative")

	if len(conflicts) > 0 {
		return &ValidationError{Conflicts: conflicts}
	}
	return nil
}

// workers returns the effective file-transfer concurrency.
func (o *Options) workers() int {
	if o.Interactive {
		return 1
	}
	if o.Parallel <= 0 {
		return 4
	}
	return o.Parallel
}

func (o *Options) scanWorkers() int {
	if o.ScanWorkers <= 0 {
		return min(runtime.NumCPU(), 8)
	}
	return o.ScanWorkers
}
