package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bamsammich/cpx/internal/backup"
	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/platform"
	"github.com/bamsammich/cpx/internal/preserve"
)

// Outcome is the result of one strategy attempt.
type Outcome int

const (
	NotApplicable Outcome = iota // try the next strategy
	Done                         // the destination is in place
	Skipped                      // the file is deliberately left alone
)

const methodAttributesOnly = "attributes_only"

// strategy is one step of the per-file cascade. The first strategy that
// returns something other than NotApplicable decides the file's fate; an
// error aborts the file.
type strategy struct {
	name    string
	attempt func(ctx context.Context, job *fileJob) (Outcome, error)
}

// fileJob is the mutable state of one file moving through the cascade.
type fileJob struct {
	task      FileTask
	srcInfo   os.FileInfo
	dstExists bool
	method    string
	preserved bool // attributes already applied (or shared via hard link)
}

// buildCascade returns the strategies in priority order. Zero-copy is left
// out on platforms without it; the buffered copy is always last.
func (e *Executor) buildCascade() []strategy {
	cascade := []strategy{
		{"attributes", e.attemptAttributesOnly},
		{"prompt", e.attemptPrompt},
		{"backup", e.attemptBackup},
		{"remove destination", e.attemptRemoveDestination},
		{"link", e.attemptLinkGroup},
		{"reflink", e.attemptReflink},
	}
	if platform.ZeroCopySupported {
		cascade = append(cascade, strategy{"copy_file_range", e.attemptZeroCopy})
	}
	return append(cascade, strategy{"copy", e.attemptBuffered})
}

func (e *Executor) attemptAttributesOnly(_ context.Context, job *fileJob) (Outcome, error) {
	if !e.opts.AttributesOnly {
		return NotApplicable, nil
	}
	if !job.dstExists {
		return Skipped, nil
	}
	if err := preserve.Apply(job.task.Source, job.task.Destination, e.opts.Preserve); err != nil {
		return NotApplicable, err
	}
	job.method = methodAttributesOnly
	job.preserved = true
	return Done, nil
}

func (e *Executor) attemptPrompt(_ context.Context, job *fileJob) (Outcome, error) {
	if !e.opts.Interactive || !job.dstExists {
		return NotApplicable, nil
	}
	if !e.confirm(job.task.Destination) {
		return Skipped, nil
	}
	return NotApplicable, nil
}

func (e *Executor) attemptBackup(_ context.Context, job *fileJob) (Outcome, error) {
	if e.opts.Backup == backup.None || !job.dstExists {
		return NotApplicable, nil
	}
	if e.backup(job.task.Destination) {
		job.dstExists = false
	}
	return NotApplicable, nil
}

func (e *Executor) attemptRemoveDestination(_ context.Context, job *fileJob) (Outcome, error) {
	if !e.opts.RemoveDestination || !job.dstExists {
		return NotApplicable, nil
	}
	if err := os.Remove(job.task.Destination); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NotApplicable, err
	}
	job.dstExists = false
	return NotApplicable, nil
}

// attemptLinkGroup links a non-leading member of an inode group to a
// destination that received the group's data in this run, or was already up
// to date. A leader that failed or was skipped leaves nothing to link to, and
// any failure falls through to a data copy.
func (e *Executor) attemptLinkGroup(_ context.Context, job *fileJob) (Outcome, error) {
	if job.task.LinkTo == "" {
		return NotApplicable, nil
	}
	leader, ok := e.landed.Lookup(job.task.Group)
	if !ok {
		slog.Debug("link group has no copied member, copying data",
			"dst", job.task.Destination, "leader", job.task.LinkTo)
		return NotApplicable, nil
	}
	if _, err := os.Lstat(leader); err != nil {
		slog.Debug("link group leader missing, copying data", "dst", job.task.Destination, "leader", leader)
		return NotApplicable, nil
	}

	dst := job.task.Destination
	if job.dstExists {
		if sameFile(leader, dst) {
			job.method = platform.Hardlink.String()
			job.preserved = true
			return Done, nil
		}
		if err := os.Remove(dst); err != nil {
			return NotApplicable, nil
		}
		job.dstExists = false
	}

	if err := os.Link(leader, dst); err != nil {
		slog.Debug("hard link failed, copying data", "dst", dst, "leader", leader, "error", err)
		return NotApplicable, nil
	}
	e.stats.AddHardlinksCreated(1)
	e.emit(event.Event{Type: event.HardlinkCreated, Path: dst, Source: leader})
	job.method = platform.Hardlink.String()
	job.preserved = true
	return Done, nil
}

// attemptReflink clones the source. Reflink never overwrites, so an existing
// destination fails the file. Other failures are fatal only in "always"
// mode.
func (e *Executor) attemptReflink(_ context.Context, job *fileJob) (Outcome, error) {
	if !e.opts.Reflink.Requested() {
		return NotApplicable, nil
	}
	if job.dstExists {
		return NotApplicable, fmt.Errorf("%w: %s already exists", ErrReflinkFailed, job.task.Destination)
	}

	err := platform.Reflink(job.task.Source, job.task.Destination, job.srcInfo.Mode().Perm())
	if err == nil {
		e.stats.AddBytesCopied(job.task.Size)
		job.method = platform.ReflinkMethod.String()
		return Done, nil
	}
	if e.opts.Reflink == ReflinkAlways {
		return NotApplicable, fmt.Errorf("%w: %w", ErrReflinkFailed, err)
	}
	slog.Debug("reflink unavailable, falling back", "src", job.task.Source, "error", err)
	return NotApplicable, nil
}
