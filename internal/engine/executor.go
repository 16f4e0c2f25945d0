package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bamsammich/cpx/internal/backup"
	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/preserve"
	"github.com/bamsammich/cpx/internal/stats"
)

// Executor carries out a CopyPlan.
type Executor struct {
	opts       Options
	stats      *stats.Collector
	events     chan<- event.Event
	cancel     *CancelToken
	prompter   Prompter
	limiter    *rate.Limiter
	inflight   *inflight
	landed     *Tracker // inode group -> destination holding its data
	strategies []strategy

	mu        sync.Mutex
	completed []FileTask
}

// NewExecutor returns an executor for opts. A nil collector or events
// channel is allowed.
func NewExecutor(opts Options, collector *stats.Collector, events chan<- event.Event) *Executor {
	if collector == nil {
		collector = stats.NewCollector()
	}
	if opts.Cancel == nil {
		opts.Cancel = NewCancelToken()
	}
	prompter := opts.Prompter
	if prompter == nil {
		prompter = NewLinePrompter(os.Stdin, os.Stderr)
	}

	e := &Executor{
		opts:     opts,
		stats:    collector,
		events:   events,
		cancel:   opts.Cancel,
		prompter: prompter,
		inflight: newInflight(),
		landed:   NewTracker(),
	}
	if opts.BWLimit > 0 {
		e.limiter = NewBWLimiter(opts.BWLimit)
	}
	e.strategies = e.buildCascade()
	return e
}

// Completed returns the file tasks whose destination was written or linked.
func (e *Executor) Completed() []FileTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.completed)
}

// Execute creates directories, links and symlinks, then transfers files
// with bounded concurrency. Per-task failures are collected and returned
// together; an interruption takes priority over them.
func (e *Executor) Execute(ctx context.Context, plan *CopyPlan) error {
	stop := e.cancel.WatchContext(ctx)
	defer stop()

	for _, t := range plan.resumed {
		e.landed.Claim(t.Group, t.Destination)
	}

	var errs []error
	errs = append(errs, e.createDirectories(plan.Directories)...)
	if !e.interrupted(ctx) {
		errs = append(errs, e.createHardlinks(plan.Hardlinks)...)
	}
	if !e.interrupted(ctx) {
		errs = append(errs, e.createSymlinks(plan.Symlinks)...)
	}
	if !e.interrupted(ctx) {
		errs = append(errs, e.transferFiles(ctx, plan.Files)...)
	}

	if e.interrupted(ctx) {
		if n := e.inflight.cleanup(); n > 0 {
			slog.Debug("removed partial destinations", "count", n)
		}
		completed := int64(len(e.Completed()))
		return &InterruptedError{
			Completed: e.stats.FilesCopied(),
			Remaining: max(int64(plan.TotalFiles)-completed, 0),
		}
	}

	errs = append(errs, e.applyDirectoryAttrs(plan.Directories)...)
	return combineErrors(errs)
}

func (e *Executor) createDirectories(dirs []DirTask) []error {
	var errs []error
	for _, d := range dirs {
		if e.cancel.Cancelled() {
			break
		}
		info, err := os.Lstat(d.Destination)
		if err == nil {
			if !info.IsDir() {
				errs = append(errs, &CopyError{Src: d.Source, Dst: d.Destination, Reason: "create directory",
					Err: fmt.Errorf("%w: not a directory", ErrAlreadyExists)})
			}
			continue
		}
		if e.opts.AttributesOnly {
			continue
		}

		perm := os.FileMode(0o755)
		if d.Source != "" {
			if srcInfo, err := os.Stat(d.Source); err == nil {
				perm = srcInfo.Mode().Perm() | 0o700
			}
		}
		if err := os.MkdirAll(d.Destination, perm); err != nil {
			errs = append(errs, &CopyError{Src: d.Source, Dst: d.Destination, Reason: "create directory", Err: err})
			continue
		}
		e.stats.AddDirsCreated(1)
		e.emit(event.Event{Type: event.DirCreated, Path: d.Destination, Source: d.Source})
	}
	return errs
}

func (e *Executor) createHardlinks(links []HardlinkTask) []error {
	var errs []error
	for _, h := range links {
		if e.cancel.Cancelled() {
			break
		}
		if sameFile(h.Source, h.Destination) {
			continue
		}
		proceed, err := e.clearDestination(h.Destination)
		if err != nil {
			errs = append(errs, &CopyError{Src: h.Source, Dst: h.Destination, Reason: "link", Err: err})
			continue
		}
		if !proceed {
			e.skipped(h.Destination, 0)
			continue
		}
		if err := os.Link(h.Source, h.Destination); err != nil {
			errs = append(errs, &CopyError{Src: h.Source, Dst: h.Destination, Reason: "link", Err: err})
			continue
		}
		e.stats.AddHardlinksCreated(1)
		e.emit(event.Event{Type: event.HardlinkCreated, Path: h.Destination, Source: h.Source})
	}
	return errs
}

func (e *Executor) createSymlinks(links []SymlinkTask) []error {
	var errs []error
	for _, s := range links {
		if e.cancel.Cancelled() {
			break
		}
		target, err := symlinkTarget(s)
		if err != nil {
			errs = append(errs, &CopyError{Src: s.LinkTarget, Dst: s.Destination, Reason: "symlink", Err: err})
			continue
		}
		if existing, err := os.Readlink(s.Destination); err == nil && existing == target {
			continue
		}

		proceed, err := e.clearDestination(s.Destination)
		if err != nil {
			errs = append(errs, &CopyError{Src: s.LinkTarget, Dst: s.Destination, Reason: "symlink", Err: err})
			continue
		}
		if !proceed {
			e.skipped(s.Destination, 0)
			continue
		}
		if err := os.Symlink(target, s.Destination); err != nil {
			errs = append(errs, &CopyError{Src: s.LinkTarget, Dst: s.Destination, Reason: "symlink", Err: err})
			continue
		}
		e.stats.AddSymlinksCreated(1)
		e.emit(event.Event{Type: event.SymlinkCreated, Path: s.Destination, Source: target})
	}
	return errs
}

// symlinkTarget computes the text of the link to create.
func symlinkTarget(s SymlinkTask) (string, error) {
	switch s.Kind {
	case AbsoluteToSource:
		abs, err := filepath.Abs(s.LinkTarget)
		if err != nil {
			return "", err
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		return abs, nil

	case RelativeToSource:
		src, err := filepath.Abs(s.LinkTarget)
		if err != nil {
			return "", err
		}
		if resolved, err := filepath.EvalSymlinks(src); err == nil {
			src = resolved
		}
		dir, err := filepath.Abs(filepath.Dir(s.Destination))
		if err != nil {
			return "", err
		}
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
		return filepath.Rel(dir, src)

	default:
		return s.LinkTarget, nil
	}
}

// clearDestination makes room for a link at path. It reports false when the
// user declined to overwrite.
func (e *Executor) clearDestination(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		return true, nil
	}
	if e.opts.Interactive && !e.confirm(path) {
		return false, nil
	}
	if e.opts.Backup != backup.None && e.backup(path) {
		return true, nil
	}
	if e.opts.Interactive || e.opts.Force || e.opts.RemoveDestination {
		if err := os.Remove(path); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
}

// transferFiles runs every file through the cascade. Group leaders and
// ungrouped files go first; files that link to a leader run once all
// leaders are done, so a leader's outcome is known before anything links
// to it.
func (e *Executor) transferFiles(ctx context.Context, files []FileTask) []error {
	var leaders, followers []FileTask
	for _, f := range files {
		if f.LinkTo != "" {
			followers = append(followers, f)
		} else {
			leaders = append(leaders, f)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	sem := semaphore.NewWeighted(int64(e.opts.workers()))
	run := func(batch []FileTask) {
		var wg sync.WaitGroup
		for _, task := range batch {
			if e.interrupted(ctx) {
				break
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				if err := e.transferFile(ctx, task); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	}

	run(leaders)
	run(followers)
	return errs
}

// transferFile moves one file through the cascade and records the outcome.
func (e *Executor) transferFile(ctx context.Context, task FileTask) error {
	if e.interrupted(ctx) {
		return nil
	}

	srcInfo, err := os.Stat(task.Source)
	if err != nil {
		return e.failed(task, &CopyError{Src: task.Source, Dst: task.Destination, Reason: "stat", Err: err})
	}
	_, dstErr := os.Lstat(task.Destination)
	job := &fileJob{task: task, srcInfo: srcInfo, dstExists: dstErr == nil}

	e.emit(event.Event{Type: event.FileStarted, Path: task.Destination, Source: task.Source, Size: task.Size})

	for _, s := range e.strategies {
		outcome, err := s.attempt(ctx, job)
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				return nil
			}
			return e.failed(task, &CopyError{Src: task.Source, Dst: task.Destination, Reason: s.name, Err: err})
		}
		switch outcome {
		case Skipped:
			e.skipped(task.Destination, task.Size)
			return nil
		case Done:
			return e.finish(job)
		}
	}
	return e.failed(task, &CopyError{Src: task.Source, Dst: task.Destination, Reason: "copy",
		Err: errors.New("no transfer strategy applied")})
}

// finish applies preserved attributes and counts the file as copied.
func (e *Executor) finish(job *fileJob) error {
	task := job.task
	if !job.preserved && e.opts.Preserve.Any() {
		if err := preserve.Apply(task.Source, task.Destination, e.opts.Preserve); err != nil {
			return e.failed(task, &CopyError{Src: task.Source, Dst: task.Destination,
				Reason: "preserve attributes", Err: err})
		}
	}

	if task.Grouped() {
		e.landed.Claim(task.Group, task.Destination)
	}
	e.stats.AddFilesCopied(1)
	e.mu.Lock()
	e.completed = append(e.completed, task)
	e.mu.Unlock()
	e.emit(event.Event{
		Type:   event.FileCompleted,
		Path:   task.Destination,
		Source: task.Source,
		Size:   task.Size,
		Method: job.method,
	})
	return nil
}

func (e *Executor) failed(task FileTask, err error) error {
	e.stats.AddFilesFailed(1)
	e.emit(event.Event{Type: event.FileFailed, Path: task.Destination, Source: task.Source, Error: err})
	slog.Debug("file failed", "src", task.Source, "dst", task.Destination, "error", err)
	return err
}

func (e *Executor) skipped(path string, size int64) {
	e.stats.AddFilesSkipped(1)
	e.stats.AddBytesSkipped(size)
	e.emit(event.Event{Type: event.FileSkipped, Path: path, Size: size})
}

// applyDirectoryAttrs preserves directory metadata deepest first, after
// every file inside has been written.
func (e *Executor) applyDirectoryAttrs(dirs []DirTask) []error {
	if !e.opts.Preserve.Any() {
		return nil
	}
	var errs []error
	for _, d := range slices.Backward(dirs) {
		if d.Source == "" {
			continue
		}
		if _, err := os.Lstat(d.Destination); err != nil {
			continue
		}
		if err := preserve.Apply(d.Source, d.Destination, e.opts.Preserve); err != nil {
			errs = append(errs, &CopyError{Src: d.Source, Dst: d.Destination, Reason: "preserve attributes", Err: err})
		}
	}
	return errs
}

func (e *Executor) confirm(path string) bool {
	return e.prompter.Confirm(fmt.Sprintf("overwrite '%s'?", path))
}

// backup moves path aside and reports whether it is gone. Backup failures
// are logged and the overwrite goes ahead.
func (e *Executor) backup(path string) bool {
	saved, err := backup.Create(path, e.opts.Backup)
	if err != nil {
		slog.Warn("backup failed", "dst", path, "error", err)
		return false
	}
	if saved == "" {
		return false
	}
	e.stats.AddBackupsCreated(1)
	e.emit(event.Event{Type: event.BackupCreated, Path: saved, Source: path})
	return true
}

func (e *Executor) interrupted(ctx context.Context) bool {
	return e.cancel.Cancelled() || ctx.Err() != nil
}

func (e *Executor) emit(ev event.Event) {
	emitEvent(e.events, ev)
}
