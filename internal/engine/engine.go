package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/stats"
)

// Config describes a copy operation.
type Config struct {
	Sources []string
	Dst     string
	Options Options
	// Events receives progress events. Sends never block; may be nil.
	Events chan<- event.Event
	// Stats is updated while the copy runs. A fresh collector is used when
	// nil.
	Stats *stats.Collector
}

// Result is the outcome of a copy operation.
type Result struct {
	Plan   *CopyPlan
	Stats  stats.Snapshot
	Verify *VerifyResult
	Err    error
}

// Run validates options, plans the copy and executes it, blocking until
// complete. The filesystem is not touched until planning has succeeded.
func Run(ctx context.Context, cfg Config) Result {
	opts := cfg.Options
	if opts.Cancel == nil {
		opts.Cancel = NewCancelToken()
	}
	stop := opts.Cancel.WatchContext(ctx)
	defer stop()

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	if err := opts.Validate(); err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	planCtx, cancelPlan := context.WithCancel(ctx)
	defer cancelPlan()
	go watchToken(planCtx, opts.Cancel, cancelPlan)

	plan, err := BuildPlan(planCtx, cfg.Sources, cfg.Dst, opts)
	if err != nil {
		if opts.Cancel.Cancelled() || errors.Is(err, context.Canceled) {
			return Result{Stats: collector.Snapshot(), Err: &InterruptedError{}}
		}
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	collector.SetTotals(int64(plan.TotalFiles), plan.TotalSize)
	if plan.SkippedFiles > 0 {
		collector.AddFilesSkipped(int64(plan.SkippedFiles))
		collector.AddBytesSkipped(plan.SkippedBytes)
	}
	emitEvent(cfg.Events, event.Event{
		Type:      event.PlanComplete,
		Total:     int64(plan.TotalFiles),
		TotalSize: plan.TotalSize,
		Skipped:   int64(plan.SkippedFiles),
	})
	slog.Debug("plan complete",
		"files", plan.TotalFiles,
		"bytes", plan.TotalSize,
		"dirs", len(plan.Directories),
		"symlinks", plan.TotalSymlinks,
		"hardlinks", plan.TotalHardlinks,
		"skipped", plan.SkippedFiles,
	)

	exec := NewExecutor(opts, collector, cfg.Events)
	if err := exec.Execute(ctx, plan); err != nil {
		return Result{Plan: plan, Stats: collector.Snapshot(), Err: err}
	}

	result := Result{Plan: plan}
	if opts.Verify {
		result.Verify = Verify(ctx, VerifyConfig{
			Files:   exec.Completed(),
			Workers: opts.workers(),
			Events:  cfg.Events,
			Stats:   collector,
		})
		result.Err = result.Verify.Err()
	}
	result.Stats = collector.Snapshot()
	return result
}
