package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/stats"
)

// VerifyConfig controls the post-copy verification pass.
type VerifyConfig struct {
	Files   []FileTask
	Workers int
	Events  chan<- event.Event
	Stats   *stats.Collector
}

// VerifyResult holds the outcome of a verification pass.
type VerifyResult struct {
	Verified int64
	Failed   int64
	Errors   []VerifyError
}

// Err returns the mismatches as a single error, or nil.
func (r *VerifyResult) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i := range r.Errors {
		errs[i] = &r.Errors[i]
	}
	return combineErrors(errs)
}

// VerifyError records a single checksum mismatch or unreadable file.
type VerifyError struct {
	Path    string
	SrcHash string
	DstHash string
	Err     error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verify %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("verify %s: checksum mismatch (source %s, destination %s)", e.Path, e.SrcHash, e.DstHash)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Verify compares BLAKE3 checksums of every transferred file against its
// source, fanning out to cfg.Workers goroutines.
func Verify(ctx context.Context, cfg VerifyConfig) *VerifyResult {
	emitEvent(cfg.Events, event.Event{Type: event.VerifyStarted, Total: int64(len(cfg.Files))})

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu     sync.Mutex
		result VerifyResult
	)
	fail := func(ve VerifyError) {
		mu.Lock()
		result.Failed++
		result.Errors = append(result.Errors, ve)
		mu.Unlock()
		collector.AddFilesVerifyFailed(1)
		emitEvent(cfg.Events, event.Event{Type: event.VerifyFailed, Path: ve.Path, Error: &ve})
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, f := range cfg.Files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			srcHash, err := Checksum(f.Source)
			if err != nil {
				fail(VerifyError{Path: f.Destination, SrcHash: "error", DstHash: "n/a", Err: err})
				return nil
			}
			dstHash, err := Checksum(f.Destination)
			if err != nil {
				fail(VerifyError{Path: f.Destination, SrcHash: srcHash, DstHash: "error", Err: err})
				return nil
			}
			if srcHash != dstHash {
				fail(VerifyError{Path: f.Destination, SrcHash: srcHash, DstHash: dstHash})
				return nil
			}

			mu.Lock()
			result.Verified++
			mu.Unlock()
			collector.AddFilesVerified(1)
			emitEvent(cfg.Events, event.Event{Type: event.VerifyOK, Path: f.Destination})
			return nil
		})
	}
	_ = g.Wait()
	return &result
}
