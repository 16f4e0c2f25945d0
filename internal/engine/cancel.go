package engine

import (
	"context"
	"sync/atomic"
	"time"
)

const tokenPollInterval = 50 * time.Millisecond

// CancelToken is a cooperative cancellation flag shared by every task of a
// run. It is polled at task and chunk boundaries and never interrupts a
// syscall in progress. A nil token is never cancelled.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the flag. Safe to call from a signal handler goroutine.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.flag.Store(true)
	}
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}

// WatchContext cancels the token when ctx is done. The returned function
// detaches the watcher.
func (t *CancelToken) WatchContext(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, t.Cancel)
}

// watchToken calls cancel once t is cancelled, until ctx is done. It lets
// context-driven code such as the planner observe the token.
func watchToken(ctx context.Context, t *CancelToken, cancel context.CancelFunc) {
	ticker := time.NewTicker(tokenPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.Cancelled() {
				cancel()
				return
			}
		}
	}
}
