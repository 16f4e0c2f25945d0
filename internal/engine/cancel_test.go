package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancelToken(t *testing.T) {
	tok := NewCancelToken()
	assert.False(t, tok.Cancelled())
	tok.Cancel()
	tok.Cancel()
	assert.True(t, tok.Cancelled())

	var nilTok *CancelToken
	assert.False(t, nilTok.Cancelled())
	nilTok.Cancel()
}

func TestCancelTokenWatchContext(t *testing.T) {
	tok := NewCancelToken()
	ctx, cancel := context.WithCancel(context.Background())
	stop := tok.WatchContext(ctx)
	defer stop()

	cancel()
	assert.Eventually(t, tok.Cancelled, time.Second, time.Millisecond)
}

func TestCancelTokenWatchStopped(t *testing.T) {
	tok := NewCancelToken()
	ctx, cancel := context.WithCancel(context.Background())
	stop := tok.WatchContext(ctx)
	assert.True(t, stop())

	cancel()
	time.Sleep(10 * time.Millisecond)
	assert.False(t, tok.Cancelled())
}

func TestWatchTokenCancelsContext(t *testing.T) {
	tok := NewCancelToken()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchToken(ctx, tok, cancel)

	tok.Cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
