package engine

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBandwidth(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"512", 512},
		{"512B", 512},
		{"64k", 64 << 10},
		{"10M", 10 << 20},
		{"100MB", 100 << 20},
		{"100MiB", 100 << 20},
		{"2G/s", 2 << 30},
		{" 1T ", 1 << 40},
		{"1.5G", 3 << 29},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBandwidth(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBandwidthInvalid(t *testing.T) {
	for _, input := range []string{"", "M", "MB", "fast", "-1M", "10X", "100i", "nan", "9999999T"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseBandwidth(input)
			assert.Error(t, err)
		})
	}
}

func TestNewBWLimiter(t *testing.T) {
	t.Parallel()

	t.Run("burst capped to rate when rate < 1MB", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(1024)
		assert.Equal(t, 1024, lim.Burst())
	})

	t.Run("burst is 1MB when rate >= 1MB", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(10 * 1024 * 1024)
		assert.Equal(t, 1<<20, lim.Burst())
	})
}

func TestRateLimitedReader(t *testing.T) {
	t.Parallel()

	t.Run("reads all data", func(t *testing.T) {
		t.Parallel()
		data := bytes.Repeat([]byte("x"), 4096)
		src := bytes.NewReader(data)
		lim := NewBWLimiter(1 << 20) // 1 MB/s, fast enough to not slow the test
		rl := newRateLimitedReader(context.Background(), src, lim)

		got, err := io.ReadAll(rl)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("reads larger than burst", func(t *testing.T) {
		t.Parallel()
		data := bytes.Repeat([]byte("y"), 8*1024)
		lim := NewBWLimiter(64 * 1024) // burst 64 KiB
		rl := newRateLimitedReader(context.Background(), bytes.NewReader(data), lim)

		buf := make([]byte, 2<<20) // bigger than the burst
		n, err := rl.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
	})

	t.Run("enforces rate limit", func(t *testing.T) {
		t.Parallel()
		// 10 KB at 5 KB/s should take ~1s after the burst.
		dataSize := 10 * 1024
		rateLimit := int64(5 * 1024)
		data := bytes.Repeat([]byte("a"), dataSize)
		src := bytes.NewReader(data)
		lim := NewBWLimiter(rateLimit)

		start := time.Now()
		rl := newRateLimitedReader(context.Background(), src, lim)
		got, err := io.ReadAll(rl)
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Len(t, got, dataSize)
		assert.Greater(t, elapsed, 500*time.Millisecond,
			"rate limiter should slow reads to ~5KB/s")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()
		data := bytes.Repeat([]byte("b"), 1<<20) // 1 MB
		src := bytes.NewReader(data)
		lim := NewBWLimiter(1024) // 1 KB/s, very slow

		ctx, cancel := context.WithCancel(context.Background())
		rl := newRateLimitedReader(ctx, src, lim)

		cancel()
		buf := make([]byte, 4096)
		// First read may succeed (burst), subsequent should fail.
		for range 100 {
			_, err := rl.Read(buf)
			if err != nil {
				return // context error is expected
			}
		}
		t.Fatal("expected context cancellation error")
	})
}
