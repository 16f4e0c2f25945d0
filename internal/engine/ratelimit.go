package engine

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

var bandwidthUnits = map[string]int64{
	"":  1,
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// ParseBandwidth parses a --bwlimit value into bytes per second. Units are
// binary, so 10M, 10MB and 10MiB all mean 10 * 2^20, and a trailing "/s" is
// accepted. Zero disables the limit.
func ParseBandwidth(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "/s")
	v = strings.TrimSuffix(v, "b")
	if len(v) > 1 && v[len(v)-1] == 'i' && isUnit(v[len(v)-2]) {
		v = v[:len(v)-1]
	}
	unit := ""
	if v != "" && isUnit(v[len(v)-1]) {
		unit, v = v[len(v)-1:], v[:len(v)-1]
	}
	if v == "" {
		return 0, fmt.Errorf("invalid bandwidth %q", s)
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || math.IsNaN(n) {
		return 0, fmt.Errorf("invalid bandwidth %q", s)
	}
	bytes := n * float64(bandwidthUnits[unit])
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("bandwidth %q out of range", s)
	}
	return int64(bytes), nil
}

func isUnit(c byte) bool {
	switch c {
	case 'k', 'm', 'g', 't':
		return true
	}
	return false
}

// NewBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec. The burst is set to 1 MB to allow natural read-size chunks
// through without unnecessary blocking on small reads.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedReader wraps an io.Reader and enforces a shared rate limit.
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

// newRateLimitedReader wraps r so that reads are throttled by limiter.
func newRateLimitedReader(
	ctx context.Context,
	r io.Reader,
	limiter *rate.Limiter,
) *rateLimitedReader {
	return &rateLimitedReader{r: r, limiter: limiter, ctx: ctx}
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := rl.r.Read(p)
	// WaitN rejects requests larger than the burst, so large reads wait in
	// burst-sized steps.
	for remaining := n; remaining > 0; {
		step := min(remaining, rl.limiter.Burst())
		if waitErr := rl.limiter.WaitN(rl.ctx, step); waitErr != nil {
			return n, waitErr
		}
		remaining -= step
	}
	return n, err
}
