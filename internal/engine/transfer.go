package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/platform"
)

const (
	// progressUpdates bounds how many progress events one file emits.
	progressUpdates = 128
	minZeroCopyChunk = 4 << 20
)

// bufferTiers maps file-size ceilings to read buffer sizes.
var bufferTiers = []struct {
	below int64
	size  int
}{
	{1 << 20, 64 << 10},
	{8 << 20, 256 << 10},
	{64 << 20, 512 << 10},
	{512 << 20, 1 << 20},
}

const largestBuffer = 2 << 20

var bufPools = func() map[int]*sync.Pool {
	pools := make(map[int]*sync.Pool)
	sizes := []int{largestBuffer}
	for _, t := range bufferTiers {
		sizes = append(sizes, t.size)
	}
	for _, size := range sizes {
		pools[size] = &sync.Pool{New: func() any {
			b := make([]byte, size)
			return &b
		}}
	}
	return pools
}()

// bufferSize picks the read buffer for a file of the given size.
func bufferSize(fileSize int64) int {
	for _, t := range bufferTiers {
		if fileSize < t.below {
			return t.size
		}
	}
	return largestBuffer
}

// progressThreshold is the byte count between progress events.
func progressThreshold(fileSize int64) int64 {
	return max(fileSize/progressUpdates, 1)
}

func zeroCopyChunk(fileSize int64) int64 {
	return max(minZeroCopyChunk, fileSize/progressUpdates)
}

// openDestination creates or truncates path. With force, a destination that
// cannot be opened is unlinked and the open retried once.
func openDestination(path string, perm os.FileMode, force bool) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err == nil || !force {
		return f, err
	}
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return nil, err
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

// attemptZeroCopy moves the data with copy_file_range in chunks sized for
// about progressUpdates events per file. Any syscall failure abandons the
// attempt and leaves the file to the buffered copy.
func (e *Executor) attemptZeroCopy(ctx context.Context, job *fileJob) (Outcome, error) {
	if e.limiter != nil {
		return NotApplicable, nil
	}

	src, err := os.Open(job.task.Source)
	if err != nil {
		return NotApplicable, nil
	}
	defer src.Close()

	path := job.task.Destination
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, job.srcInfo.Mode().Perm())
	if err != nil {
		return NotApplicable, nil
	}
	e.inflight.add(path)
	platform.Preallocate(dst, job.task.Size)

	size := job.task.Size
	chunk := zeroCopyChunk(size)
	var offset int64
	for offset < size {
		if e.interrupted(ctx) {
			e.abort(dst, path, offset)
			return NotApplicable, ErrInterrupted
		}
		n, err := platform.CopyRange(dst, src, offset, min(chunk, size-offset))
		offset += n
		e.stats.AddBytesCopied(n)
		if err != nil {
			slog.Debug("copy_file_range failed, falling back", "src", job.task.Source, "error", err)
			dst.Close()
			e.inflight.done(path)
			e.stats.AddBytesCopied(-offset)
			return NotApplicable, nil
		}
		e.emit(event.Event{Type: event.FileProgress, Path: path, Size: offset})
	}

	if err := dst.Close(); err != nil {
		e.abort(nil, path, offset)
		return NotApplicable, fmt.Errorf("close: %w", err)
	}
	e.inflight.done(path)
	job.method = platform.CopyFileRange.String()
	return Done, nil
}

// attemptBuffered is the terminal strategy: a plain read/write loop with a
// size-tiered buffer. It polls the cancel token every iteration.
func (e *Executor) attemptBuffered(ctx context.Context, job *fileJob) (Outcome, error) {
	src, err := os.Open(job.task.Source)
	if err != nil {
		return NotApplicable, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	path := job.task.Destination
	dst, err := openDestination(path, job.srcInfo.Mode().Perm(), e.opts.Force)
	if err != nil {
		return NotApplicable, fmt.Errorf("create destination: %w", err)
	}
	e.inflight.add(path)
	platform.Preallocate(dst, job.task.Size)

	size := bufferSize(job.task.Size)
	bufp := bufPools[size].Get().(*[]byte)
	defer bufPools[size].Put(bufp)
	buf := *bufp

	var r io.Reader = src
	if e.limiter != nil {
		r = newRateLimitedReader(ctx, src, e.limiter)
	}

	threshold := progressThreshold(job.task.Size)
	var copied, pending int64
	for {
		if e.interrupted(ctx) {
			e.abort(dst, path, copied)
			return NotApplicable, ErrInterrupted
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				e.abort(dst, path, copied)
				return NotApplicable, fmt.Errorf("write: %w", werr)
			}
			copied += int64(n)
			pending += int64(n)
			e.stats.AddBytesCopied(int64(n))
			if pending >= threshold {
				pending = 0
				e.emit(event.Event{Type: event.FileProgress, Path: path, Size: copied})
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			e.abort(dst, path, copied)
			if e.interrupted(ctx) {
				return NotApplicable, ErrInterrupted
			}
			return NotApplicable, fmt.Errorf("read: %w", rerr)
		}
	}

	if err := dst.Close(); err != nil {
		e.abort(nil, path, copied)
		return NotApplicable, fmt.Errorf("close: %w", err)
	}
	e.inflight.done(path)
	job.method = platform.ReadWrite.String()
	return Done, nil
}

// abort closes and deletes a partial destination and takes its bytes back
// out of the progress counter.
func (e *Executor) abort(f *os.File, path string, written int64) {
	if f != nil {
		f.Close()
	}
	os.Remove(path)
	e.inflight.done(path)
	e.stats.AddBytesCopied(-written)
}
