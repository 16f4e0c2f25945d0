// Package stats holds the atomic progress counters shared between the copy
// executor and whatever renders progress.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks copy statistics using lock-free atomic counters.
type Collector struct {
	filesCopied       atomic.Int64
	filesFailed       atomic.Int64
	filesSkipped      atomic.Int64
	bytesCopied       atomic.Int64
	bytesSkipped      atomic.Int64
	dirsCreated       atomic.Int64
	symlinksCreated   atomic.Int64
	hardlinksCreated  atomic.Int64
	backupsCreated    atomic.Int64
	bytesTotal        atomic.Int64
	filesTotal        atomic.Int64
	filesVerified     atomic.Int64
	filesVerifyFailed atomic.Int64
	startTime         time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu          sync.Mutex
	throughput  [ringSize]int64 // bytes delta per second
	filesPerSec [ringSize]int64 // files delta per second
	ringIdx     int
	ringCount   int // samples written, capped at ringSize
	lastBytes   int64
	lastFiles   int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotals records plan totals (called once when planning completes).
func (c *Collector) SetTotals(files, bytes int64) {
	c.filesTotal.Store(files)
	c.bytesTotal.Store(bytes)
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesCopied       int64
	FilesFailed       int64
	FilesSkipped      int64
	BytesCopied       int64
	BytesSkipped      int64
	DirsCreated       int64
	SymlinksCreated   int64
	HardlinksCreated  int64
	BackupsCreated    int64
	BytesTotal        int64
	FilesTotal        int64
	FilesVerified     int64
	FilesVerifyFailed int64
	Elapsed           time.Duration
}

func (c *Collector) AddFilesCopied(n int64)       { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)       { c.filesFailed.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)      { c.filesSkipped.Add(n) }
func (c *Collector) AddBytesCopied(n int64)       { c.bytesCopied.Add(n) }
func (c *Collector) AddBytesSkipped(n int64)      { c.bytesSkipped.Add(n) }
func (c *Collector) AddDirsCreated(n int64)       { c.dirsCreated.Add(n) }
func (c *Collector) AddSymlinksCreated(n int64)   { c.symlinksCreated.Add(n) }
func (c *Collector) AddHardlinksCreated(n int64)  { c.hardlinksCreated.Add(n) }
func (c *Collector) AddBackupsCreated(n int64)    { c.backupsCreated.Add(n) }
func (c *Collector) AddFilesVerified(n int64)     { c.filesVerified.Add(n) }
func (c *Collector) AddFilesVerifyFailed(n int64) { c.filesVerifyFailed.Add(n) }

// FilesCopied returns the completed-file counter.
func (c *Collector) FilesCopied() int64 { return c.filesCopied.Load() }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesCopied:       c.filesCopied.Load(),
		FilesFailed:       c.filesFailed.Load(),
		FilesSkipped:      c.filesSkipped.Load(),
		BytesCopied:       c.bytesCopied.Load(),
		BytesSkipped:      c.bytesSkipped.Load(),
		DirsCreated:       c.dirsCreated.Load(),
		SymlinksCreated:   c.symlinksCreated.Load(),
		HardlinksCreated:  c.hardlinksCreated.Load(),
		BackupsCreated:    c.backupsCreated.Load(),
		BytesTotal:        c.bytesTotal.Load(),
		FilesTotal:        c.filesTotal.Load(),
		FilesVerified:     c.filesVerified.Load(),
		FilesVerifyFailed: c.filesVerifyFailed.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Tick snapshots byte/file deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()
	currentFiles := c.filesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	bytesDelta := currentBytes - c.lastBytes
	filesDelta := currentFiles - c.lastFiles
	c.lastBytes = currentBytes
	c.lastFiles = currentFiles

	c.throughput[c.ringIdx] = bytesDelta
	c.filesPerSec[c.ringIdx] = filesDelta
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingFilesPerSec returns average files/sec over the last n seconds.
func (c *Collector) RollingFilesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.filesPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count == 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining time based on rolling speed and remaining bytes.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"copied=%d failed=%d skipped=%d bytes=%d dirs=%d symlinks=%d hardlinks=%d backups=%d",
		s.FilesCopied, s.FilesFailed, s.FilesSkipped, s.BytesCopied,
		s.DirsCreated, s.SymlinksCreated, s.HardlinksCreated, s.BackupsCreated,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
