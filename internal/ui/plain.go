package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/cpx/internal/stats"
)

const (
	ansiClearLine = "\r\033[K"
	barWidth      = 20
	maxPathWidth  = 60
	minPathWidth  = 12
)

// plainPresenter prints one line per finished entry in verbose mode, and a
// progress line to errW: redrawn in place on a TTY, appended every few
// seconds otherwise.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    *stats.Collector
	dstRoot  string
	verbose  bool
	tty      bool
	width    int
	progress bool
	interval time.Duration

	drawn   bool // a TTY progress line is on screen
	current string
}

func (p *plainPresenter) Run(events <-chan Event) error {
	interval := p.interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearProgress()
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			if p.progress && p.stats != nil {
				p.stats.Tick()
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := StripRoot(p.dstRoot, ev.Path)
	switch ev.Type {
	case FileStarted:
		p.current = path
	case FileCompleted:
		p.line("%s  %s  %s", path, FormatBytes(ev.Size), ev.Method)
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		p.line("%s  %s  %s", path, FormatBytes(ev.Size), errMsg)
	case FileSkipped:
		p.line("%s  skipped", path)
	case DirCreated:
		p.line("%s/", path)
	case SymlinkCreated:
		p.line("%s -> %s", path, ev.Source)
	case HardlinkCreated:
		p.line("%s => %s", path, ev.Source)
	case BackupCreated:
		p.line("backup: %s -> %s", StripRoot(p.dstRoot, ev.Source), path)
	case VerifyStarted:
		p.line("verifying...")
	case VerifyFailed:
		p.clearProgress()
		fmt.Fprintf(p.w, "MISMATCH: %s\n", path)
	case PlanComplete:
		if ev.Skipped > 0 {
			p.clearProgress()
			fmt.Fprintf(p.errW, "Skipping %d files that already exist\n", ev.Skipped)
		}
	case FileProgress, VerifyOK:
		// Counters already reflect these.
	}
}

// line prints a verbose-only feed line.
func (p *plainPresenter) line(format string, args ...any) {
	if !p.verbose {
		return
	}
	p.clearProgress()
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	var msg string
	if snap.BytesTotal > 0 {
		pct := float64(snap.BytesCopied) / float64(snap.BytesTotal)
		msg = fmt.Sprintf("progress: %.0f%% %s/%s %s/%s files %s eta %s",
			pct*100,
			FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
			FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
			FormatRate(p.stats.RollingSpeed(10)),
			FormatETA(p.stats.ETA()),
		)
		if p.tty {
			msg = ProgressBar(pct, barWidth) + " " + msg
		}
	} else {
		msg = fmt.Sprintf("progress: %s copied %s files",
			FormatBytes(snap.BytesCopied),
			FormatCount(snap.FilesCopied),
		)
	}

	if !p.tty {
		fmt.Fprintln(p.errW, msg)
		return
	}
	if p.current != "" {
		avail := maxPathWidth
		if p.width > 0 {
			avail = min(avail, p.width-len(msg)-2)
		}
		if avail >= minPathWidth {
			msg += "  " + truncPath(p.current, avail)
		}
	}
	fmt.Fprint(p.errW, ansiClearLine+msg)
	p.drawn = true
}

func (p *plainPresenter) clearProgress() {
	if p.drawn {
		fmt.Fprint(p.errW, ansiClearLine)
		p.drawn = false
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
