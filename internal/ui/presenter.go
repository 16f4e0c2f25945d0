package ui

import (
	"io"
	"time"

	"github.com/bamsammich/cpx/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	ErrWriter  io.Writer
	Stats      *stats.Collector
	DstRoot    string
	IsTTY      bool
	Width      int // terminal columns; 0 when unknown
	Quiet      bool
	Verbose    bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // quiet and plain presenters share one interface
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{stats: cfg.Stats}
	}
	interval := 5 * time.Second
	if cfg.IsTTY {
		interval = 250 * time.Millisecond
	}
	return &plainPresenter{
		w:        cfg.Writer,
		errW:     cfg.ErrWriter,
		stats:    cfg.Stats,
		dstRoot:  cfg.DstRoot,
		verbose:  cfg.Verbose,
		tty:      cfg.IsTTY,
		width:    cfg.Width,
		progress: !cfg.NoProgress,
		interval: interval,
	}
}
