package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/cpx/internal/engine"
	"github.com/bamsammich/cpx/internal/event"
	"github.com/bamsammich/cpx/internal/stats"
	"github.com/bamsammich/cpx/internal/ui"
)

var version = "dev"

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130 // 128 + SIGINT
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "cpx: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f cliFlags

	rootCmd := &cobra.Command{
		Use:   "cpx [flags] <source>... <destination>",
		Short: "Fast, parallel, resumable file copy",
		Args: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				return nil
			}
			if f.targetDir != "" {
				return cobra.MinimumNArgs(1)(cmd, args)
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				fmt.Fprintf(stdout, "cpx %s\n", version)
				return nil
			}
			return copyFiles(cmd, &f, args, stdout, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f.register(rootCmd)

	rootCmd.AddCommand(newConfigCmd(stdout))
	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

//nolint:revive // cognitive-complexity: CLI entry point wires logging to the engine run
func copyFiles(cmd *cobra.Command, f *cliFlags, args []string, stdout, stderr io.Writer) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts, err := f.resolveOptions(cmd, cfg)
	if err != nil {
		return err
	}

	// Configure logging.
	logLevel := slog.LevelInfo
	switch {
	case f.verbose:
		logLevel = slog.LevelDebug
	case f.quiet:
		logLevel = slog.LevelWarn
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if f.logFile != "" {
		lf, lfErr := os.Create(f.logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	if stdinTTY, _ := ui.Terminal(os.Stdin); opts.Interactive && !stdinTTY {
		slog.Warn("--interactive without a terminal on stdin; answers are read from the pipe")
	}
	opts.Prompter = engine.NewLinePrompter(os.Stdin, stderr)
	opts.Cancel = engine.NewCancelToken()

	sources, dst := f.splitArgs(args)

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	// When --log is set, tee events through a logging goroutine
	// that writes structured records before forwarding to the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if f.logFile != "" {
		presenterEvents = teeEvents(events)
	}

	isTTY, width := ui.Terminal(os.Stderr)
	presenter := ui.NewPresenter(ui.Config{
		Writer:     stdout,
		ErrWriter:  stderr,
		Stats:      collector,
		DstRoot:    dst,
		IsTTY:      isTTY,
		Width:      width,
		Quiet:      f.quiet,
		Verbose:    f.verbose,
		NoProgress: f.noProgress,
	})

	slog.Debug("starting copy",
		"sources", sources,
		"dst", dst,
		"parallel", opts.Parallel,
		"recursive", opts.Recursive,
		"preserve", opts.Preserve.String(),
		"reflink", opts.Reflink.String(),
	)

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	result := engine.Run(ctx, engine.Config{
		Sources: sources,
		Dst:     dst,
		Options: opts,
		Events:  events,
		Stats:   collector,
	})
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
	}

	if !f.quiet && result.Plan != nil {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(stderr, summary)
		}
	}

	switch {
	case result.Err == nil:
		return nil
	case errors.Is(result.Err, engine.ErrInterrupted):
		fmt.Fprintf(stderr, "cpx: %v\n", result.Err)
		return &exitError{code: exitInterrupted}
	default:
		slog.Error("copy failed", "error", result.Err)
		return &exitError{code: exitFailure}
	}
}

// teeEvents logs every event as a cpx.event record and forwards it.
func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Method != "" {
				attrs = append(attrs, slog.String("method", ev.Method))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelInfo, "cpx.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
