package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/cpx/internal/backup"
	"github.com/bamsammich/cpx/internal/config"
	"github.com/bamsammich/cpx/internal/engine"
	"github.com/bamsammich/cpx/internal/filter"
	"github.com/bamsammich/cpx/internal/preserve"
)

// cliFlags holds the raw values bound to the root command's flags.
type cliFlags struct {
	recursive         bool
	parallel          int
	resume            bool
	force             bool
	interactive       bool
	parents           bool
	preserve          string
	attributesOnly    bool
	removeDestination bool
	symlink           string
	hardlink          bool
	noDereference     bool
	dereference       bool
	commandLine       bool
	backup            string
	reflink           string
	exclude           []string
	excludeFrom       string
	targetDir         string
	configFile        string
	noConfig          bool
	bwLimit           string
	verify            bool
	verbose           bool
	quiet             bool
	noProgress        bool
	logFile           string
	showVersion       bool
}

func (f *cliFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVar(&f.showVersion, "version", false, "print version and exit")

	fl.BoolVarP(&f.recursive, "recursive", "r", false, "copy directories recursively")
	fl.IntVarP(&f.parallel, "parallel", "j", 4, "number of files copied concurrently")
	fl.BoolVarP(&f.resume, "resume", "c", false, "skip files whose destination is already up to date")
	fl.BoolVarP(&f.force, "force", "f", false, "remove a destination that cannot be opened and retry")
	fl.BoolVarP(&f.interactive, "interactive", "i", false, "prompt before overwriting")
	fl.BoolVar(&f.parents, "parents", false, "append the full source path to the destination directory")
	fl.StringVarP(&f.preserve, "preserve", "p", "",
		"preserve attributes (mode,ownership,timestamps,links,context,xattr,all)")
	fl.BoolVar(&f.attributesOnly, "attributes-only", false, "copy attributes only, never file data")
	fl.BoolVar(&f.removeDestination, "remove-destination", false, "remove each existing destination before copying")
	fl.StringVarP(&f.symlink, "symbolic-link", "s", "", "make symbolic links instead of copying (auto, absolute, relative)")
	fl.BoolVarP(&f.hardlink, "link", "l", false, "hard link files instead of copying")
	fl.BoolVarP(&f.noDereference, "no-dereference", "P", false, "never follow symbolic links in source")
	fl.BoolVarP(&f.dereference, "dereference", "L", false, "always follow symbolic links in source")
	fl.BoolVarP(&f.commandLine, "dereference-args", "H", false, "follow command-line symbolic links in source")
	fl.StringVarP(&f.backup, "backup", "b", "", "back up existing destinations (simple, numbered, existing, none)")
	fl.StringVar(&f.reflink, "reflink", "", "clone file data with copy-on-write (auto, always, never)")
	fl.StringArrayVarP(&f.exclude, "exclude", "e", nil, "exclude paths matching PATTERN; comma lists allowed (repeatable)")
	fl.StringVar(&f.excludeFrom, "exclude-from", "", "read exclude patterns from FILE")
	fl.StringVarP(&f.targetDir, "target-directory", "t", "", "copy all sources into DIRECTORY")
	fl.StringVar(&f.configFile, "config", "", "read configuration from FILE")
	fl.BoolVar(&f.noConfig, "no-config", false, "ignore the configuration file")
	fl.StringVar(&f.bwLimit, "bwlimit", "", "bandwidth limit in bytes per second (e.g. 100M, 1GiB)")
	fl.BoolVar(&f.verify, "verify", false, "verify checksums after copy (BLAKE3)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print every copied entry")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress all output except errors")
	fl.BoolVar(&f.noProgress, "no-progress", false, "disable the progress line")
	fl.StringVar(&f.logFile, "log", "", "write structured JSON log to FILE")

	// Optional values: a bare flag takes its documented default.
	optionalValue(fl, "preserve", "default")
	optionalValue(fl, "symbolic-link", "auto")
	optionalValue(fl, "backup", "existing")
	optionalValue(fl, "reflink", "auto")
}

func optionalValue(fl *pflag.FlagSet, name, def string) {
	if f := fl.Lookup(name); f != nil {
		f.NoOptDefVal = def
	}
}

// loadConfig returns the configuration honoring --config and --no-config.
func (f *cliFlags) loadConfig() (config.Config, error) {
	switch {
	case f.noConfig:
		return config.Config{}, nil
	case f.configFile != "":
		return config.LoadFile(f.configFile)
	default:
		return config.Load()
	}
}

// resolveOptions merges cfg under the command-line flags and parses every
// mode into an engine.Options. Flags not set on the command line fall back
// to the config value, then to the built-in default.
//
//nolint:gocyclo // one branch per flag
func (f *cliFlags) resolveOptions(cmd *cobra.Command, cfg config.Config) (engine.Options, error) {
	changed := cmd.Flags().Changed
	c := cfg.Copy

	fromConfig(changed("recursive"), &f.recursive, c.Recursive)
	fromConfig(changed("parallel"), &f.parallel, c.Parallel)
	fromConfig(changed("resume"), &f.resume, c.Resume)
	fromConfig(changed("force"), &f.force, c.Force)
	fromConfig(changed("interactive"), &f.interactive, c.Interactive)
	fromConfig(changed("parents"), &f.parents, c.Parents)
	fromConfig(changed("attributes-only"), &f.attributesOnly, c.AttributesOnly)
	fromConfig(changed("remove-destination"), &f.removeDestination, c.RemoveDestination)
	fromConfig(changed("link"), &f.hardlink, c.Link)
	fromConfig(changed("verify"), &f.verify, c.Verify)
	fromConfig(changed("bwlimit"), &f.bwLimit, c.BWLimit)
	fromConfig(changed("symbolic-link"), &f.symlink, cfg.Symlink.Mode)
	fromConfig(changed("backup"), &f.backup, cfg.Backup.Mode)
	fromConfig(changed("reflink"), &f.reflink, cfg.Reflink.Mode)

	opts := engine.DefaultOptions()
	opts.Recursive = f.recursive
	opts.Parallel = f.parallel
	opts.Resume = f.resume
	opts.Force = f.force
	opts.Interactive = f.interactive
	opts.Parents = f.parents
	opts.AttributesOnly = f.attributesOnly
	opts.RemoveDestination = f.removeDestination
	opts.Hardlink = f.hardlink
	opts.Verify = f.verify

	var err error
	if opts.Preserve, err = f.resolvePreserve(changed("preserve"), cfg.Preserve.Mode); err != nil {
		return engine.Options{}, err
	}

	if f.symlink != "" {
		if opts.Symlink, err = engine.ParseSymlinkMode(f.symlink); err != nil {
			return engine.Options{}, err
		}
	}

	if opts.Follow, err = f.resolveFollow(cmd, cfg.Symlink.Follow); err != nil {
		return engine.Options{}, err
	}

	if opts.Backup, err = backup.ParseMode(f.backup); err != nil {
		return engine.Options{}, err
	}

	if f.reflink != "" {
		if opts.Reflink, err = engine.ParseReflinkMode(f.reflink); err != nil {
			return engine.Options{}, err
		}
	}

	if f.bwLimit != "" {
		if opts.BWLimit, err = engine.ParseBandwidth(f.bwLimit); err != nil {
			return engine.Options{}, fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	if opts.Exclude, err = f.resolveExclude(cfg.Exclude.Patterns); err != nil {
		return engine.Options{}, err
	}

	return opts, nil
}

func (f *cliFlags) resolvePreserve(set bool, fromCfg *string) (preserve.Attrs, error) {
	switch {
	case set:
		return preserve.ParseAttrs(f.preserve)
	case fromCfg != nil && *fromCfg != "":
		attrs, err := preserve.ParseAttrs(*fromCfg)
		if err != nil {
			return preserve.Attrs{}, fmt.Errorf("config preserve.mode: %w", err)
		}
		return attrs, nil
	default:
		return preserve.Attrs{}, nil
	}
}

func (f *cliFlags) resolveFollow(cmd *cobra.Command, fromCfg *string) (engine.FollowMode, error) {
	fl := cmd.Flags()
	if fl.Changed("no-dereference") || fl.Changed("dereference") || fl.Changed("dereference-args") {
		return engine.ResolveFollow(f.noDereference, f.dereference, f.commandLine)
	}
	if fromCfg != nil {
		return engine.ParseFollowMode(*fromCfg)
	}
	return engine.FollowDefault, nil
}

// resolveExclude merges config patterns, --exclude values and the
// --exclude-from file, in that order.
func (f *cliFlags) resolveExclude(fromCfg []string) (*filter.Rules, error) {
	inputs := make([]string, 0, len(fromCfg)+len(f.exclude))
	inputs = append(inputs, fromCfg...)
	inputs = append(inputs, f.exclude...)

	patterns, err := filter.ParsePatternList(inputs...)
	if err != nil {
		return nil, err
	}
	if f.excludeFrom != "" {
		loaded, err := filter.LoadFile(f.excludeFrom)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, loaded...)
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return filter.Build(patterns)
}

// splitArgs separates sources from the destination, honoring
// --target-directory.
func (f *cliFlags) splitArgs(args []string) (sources []string, dst string) {
	if f.targetDir != "" {
		return args, f.targetDir
	}
	return args[:len(args)-1], args[len(args)-1]
}

// fromConfig copies a config value into dst unless the flag was set on the
// command line.
func fromConfig[T any](changed bool, dst *T, v *T) {
	if !changed && v != nil {
		*dst = *v
	}
}
