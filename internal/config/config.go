// Package config loads the optional cpx configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// ErrExists is returned by Init when the file is already present.
var ErrExists = errors.New("config file already exists")

const (
	dirName  = "cpx"
	fileName = "config.toml"
)

// Config represents the optional cpx configuration file. Pointer fields
// distinguish "unset" from a zero value so command-line flags can fall back
// to them selectively.
type Config struct {
	Exclude  ExcludeConfig  `toml:"exclude"`
	Copy     CopyConfig     `toml:"copy"`
	Preserve PreserveConfig `toml:"preserve"`
	Symlink  SymlinkConfig  `toml:"symlink"`
	Backup   BackupConfig   `toml:"backup"`
	Reflink  ReflinkConfig  `toml:"reflink"`
}

// ExcludeConfig holds patterns that are always excluded. Entries may be
// comma-separated lists.
type ExcludeConfig struct {
	Patterns []string `toml:"patterns"`
}

// CopyConfig holds defaults for the copy flags.
type CopyConfig struct {
	Parallel          *int    `toml:"parallel"`
	Recursive         *bool   `toml:"recursive"`
	Parents           *bool   `toml:"parents"`
	Force             *bool   `toml:"force"`
	Interactive       *bool   `toml:"interactive"`
	Resume            *bool   `toml:"resume"`
	AttributesOnly    *bool   `toml:"attributes_only"`
	RemoveDestination *bool   `toml:"remove_destination"`
	Link              *bool   `toml:"link"`
	Verify            *bool   `toml:"verify"`
	BWLimit           *string `toml:"bwlimit"`
}

// PreserveConfig selects attributes preserved on every copy, in -p list
// syntax ("mode,timestamps", "all"). Empty preserves nothing.
type PreserveConfig struct {
	Mode *string `toml:"mode"`
}

// SymlinkConfig holds the -s mode and the dereference policy.
type SymlinkConfig struct {
	Mode   *string `toml:"mode"`   // "", "auto", "absolute", "relative"
	Follow *string `toml:"follow"` // "", "never", "always", "command-line"
}

// BackupConfig holds the backup mode.
type BackupConfig struct {
	Mode *string `toml:"mode"` // "none", "simple", "numbered", "existing"
}

// ReflinkConfig holds the reflink mode.
type ReflinkConfig struct {
	Mode *string `toml:"mode"` // "", "auto", "always", "never"
}

// Path returns the default config file location under the XDG config
// directory.
func Path() string {
	return filepath.Join(xdg.ConfigHome, dirName, fileName)
}

// Load reads the config file from the default path.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config file at path. Returns a zero Config (no error)
// if the file does not exist. Config is always optional.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a config with every field set to the built-in default.
func Default() Config {
	return Config{
		Exclude: ExcludeConfig{Patterns: []string{}},
		Copy: CopyConfig{
			Parallel:          ptr(4),
			Recursive:         ptr(false),
			Parents:           ptr(false),
			Force:             ptr(false),
			Interactive:       ptr(false),
			Resume:            ptr(false),
			AttributesOnly:    ptr(false),
			RemoveDestination: ptr(false),
			Link:              ptr(false),
			Verify:            ptr(false),
			BWLimit:           ptr(""),
		},
		Preserve: PreserveConfig{Mode: ptr("")},
		Symlink:  SymlinkConfig{Mode: ptr(""), Follow: ptr("")},
		Backup:   BackupConfig{Mode: ptr("none")},
		Reflink:  ReflinkConfig{Mode: ptr("")},
	}
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(cfg)
}

// Init writes the default config to path, creating parent directories.
// An existing file is only replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	var buf bytes.Buffer
	buf.WriteString("# cpx configuration. Command-line flags override these values.\n\n")
	if err := Encode(&buf, Default()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
