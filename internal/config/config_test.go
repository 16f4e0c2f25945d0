package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cpx/internal/config"
)

// useConfigHome points XDG_CONFIG_HOME at dir for the duration of the test.
func useConfigHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "cpx")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))
}

func TestLoad_MissingFile(t *testing.T) {
	useConfigHome(t, t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Copy.Parallel)
	assert.Nil(t, cfg.Backup.Mode)
	assert.Empty(t, cfg.Exclude.Patterns)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	useConfigHome(t, dir)

	writeConfig(t, dir, `
[exclude]
patterns = ["*.tmp", "node_modules,.git"]

[copy]
parallel = 16
recursive = true
resume = true
verify = true
link = true
bwlimit = "100MB"

[preserve]
mode = "mode,timestamps"

[symlink]
mode = "relative"
follow = "never"

[backup]
mode = "numbered"

[reflink]
mode = "always"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"*.tmp", "node_modules,.git"}, cfg.Exclude.Patterns)

	require.NotNil(t, cfg.Copy.Parallel)
	assert.Equal(t, 16, *cfg.Copy.Parallel)
	require.NotNil(t, cfg.Copy.Recursive)
	assert.True(t, *cfg.Copy.Recursive)
	require.NotNil(t, cfg.Copy.Resume)
	assert.True(t, *cfg.Copy.Resume)
	require.NotNil(t, cfg.Copy.Verify)
	assert.True(t, *cfg.Copy.Verify)
	require.NotNil(t, cfg.Copy.Link)
	assert.True(t, *cfg.Copy.Link)
	require.NotNil(t, cfg.Copy.BWLimit)
	assert.Equal(t, "100MB", *cfg.Copy.BWLimit)

	require.NotNil(t, cfg.Preserve.Mode)
	assert.Equal(t, "mode,timestamps", *cfg.Preserve.Mode)
	require.NotNil(t, cfg.Symlink.Mode)
	assert.Equal(t, "relative", *cfg.Symlink.Mode)
	require.NotNil(t, cfg.Symlink.Follow)
	assert.Equal(t, "never", *cfg.Symlink.Follow)
	require.NotNil(t, cfg.Backup.Mode)
	assert.Equal(t, "numbered", *cfg.Backup.Mode)
	require.NotNil(t, cfg.Reflink.Mode)
	assert.Equal(t, "always", *cfg.Reflink.Mode)

	// Unset fields should remain nil.
	assert.Nil(t, cfg.Copy.Force)
	assert.Nil(t, cfg.Copy.Parents)
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	useConfigHome(t, dir)
	writeConfig(t, dir, `
[backup]
mode = "simple"
`)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Copy.Parallel)
	require.NotNil(t, cfg.Backup.Mode)
	assert.Equal(t, "simple", *cfg.Backup.Mode)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	useConfigHome(t, dir)
	writeConfig(t, dir, "invalid [[[")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[copy]\nforce = true\n"), 0o644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Copy.Force)
	assert.True(t, *cfg.Copy.Force)
}

func TestPath(t *testing.T) {
	useConfigHome(t, "/custom/config")
	assert.Equal(t, "/custom/config/cpx/config.toml", config.Path())
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	require.NoError(t, config.Init(path, false))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	def := config.Default()
	assert.Equal(t, def.Copy, cfg.Copy)
	assert.Equal(t, def.Backup, cfg.Backup)
	assert.Equal(t, def.Symlink, cfg.Symlink)
	assert.Empty(t, cfg.Exclude.Patterns)

	err = config.Init(path, false)
	require.ErrorIs(t, err, config.ErrExists)

	require.NoError(t, os.WriteFile(path, []byte("[copy]\nparallel = 2\n"), 0o644))
	require.NoError(t, config.Init(path, true))
	cfg, err = config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, *cfg.Copy.Parallel)
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, config.Encode(&buf, config.Default()))
	assert.Contains(t, buf.String(), "[copy]")
	assert.Contains(t, buf.String(), "parallel = 4")
	assert.Contains(t, buf.String(), "[backup]")
}
