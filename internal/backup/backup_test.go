package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"", None},
		{"none", None},
		{"off", None},
		{"simple", Simple},
		{"never", Simple},
		{"numbered", Numbered},
		{"t", Numbered},
		{"existing", Existing},
		{"nil", Existing},
		{"NUMBERED", Numbered},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("sometimes")
	assert.Error(t, err)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "numbered", Numbered.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestPathSimple(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "file.txt")
	got, err := Path(dst, Simple)
	require.NoError(t, err)
	assert.Equal(t, dst+"~", got)
}

func TestPathNone(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "file.txt")
	got, err := Path(dst, None)
	require.NoError(t, err)
	assert.Equal(t, dst, got)
}

func TestPathNumberedMonotonic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "test.txt")

	for want := 1; want <= 4; want++ {
		writeFile(t, dst, "v")
		got, err := Create(dst, Numbered)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%s.~%d~", dst, want), got)
		assert.NoFileExists(t, dst)
		assert.FileExists(t, got)
	}
}

func TestPathNumberedUsesMax(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "test.txt")
	writeFile(t, dst, "content")
	writeFile(t, dst+".~1~", "b1")
	writeFile(t, dst+".~3~", "b3")
	writeFile(t, dst+".~2~", "b2")
	// Unrelated siblings are ignored.
	writeFile(t, filepath.Join(dir, "other.txt.~9~"), "x")
	writeFile(t, dst+".~abc~", "x")

	got, err := Path(dst, Numbered)
	require.NoError(t, err)
	assert.Equal(t, dst+".~4~", got)
}

func TestPathExisting(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "test.txt")
	writeFile(t, dst, "content")

	got, err := Path(dst, Existing)
	require.NoError(t, err)
	assert.Equal(t, dst+"~", got)

	writeFile(t, dst+".~1~", "b1")
	got, err = Path(dst, Existing)
	require.NoError(t, err)
	assert.Equal(t, dst+".~2~", got)
}

func TestCreateKeepsContent(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "data.bin")
	writeFile(t, dst, "original")

	got, err := Create(dst, Simple)
	require.NoError(t, err)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestCreateMissingDestination(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing")
	_, err := Create(dst, Simple)
	assert.Error(t, err)
}
