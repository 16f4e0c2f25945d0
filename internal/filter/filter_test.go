package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"/abs/path", AbsolutePath},
		{"node_modules", Basename},
		{".git", Basename},
		{"*.tmp", Glob},
		{"file?.txt", Glob},
		{"[ab].txt", Glob},
		{"dir/file.txt", Glob},
		{"build/", Glob},
		{"  spaced  ", Basename},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input).Kind)
		})
	}
}

func TestParsePatternList(t *testing.T) {
	patterns, err := ParsePatternList("*.tmp,*.log, .git,,", "node_modules")
	require.NoError(t, err)
	require.Len(t, patterns, 4)
	assert.Equal(t, "*.tmp", patterns[0].Value)
	assert.Equal(t, "*.log", patterns[1].Value)
	assert.Equal(t, ".git", patterns[2].Value)
	assert.Equal(t, "node_modules", patterns[3].Value)
}

func TestParsePatternListRejectsParentDir(t *testing.T) {
	for _, input := range []string{"..", "../x", "a/../b", `a\..\b`} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePatternList(input)
			require.ErrorIs(t, err, ErrInvalidPattern)
		})
	}

	// Dots inside names are fine.
	_, err := ParsePatternList("file..bak")
	require.NoError(t, err)
}

func TestBuildInvalidGlob(t *testing.T) {
	_, err := Build([]Pattern{{Value: "[abc", Kind: Glob}})
	require.ErrorIs(t, err, ErrInvalidPattern)
}

func TestBuildEmpty(t *testing.T) {
	r, err := Build(nil)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.False(t, r.ShouldExclude("/any/path", "/any", false))
}

func TestExcludeAbsolutePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	createFile(t, file)

	r, err := Build([]Pattern{{Value: file, Kind: AbsolutePath}})
	require.NoError(t, err)
	assert.True(t, r.ShouldExclude(file, root, false))
	assert.False(t, r.ShouldExclude(filepath.Join(root, "other.txt"), root, false))
}

func TestExcludeAbsoluteDescendants(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache")
	nested := filepath.Join(dir, "a", "b.bin")
	createFile(t, nested)
	createFile(t, filepath.Join(root, "cachefile"))

	r, err := Build([]Pattern{{Value: dir, Kind: AbsolutePath}})
	require.NoError(t, err)
	assert.True(t, r.ShouldExclude(dir, root, true))
	assert.True(t, r.ShouldExclude(nested, root, false))
	// Shared prefix is not a descendant.
	assert.False(t, r.ShouldExclude(filepath.Join(root, "cachefile"), root, false))
}

func TestExcludeBasenameTransitive(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "node_modules", "pkg", "index.js")
	createFile(t, file)

	r, err := BuildFromStrings("node_modules")
	require.NoError(t, err)

	assert.True(t, r.ShouldExclude(filepath.Join(root, "node_modules"), root, true))
	assert.True(t, r.ShouldExclude(filepath.Join(root, "node_modules", "pkg"), root, true))
	assert.True(t, r.ShouldExclude(file, root, false))
	assert.False(t, r.ShouldExclude(filepath.Join(root, "src", "index.js"), root, false))
}

func TestExcludeBasenameAboveRootIgnored(t *testing.T) {
	// Components above the source root never count.
	root := filepath.Join(t.TempDir(), "build", "src")
	r, err := BuildFromStrings("build")
	require.NoError(t, err)
	assert.False(t, r.ShouldExclude(filepath.Join(root, "main.go"), root, false))
}

func TestExcludeGlobAnyDepth(t *testing.T) {
	root := "/src"
	r, err := BuildFromStrings("*.log")
	require.NoError(t, err)

	assert.True(t, r.ShouldExclude("/src/app.log", root, false))
	assert.True(t, r.ShouldExclude("/src/a/b/debug.log", root, false))
	assert.False(t, r.ShouldExclude("/src/app.log.bak", root, false))
	assert.False(t, r.ShouldExclude("/src/app.txt", root, false))
}

func TestExcludeGlobRelativePath(t *testing.T) {
	root := "/src"
	r, err := BuildFromStrings("subdir/exclude.txt")
	require.NoError(t, err)

	assert.True(t, r.ShouldExclude("/src/subdir/exclude.txt", root, false))
	assert.False(t, r.ShouldExclude("/src/subdir/keep.txt", root, false))
	assert.False(t, r.ShouldExclude("/src/other/subdir/exclude.txt", root, false))
}

func TestExcludeGlobDirectoryTrailingSlash(t *testing.T) {
	root := "/src"
	r, err := BuildFromStrings("build/")
	require.NoError(t, err)

	assert.True(t, r.ShouldExclude("/src/build", root, true))
	assert.False(t, r.ShouldExclude("/src/build", root, false))
}

func TestExcludeGlobDoubleStar(t *testing.T) {
	root := "/src"
	r, err := BuildFromStrings("**/testdata/**")
	require.NoError(t, err)

	assert.True(t, r.ShouldExclude("/src/pkg/testdata/golden.json", root, false))
	assert.False(t, r.ShouldExclude("/src/pkg/main.go", root, false))
}

func TestExcludeGlobDescendants(t *testing.T) {
	root := "/src"
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"src/gen", "/src/src/gen/x.go", true},
		{"src/gen", "/src/src/gen/deep/y.go", true},
		{"src/gen", "/src/src/generated/x.go", false},
		{"*.d", "/src/conf.d/a.conf", true},
		{"*.d", "/src/etc/conf.d/sub/b.conf", true},
		{"*.d", "/src/conf.dx/a.conf", false},
		{"build/", "/src/build/out.bin", true},
		{"build/", "/src/rebuild/out.bin", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			r, err := BuildFromStrings(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ShouldExclude(tt.path, root, false))
		})
	}
}

func TestExcludeMixed(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "exclude_me.txt")
	createFile(t, abs)

	r, err := BuildFromStrings(abs, "node_modules,*.tmp")
	require.NoError(t, err)

	assert.True(t, r.ShouldExclude(abs, root, false))
	assert.True(t, r.ShouldExclude(filepath.Join(root, "node_modules"), root, true))
	assert.True(t, r.ShouldExclude(filepath.Join(root, "temp.tmp"), root, false))
	assert.False(t, r.ShouldExclude(filepath.Join(root, "keep.txt"), root, false))
}

func TestAbsoluteSortedLongestFirst(t *testing.T) {
	r, err := Build([]Pattern{
		{Value: "/a", Kind: AbsolutePath},
		{Value: "/a/bb/ccc", Kind: AbsolutePath},
		{Value: "/a/bb", Kind: AbsolutePath},
	})
	require.NoError(t, err)
	require.Len(t, r.absolute, 3)
	assert.GreaterOrEqual(t, len(r.absolute[0]), len(r.absolute[1]))
	assert.GreaterOrEqual(t, len(r.absolute[1]), len(r.absolute[2]))
}
