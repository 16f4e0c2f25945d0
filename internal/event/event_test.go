package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "PlanComplete", typ: PlanComplete},
		{want: "FileStarted", typ: FileStarted},
		{want: "FileProgress", typ: FileProgress},
		{want: "FileCompleted", typ: FileCompleted},
		{want: "FileFailed", typ: FileFailed},
		{want: "FileSkipped", typ: FileSkipped},
		{want: "DirCreated", typ: DirCreated},
		{want: "SymlinkCreated", typ: SymlinkCreated},
		{want: "HardlinkCreated", typ: HardlinkCreated},
		{want: "BackupCreated", typ: BackupCreated},
		{want: "VerifyStarted", typ: VerifyStarted},
		{want: "VerifyOK", typ: VerifyOK},
		{want: "VerifyFailed", typ: VerifyFailed},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(-1).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Path)
	assert.Empty(t, e.Source)
	assert.Zero(t, e.Size)
	assert.Zero(t, e.Total)
	assert.Zero(t, e.TotalSize)
	require.NoError(t, e.Error)
}

func TestEventFields(t *testing.T) {
	now := time.Now()
	e := Event{
		Type:      FileCompleted,
		Timestamp: now,
		Path:      "/dst/dir/file.txt",
		Source:    "/src/dir/file.txt",
		Size:      1024,
		Method:    "copy_file_range",
	}
	assert.Equal(t, FileCompleted, e.Type)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "/dst/dir/file.txt", e.Path)
	assert.Equal(t, "/src/dir/file.txt", e.Source)
	assert.Equal(t, int64(1024), e.Size)
	assert.Equal(t, "copy_file_range", e.Method)
}
