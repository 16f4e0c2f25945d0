// Package event defines the progress events the copy executor emits.
package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PlanComplete Type = iota + 1
	FileStarted
	FileProgress
	FileCompleted
	FileFailed
	FileSkipped
	DirCreated
	SymlinkCreated
	HardlinkCreated
	BackupCreated
	VerifyStarted
	VerifyOK
	VerifyFailed
)

var typeNames = [...]string{
	PlanComplete:    "PlanComplete",
	FileStarted:     "FileStarted",
	FileProgress:    "FileProgress",
	FileCompleted:   "FileCompleted",
	FileFailed:      "FileFailed",
	FileSkipped:     "FileSkipped",
	DirCreated:      "DirCreated",
	SymlinkCreated:  "SymlinkCreated",
	HardlinkCreated: "HardlinkCreated",
	BackupCreated:   "BackupCreated",
	VerifyStarted:   "VerifyStarted",
	VerifyOK:        "VerifyOK",
	VerifyFailed:    "VerifyFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // destination path
	Source    string // source path, when there is one
	Size      int64  // file size or bytes-so-far
	Total     int64  // total files (PlanComplete)
	TotalSize int64  // total bytes (PlanComplete)
	Skipped   int64  // files skipped by resume (PlanComplete)
	Method    string // how the data moved (FileCompleted)
	Error     error
}
