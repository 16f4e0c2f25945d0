package ui

import "github.com/bamsammich/cpx/internal/event"

// Event is re-exported so presenters read naturally.
type Event = event.Event

// Re-export event types for convenience.
const (
	PlanComplete    = event.PlanComplete
	FileStarted     = event.FileStarted
	FileProgress    = event.FileProgress
	FileCompleted   = event.FileCompleted
	FileFailed      = event.FileFailed
	FileSkipped     = event.FileSkipped
	DirCreated      = event.DirCreated
	SymlinkCreated  = event.SymlinkCreated
	HardlinkCreated = event.HardlinkCreated
	BackupCreated   = event.BackupCreated
	VerifyStarted   = event.VerifyStarted
	VerifyOK        = event.VerifyOK
	VerifyFailed    = event.VerifyFailed
)
