// Package platform wraps the OS-specific copy fast paths: copy-on-write
// clones, kernel zero-copy transfers and preallocation. Platforms that lack
// a primitive report ErrUnsupported.
package platform

import "errors"

// ErrUnsupported is returned when the OS or filesystem cannot perform the
// requested primitive.
var ErrUnsupported = errors.ErrUnsupported

// CopyMethod identifies which syscall/strategy moved the data for a file.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Ficlone                  // Linux FICLONE ioctl
	Clonefile                // macOS clonefile(2)
	Hardlink                 // link(2) to an already-copied destination
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Ficlone:
		return "ficlone"
	case Clonefile:
		return "clonefile"
	case Hardlink:
		return "hardlink"
	default:
		return "unknown"
	}
}
