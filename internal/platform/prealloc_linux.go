//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Preallocate attempts to reserve size bytes for f. Errors are ignored as
// fallocate is not supported on all filesystems.
//
//nolint:gosec // G115: fd values are small non-negative integers
func Preallocate(f *os.File, size int64) {
	if size <= 0 {
		return
	}
	//nolint:errcheck // fallocate is advisory
	unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, size)
}
