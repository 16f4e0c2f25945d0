//go:build linux || darwin

package platform

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isFallbackErr reports whether err means "this primitive does not work
// here" rather than a real I/O failure.
func isFallbackErr(err error) bool {
	for _, errno := range []unix.Errno{unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP, unix.EOPNOTSUPP, unix.ENOTTY} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
