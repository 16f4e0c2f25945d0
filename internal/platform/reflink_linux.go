//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ReflinkMethod is the clone primitive used on this platform.
const ReflinkMethod = Ficlone

// Reflink creates dst as a copy-on-write clone of src. dst must not exist.
// On failure any partially created dst is removed.
func Reflink(src, dst string, perm os.FileMode) error {
	srcFd, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFd.Close()

	dstFd, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	//nolint:gosec // G115: fd values are small non-negative integers
	if err := unix.IoctlFileClone(int(dstFd.Fd()), int(srcFd.Fd())); err != nil {
		dstFd.Close()
		os.Remove(dst)
		if isFallbackErr(err) {
			return fmt.Errorf("%w: ficlone: %w", ErrUnsupported, err)
		}
		return fmt.Errorf("ficlone: %w", err)
	}
	return dstFd.Close()
}
