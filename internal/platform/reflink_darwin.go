//go:build darwin

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ReflinkMethod is the clone primitive used on this platform.
const ReflinkMethod = Clonefile

// Reflink creates dst as a copy-on-write clone of src via clonefile(2).
// dst must not exist. clonefile carries the source mode, so perm is unused.
func Reflink(src, dst string, _ os.FileMode) error {
	if err := unix.Clonefile(src, dst, 0); err != nil {
		if isFallbackErr(err) {
			return fmt.Errorf("%w: clonefile: %w", ErrUnsupported, err)
		}
		return fmt.Errorf("clonefile: %w", err)
	}
	return nil
}
