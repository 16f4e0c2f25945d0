//go:build !linux && !darwin

package platform

import "os"

// ReflinkMethod is the clone primitive used on this platform.
const ReflinkMethod = ReadWrite

// Reflink is not available on this platform.
func Reflink(_, _ string, _ os.FileMode) error {
	return ErrUnsupported
}
