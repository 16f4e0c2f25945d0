//go:build !linux

package platform

import "os"

// ZeroCopySupported reports whether CopyRange is backed by a kernel
// zero-copy primitive.
const ZeroCopySupported = false

// CopyRange is not available on this platform.
func CopyRange(_, _ *os.File, _, _ int64) (int64, error) {
	return 0, ErrUnsupported
}
