//go:build !linux && !darwin

package preserve

import (
	"fmt"
	"os"
)

// Apply copies permission bits and modification time. Ownership, xattrs
// and security contexts have no portable equivalent here and are skipped.
func Apply(src, dst string, attrs Attrs) error {
	if !attrs.Any() {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrFailed, src, err)
	}
	if attrs.Mode {
		if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
			return fmt.Errorf("%w: chmod %s: %w", ErrFailed, dst, err)
		}
	}
	if attrs.Timestamps {
		if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
			return fmt.Errorf("%w: chtimes %s: %w", ErrFailed, dst, err)
		}
	}
	return nil
}
