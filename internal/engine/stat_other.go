//go:build !linux && !darwin

package engine

import "os"

// inodeOf is unavailable without POSIX stat data; hard-link groups are not
// detected.
func inodeOf(_ os.FileInfo) (DevIno, uint64, bool) {
	return DevIno{}, 0, false
}
