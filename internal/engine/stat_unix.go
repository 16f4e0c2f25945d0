//go:build linux || darwin

package engine

import (
	"os"
	"syscall"
)

// inodeOf returns the device/inode pair and link count of info.
func inodeOf(info os.FileInfo) (DevIno, uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return DevIno{}, 0, false
	}
	//nolint:gosec // G115: dev_t is int32 on darwin, always non-negative
	return DevIno{Dev: uint64(stat.Dev), Ino: uint64(stat.Ino)}, uint64(stat.Nlink), true
}
