//go:build linux || darwin

package preserve

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// contextXattr holds the SELinux security context.
const contextXattr = "security.selinux"

// Apply copies the attributes selected by attrs from src to dst. Source
// metadata is read once. Ownership goes first because chown clears the
// setuid bits, and timestamps go last so xattr writes cannot disturb them.
// Privilege errors on ownership are ignored. Xattrs and the security
// context are best-effort.
func Apply(src, dst string, attrs Attrs) error {
	if !attrs.Any() {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrFailed, src, err)
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("%w: no stat data for %s", ErrFailed, src)
	}

	if attrs.Ownership {
		if err := unix.Lchown(dst, int(stat.Uid), int(stat.Gid)); err != nil && !isPrivilegeErr(err) {
			return fmt.Errorf("%w: chown %s: %w", ErrFailed, dst, err)
		}
	}

	if attrs.Mode {
		if err := unix.Chmod(dst, uint32(stat.Mode)&0o7777); err != nil {
			return fmt.Errorf("%w: chmod %s: %w", ErrFailed, dst, err)
		}
	}

	if attrs.Xattr {
		copyXattrs(src, dst, func(name string) bool { return name != contextXattr })
	}

	if attrs.Context {
		copyXattrs(src, dst, func(name string) bool { return name == contextXattr })
	}

	if attrs.Timestamps {
		if err := setTimes(dst, atimeFromStat(stat), info.ModTime()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFailed, dst, err)
		}
	}

	return nil
}

func setTimes(path string, atime, mtime time.Time) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, 0); err != nil {
		return fmt.Errorf("utimensat: %w", err)
	}
	return nil
}

func isPrivilegeErr(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}

// copyXattrs copies the extended attributes accepted by keep. Listing or
// setting failures are ignored.
func copyXattrs(src, dst string, keep func(string) bool) {
	sz, err := unix.Listxattr(src, nil)
	if err != nil || sz == 0 {
		return // none, or unsupported
	}

	buf := make([]byte, sz)
	sz, err = unix.Listxattr(src, buf)
	if err != nil {
		return
	}

	for _, name := range parseXattrNames(buf[:sz]) {
		if !keep(name) {
			continue
		}
		val, err := getXattr(src, name)
		if err != nil {
			continue
		}
		_ = unix.Setxattr(dst, name, val, 0)
	}
}

func getXattr(path, name string) ([]byte, error) {
	sz, err := unix.Getxattr(path, name, nil)
	if err != nil || sz == 0 {
		return nil, err
	}
	buf := make([]byte, sz)
	sz, err = unix.Getxattr(path, name, buf)
	if err != nil {
		return nil, err
	}
	return buf[:sz], nil
}

func parseXattrNames(buf []byte) []string {
	var names []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				names = append(names, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return names
}
