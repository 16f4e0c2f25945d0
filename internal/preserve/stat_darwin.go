//go:build darwin

package preserve

import (
	"syscall"
	"time"
)

func atimeFromStat(stat *syscall.Stat_t) time.Time {
	return time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec)
}
