package passthrough

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/u-root/cpu/p9"
)

func timespecOf(ts unix.Timespec) p9.Timespec {
	return p9.Timespec{Sec: uint64(ts.Sec), Nsec: uint64(ts.Nsec)}
}

func timeFromTimespec(ts unix.Timespec) time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}
