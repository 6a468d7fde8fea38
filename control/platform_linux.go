//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformProbes adds process-level probes: goroutine count and the
// RLIMIT_NOFILE soft limit, which bounds how many connections can be open.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("platform.nofile", func() any {
		var lim unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
			return int64(-1)
		}
		return int64(lim.Cur)
	})
}
