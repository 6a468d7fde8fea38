//go:build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

import "runtime"

// RegisterPlatformProbes adds the goroutine probe; descriptor limits are
// only reported on Linux.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
