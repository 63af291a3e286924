// control/platform.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
)

// RegisterPlatformProbes adds host facts relevant to hugepage sizing.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any { return runtime.GOOS + "/" + runtime.GOARCH })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.page_size", func() any { return humanize.IBytes(uint64(os.Getpagesize())) })
	dp.RegisterProbe("platform.goroutines", func() any { return runtime.NumGoroutine() })
}
