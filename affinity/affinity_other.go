//go:build !linux

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-sga/api"
)

func setAffinityPlatform(cpuID int) error {
	return api.NewError(api.ErrCodeNotSupported, "cpu affinity unavailable").
		WithContext("os", runtime.GOOS).WithContext("cpu", cpuID)
}

// Current is not available off Linux.
func Current() ([]int, error) {
	return nil, api.ErrNotSupported
}
