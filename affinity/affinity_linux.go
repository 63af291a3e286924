//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>

package affinity

import (
	"unsafe"

	"github.com/momentics/hioload-sga/api"
	"golang.org/x/sys/unix"
)

// maxCPUs is the number of CPUs a CPUSet can describe.
const maxCPUs = int(unsafe.Sizeof(unix.CPUSet{})) * 8

func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	if cpuID >= maxCPUs {
		return api.NewError(api.ErrCodeInvalidArgument, "cpu out of range").WithContext("cpu", cpuID)
	}
	set.Zero()
	set.Set(cpuID)
	// pid 0 targets the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.NewError(api.ErrCodeNotSupported, "sched_setaffinity failed").
			WithContext("cpu", cpuID).WithCause(err)
	}
	return nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < maxCPUs; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
