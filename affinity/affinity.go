// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Pins the calling goroutine to one logical CPU. The goroutine stays locked
// to its OS thread until Unpin.

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-sga/api"
)

// Pin locks the calling goroutine to its thread and binds the thread to cpuID.
func Pin(cpuID int) error {
	if cpuID < 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "negative cpu").WithContext("cpu", cpuID)
	}
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin releases the thread lock taken by Pin. The thread keeps its mask and
// the runtime retires it only if it was locked when the goroutine exits.
func Unpin() {
	runtime.UnlockOSThread()
}
