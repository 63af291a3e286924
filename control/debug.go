// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named probes reporting internal state on demand.

package control

import "github.com/puzpuzpuz/xsync/v3"

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	probes *xsync.MapOf[string, func() any]
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: xsync.NewMapOf[string, func() any]()}
}

// RegisterProbe inserts or replaces a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.probes.Store(name, fn)
}

// Unregister removes a probe. Unknown names are ignored.
func (dp *DebugProbes) Unregister(name string) {
	dp.probes.Delete(name)
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	out := make(map[string]any, dp.probes.Size())
	dp.probes.Range(func(k string, fn func() any) bool {
		out[k] = fn()
		return true
	})
	return out
}
