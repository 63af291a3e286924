// control/store.go
// Author: momentics <momentics@gmail.com>
//
// Runtime key/value store with reload listeners.

package control

import (
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// ConfigStore is a concurrent key/value map. Listeners run synchronously
// on the goroutine that called SetConfig.
type ConfigStore struct {
	values    *xsync.MapOf[string, any]
	mu        sync.Mutex
	listeners []func(changed []string)
}

// NewConfigStore initializes an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: xsync.NewMapOf[string, any]()}
}

// Get returns the value stored under key.
func (cs *ConfigStore) Get(key string) (any, bool) {
	return cs.values.Load(key)
}

// GetSnapshot returns a copy of all values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	out := make(map[string]any, cs.values.Size())
	cs.values.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// SetConfig merges newCfg and notifies listeners with the keys that changed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	var changed []string
	for k, v := range newCfg {
		if old, ok := cs.values.Load(k); ok && reflect.DeepEqual(old, v) {
			continue
		}
		cs.values.Store(k, v)
		changed = append(changed, k)
	}
	if len(changed) == 0 {
		return
	}
	cs.mu.Lock()
	listeners := append([]func([]string){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(changed)
	}
}

// OnReload registers a listener for config changes.
func (cs *ConfigStore) OnReload(fn func(changed []string)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
