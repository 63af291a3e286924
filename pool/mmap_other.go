//go:build !linux

// File: pool/mmap_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Heap-backed regions for platforms without the Linux mmap path.

package pool

func mapRegion(size, align, pageSize int) (mapping, window []byte, granularity int, err error) {
	if align < Page4K {
		align = Page4K
	}
	length := int(alignUp(uintptr(size), Page4K))
	mapping = make([]byte, length+align)
	return mapping, alignedWindow(mapping, size, align), Page4K, nil
}

func unmapRegion(mapping []byte) error { return nil }

func lockRegion(mem []byte) error { return nil }

func unlockRegion(mem []byte) error { return nil }
