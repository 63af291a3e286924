// File: pool/addr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Address helpers. All unsafe pointer arithmetic in the module lives here.

package pool

import "unsafe"

const (
	Page4K = 4 << 10
	Page2M = 2 << 20
	Page1G = 1 << 30
)

// addrOf returns the address of the first byte of b. b must be non-empty.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// alignUp rounds v up to a multiple of align (power of two).
func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

// alignDown rounds v down to a multiple of align (power of two).
func alignDown(v, align uintptr) uintptr {
	return v &^ (align - 1)
}

// alignedWindow returns the sub-slice of mem starting at the first address
// aligned to align and spanning size bytes.
func alignedWindow(mem []byte, size, align int) []byte {
	base := addrOf(mem)
	skip := int(alignUp(base, uintptr(align)) - base)
	return mem[skip : skip+size : skip+size]
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

func log2(v int) uint {
	var s uint
	for v > 1 {
		v >>= 1
		s++
	}
	return s
}
