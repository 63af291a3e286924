// File: pool/pagetable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// pageTable maps page base addresses of one granularity to region ids.
type pageTable struct {
	pageSize uintptr
	pages    map[uintptr]int
}

func newPageTable(pageSize int) *pageTable {
	return &pageTable{pageSize: uintptr(pageSize), pages: make(map[uintptr]int)}
}

func (pt *pageTable) insert(r *Region) {
	for _, p := range r.pages() {
		pt.pages[p] = r.id
	}
}

func (pt *pageTable) remove(r *Region) {
	for _, p := range r.pages() {
		if id, ok := pt.pages[p]; ok && id == r.id {
			delete(pt.pages, p)
		}
	}
}

func (pt *pageTable) lookup(addr uintptr) (int, bool) {
	id, ok := pt.pages[alignDown(addr, pt.pageSize)]
	return id, ok
}

// lookupOrder lists granularities in the order resolve checks them.
var lookupOrder = [...]int{Page2M, Page4K, Page1G}
