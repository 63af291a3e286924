// File: pool/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Region is a registered memory area split into fixed-size items, each with
// its own reference count. Items at refcount zero sit on a FIFO free list.

package pool

import (
	"fmt"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-sga/api"
)

// Region is one registered mempool.
type Region struct {
	id        int
	itemLen   int
	itemShift uint
	numItems  int

	mapping  []byte
	mem      []byte
	base     uintptr
	pageSize int
	locked   bool

	refcnt []int32
	free   *queue.Queue
	owner  *Manager
}

func newRegion(owner *Manager, id, itemLen, numItems, pageSize int, lock bool) (*Region, error) {
	if !isPowerOfTwo(itemLen) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "item length must be a power of two").
			WithContext("item_len", itemLen)
	}
	if numItems <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "region needs at least one item").
			WithContext("items", numItems)
	}
	size := itemLen * numItems
	mapping, mem, granularity, err := mapRegion(size, itemLen, pageSize)
	if err != nil {
		return nil, api.NewError(api.ErrCodeRegistration, "region mapping failed").
			WithCause(err).WithContext("region", id)
	}
	r := &Region{
		id:        id,
		itemLen:   itemLen,
		itemShift: log2(itemLen),
		numItems:  numItems,
		mapping:   mapping,
		mem:       mem,
		base:      addrOf(mem),
		pageSize:  granularity,
		refcnt:    make([]int32, numItems),
		free:      queue.New(),
		owner:     owner,
	}
	if lock {
		if err := lockRegion(mem); err != nil {
			_ = unmapRegion(mapping)
			return nil, api.NewError(api.ErrCodeRegistration, "region registration failed").
				WithCause(err).WithContext("region", id)
		}
		r.locked = true
	}
	for i := 0; i < numItems; i++ {
		r.free.Add(i)
	}
	return r, nil
}

// ID returns the region id.
func (r *Region) ID() int { return r.id }

// ItemLen returns the fixed item size in bytes.
func (r *Region) ItemLen() int { return r.itemLen }

// NumItems returns the number of items in the region.
func (r *Region) NumItems() int { return r.numItems }

// FreeItems returns how many items are on the free list.
func (r *Region) FreeItems() int { return r.free.Length() }

// PageSize returns the page granularity the region is tracked at.
func (r *Region) PageSize() int { return r.pageSize }

// Refcount returns the current count of item idx.
func (r *Region) Refcount(idx int) int { return int(r.refcnt[idx]) }

func (r *Region) String() string {
	return fmt.Sprintf("region(id=%d items=%d x %d)", r.id, r.numItems, r.itemLen)
}

// pages returns the page bases covering the region at its granularity.
func (r *Region) pages() []uintptr {
	ps := uintptr(r.pageSize)
	start := alignDown(r.base, ps)
	end := r.base + uintptr(len(r.mem))
	out := make([]uintptr, 0, (end-start)/ps+1)
	for p := start; p < end; p += ps {
		out = append(out, p)
	}
	return out
}

func (r *Region) contains(addr uintptr) bool {
	return addr >= r.base && addr < r.base+uintptr(len(r.mem))
}

// indexOf maps an address inside the region to its item index.
func (r *Region) indexOf(addr uintptr) int {
	return int(((addr - r.base) &^ uintptr(r.itemLen-1)) >> r.itemShift)
}

func (r *Region) itemBase(idx int) uintptr {
	return r.base + uintptr(idx)<<r.itemShift
}

func (r *Region) item(idx int) []byte {
	off := idx << r.itemShift
	return r.mem[off : off+r.itemLen : off+r.itemLen]
}

// take pops a free item and sets its count to one.
func (r *Region) take() (int, bool) {
	if r.free.Length() == 0 {
		return 0, false
	}
	idx := r.free.Remove().(int)
	r.refcnt[idx] = 1
	return idx, true
}

func (r *Region) incRef(idx int) {
	if r.refcnt[idx] <= 0 {
		panic(fmt.Sprintf("pool: refcount increment on free item %d of region %d", idx, r.id))
	}
	r.refcnt[idx]++
}

// decRef drops one reference; at zero the item goes back to the free list.
func (r *Region) decRef(idx int) {
	if r.refcnt[idx] <= 0 {
		panic(fmt.Sprintf("pool: refcount underflow on item %d of region %d", idx, r.id))
	}
	r.refcnt[idx]--
	if r.refcnt[idx] == 0 {
		r.free.Add(idx)
		r.owner.itemReturned(r)
	}
}

func (r *Region) teardown() error {
	var err error
	if r.locked {
		err = unlockRegion(r.mem)
		r.locked = false
	}
	if uerr := unmapRegion(r.mapping); uerr != nil && err == nil {
		err = uerr
	}
	r.mapping, r.mem = nil, nil
	return err
}
