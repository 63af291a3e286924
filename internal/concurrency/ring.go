// File: internal/concurrency/ring.go
// Package concurrency implements the descriptor ring shared by a poster and
// the device side of a queue.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded single-producer/single-consumer ring. Each side
// keeps a cached copy of the other side's index and only reloads it when the
// cached view says the ring is full (producer) or empty (consumer). The
// producer reserves slots, fills them in place and publishes them in one
// Commit, the way an AF_XDP TX ring is driven.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/hioload-sga/api"
)

// RingBuffer is a lock-free SPSC ring of fixed-size entries.
type RingBuffer[T any] struct {
	data []T
	mask uint64
	size uint64

	head atomic.Uint64 // consumer index
	_    [56]byte
	tail atomic.Uint64 // producer index, published
	_    [56]byte

	// producer private
	cachedHead uint64
	reserved   uint64

	// consumer private
	cachedTail uint64
}

// NewRingBuffer allocates a ring of power-of-two size.
func NewRingBuffer[T any](size int) (*RingBuffer[T], error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "ring size must be a power of two").
			WithContext("size", size)
	}
	return &RingBuffer[T]{
		data: make([]T, size),
		mask: uint64(size - 1),
		size: uint64(size),
	}, nil
}

// Free returns the number of slots the producer may reserve. It refreshes
// the cached consumer index.
func (r *RingBuffer[T]) Free() int {
	r.cachedHead = r.head.Load()
	return int(r.cachedHead + r.size - r.reserved)
}

// Reserve claims n slots and returns the position of the first one.
// It returns false without side effects when fewer than n slots are free.
func (r *RingBuffer[T]) Reserve(n int) (uint64, bool) {
	if uint64(n) > r.cachedHead+r.size-r.reserved {
		r.cachedHead = r.head.Load()
		if uint64(n) > r.cachedHead+r.size-r.reserved {
			return 0, false
		}
	}
	pos := r.reserved
	r.reserved += uint64(n)
	return pos, true
}

// Slot returns the entry at absolute position pos.
func (r *RingBuffer[T]) Slot(pos uint64) *T {
	return &r.data[pos&r.mask]
}

// Pending returns reserved slots not yet committed.
func (r *RingBuffer[T]) Pending() int {
	return int(r.reserved - r.tail.Load())
}

// Unreserve returns the last n reserved, uncommitted slots to the producer.
func (r *RingBuffer[T]) Unreserve(n int) error {
	if n < 0 || n > r.Pending() {
		return api.NewError(api.ErrCodeInvalidArgument, "unreserve beyond pending slots").
			WithContext("n", n).WithContext("pending", r.Pending())
	}
	r.reserved -= uint64(n)
	return nil
}

// Commit publishes every reserved slot to the consumer.
func (r *RingBuffer[T]) Commit() {
	r.tail.Store(r.reserved)
}

// Published returns the consumer's view of the producer index.
func (r *RingBuffer[T]) Published() uint64 {
	r.cachedTail = r.tail.Load()
	return r.cachedTail
}

// Head returns the consumer index.
func (r *RingBuffer[T]) Head() uint64 {
	return r.head.Load()
}

// Available returns committed entries the consumer has not released.
func (r *RingBuffer[T]) Available() int {
	head := r.head.Load()
	if r.cachedTail == head {
		r.cachedTail = r.tail.Load()
	}
	return int(r.cachedTail - head)
}

// Release hands n consumed slots back to the producer.
func (r *RingBuffer[T]) Release(n int) {
	r.head.Store(r.head.Load() + uint64(n))
}

// Len returns the number of committed, unreleased entries.
func (r *RingBuffer[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the fixed ring capacity.
func (r *RingBuffer[T]) Cap() int {
	return int(r.size)
}
