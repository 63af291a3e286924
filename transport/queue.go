// File: transport/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
)

// Queue is one hardware (or software) send queue.
type Queue interface {
	// AvailableEntries returns the descriptor slots free right now.
	AvailableEntries() int

	// Capacity returns the total number of descriptor slots.
	Capacity() int

	// PostSegment writes one descriptor. The queue takes over seg's
	// reference and releases it on completion.
	PostSegment(seg api.Segment) error

	// FinishBatch closes a frame made of the last n posted segments.
	FinishBatch(n int) error

	// Abort withdraws the last n posted, unfinished segments, frees their
	// slots and releases them. Posters call it when a frame cannot be
	// completed so the next frame starts from an empty batch.
	Abort(n int) error

	// RingDoorbell tells the device new descriptors are ready.
	RingDoorbell() error

	// PollCompletions reaps up to budget completions and returns how many
	// slots were freed.
	PollCompletions(budget int) (int, error)
}

// HeaderAllocator supplies TX buffers for framing and headers.
// *pool.Manager implements it.
type HeaderAllocator interface {
	AllocateTxBuffer() (*pool.Buffer, int, bool)
}

var _ HeaderAllocator = (*pool.Manager)(nil)
