// File: api/segment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Segment is the narrow view a queue poster gets of a registered buffer.

package api

// Segment is one contiguous, registered byte range handed to a transmit queue.
// The queue owns the segment from PostSegment until it calls Release on completion.
type Segment interface {
	// Bytes returns the in-view bytes.
	Bytes() []byte

	// RegionID identifies the registered region the bytes live in.
	RegionID() int

	// Index is the item index inside the region.
	Index() int

	// Offset is the byte offset of the view inside its item.
	Offset() int

	// Len is the length of the view.
	Len() int

	// Release drops this holder's reference on the item.
	Release()
}
