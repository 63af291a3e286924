// File: pool/metadata.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"

	"github.com/momentics/hioload-sga/api"
)

// Metadata is a shared, immutable view into a region item. Every handle
// holds one reference on the item; Clone adds one, Release drops one.
type Metadata struct {
	r        *Region
	idx      int
	off      int
	n        int
	released bool
}

var _ api.Segment = (*Metadata)(nil)

// Bytes returns the bytes in view.
func (md *Metadata) Bytes() []byte {
	if md.released {
		return nil
	}
	return md.r.item(md.idx)[md.off : md.off+md.n]
}

// Offset returns the view offset inside the item.
func (md *Metadata) Offset() int { return md.off }

// Len returns the view length.
func (md *Metadata) Len() int { return md.n }

// RegionID returns the owning region id.
func (md *Metadata) RegionID() int { return md.r.id }

// Index returns the item index.
func (md *Metadata) Index() int { return md.idx }

// ItemLen returns the size of the underlying item.
func (md *Metadata) ItemLen() int { return md.r.itemLen }

// Refcount returns the current count of the underlying item.
func (md *Metadata) Refcount() int { return md.r.Refcount(md.idx) }

// Released reports whether this handle has dropped its reference.
func (md *Metadata) Released() bool { return md.released }

// Clone returns a new handle on the same view. O(1).
func (md *Metadata) Clone() *Metadata {
	if md.released {
		panic("pool: clone of released metadata")
	}
	md.r.incRef(md.idx)
	return &Metadata{r: md.r, idx: md.idx, off: md.off, n: md.n}
}

// SetView narrows or shifts the view. Moving the offset backwards while also
// growing the length is rejected, as is any view leaving the item.
func (md *Metadata) SetView(newLen, newOffset int) error {
	if newOffset < md.off && newLen > md.n {
		return api.NewError(api.ErrCodeInvalidArgument, "view may not move back and grow").
			WithContext("offset", md.off).WithContext("len", md.n).
			WithContext("new_offset", newOffset).WithContext("new_len", newLen)
	}
	if newOffset < 0 || newLen < 0 || newOffset+newLen > md.r.itemLen {
		return api.NewError(api.ErrCodeInvalidArgument, "view outside item bounds").
			WithContext("item_len", md.r.itemLen).
			WithContext("new_offset", newOffset).WithContext("new_len", newLen)
	}
	md.off, md.n = newOffset, newLen
	return nil
}

// Release drops this handle's reference. Calling it twice is a no-op.
func (md *Metadata) Release() {
	if md.released {
		return
	}
	md.released = true
	md.r.decRef(md.idx)
}

func (md *Metadata) String() string {
	return fmt.Sprintf("metadata(region=%d idx=%d off=%d len=%d)", md.r.id, md.idx, md.off, md.n)
}
