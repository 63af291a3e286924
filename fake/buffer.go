// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake segment and queue implementations for testing.

package fake

import (
	"sync"

	"github.com/momentics/hioload-sga/api"
)

// Segment is a fake api.Segment over process memory.
type Segment struct {
	mu       sync.Mutex
	data     []byte
	region   int
	index    int
	released int
}

var _ api.Segment = (*Segment)(nil)

// NewSegment creates a segment holding a private copy of data.
func NewSegment(data []byte, region, index int) *Segment {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return &Segment{data: dataCopy, region: region, index: index}
}

func (s *Segment) Bytes() []byte { return s.data }
func (s *Segment) RegionID() int { return s.region }
func (s *Segment) Index() int    { return s.index }
func (s *Segment) Offset() int   { return 0 }
func (s *Segment) Len() int      { return len(s.data) }

// Release counts release calls.
func (s *Segment) Release() {
	s.mu.Lock()
	s.released++
	s.mu.Unlock()
}

// Releases returns how many times Release was called.
func (s *Segment) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
