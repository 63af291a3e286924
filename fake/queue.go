// Package fake
// Author: momentics <momentics@gmail.com>
//
// Recording send queue with controllable capacity and failures.

package fake

import (
	"sync"

	"github.com/momentics/hioload-sga/api"
)

// Posted records one PostSegment call.
type Posted struct {
	Region int
	Index  int
	Offset int
	Data   []byte
}

// Queue is a fake transport.Queue. Descriptors complete when the doorbell
// rings unless HoldCompletions is set; completed segments are released on
// PollCompletions.
type Queue struct {
	mu        sync.Mutex
	capacity  int
	inflight  []api.Segment
	batch     int
	completed int // inflight prefix already completed by the device
	frames    [][]Posted
	current   []Posted
	hold      bool
	postErr   error
	failAt    int // 1-based PostSegment call that fails once, 0 for none
	failErr   error
	postCalls int
	aborted   int
	doorbells int
	polls     int
}

// NewQueue creates a queue with capacity descriptor slots.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

func (q *Queue) AvailableEntries() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity - len(q.inflight)
}

func (q *Queue) Capacity() int { return q.capacity }

func (q *Queue) PostSegment(seg api.Segment) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.postErr != nil {
		return q.postErr
	}
	q.postCalls++
	if q.failAt != 0 && q.postCalls == q.failAt {
		q.failAt = 0
		return q.failErr
	}
	if len(q.inflight) >= q.capacity {
		return api.NewError(api.ErrCodeResourceExhausted, "fake queue full")
	}
	data := make([]byte, seg.Len())
	copy(data, seg.Bytes())
	q.inflight = append(q.inflight, seg)
	q.current = append(q.current, Posted{Region: seg.RegionID(), Index: seg.Index(), Offset: seg.Offset(), Data: data})
	q.batch++
	return nil
}

func (q *Queue) FinishBatch(n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n != q.batch {
		return api.NewError(api.ErrCodeInvalidArgument, "batch size mismatch").
			WithContext("n", n).WithContext("posted", q.batch)
	}
	if n > 0 {
		q.frames = append(q.frames, q.current)
	}
	q.current, q.batch = nil, 0
	return nil
}

// Abort drops the last n segments of the open batch and releases them.
func (q *Queue) Abort(n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n < 0 || n > q.batch {
		return api.NewError(api.ErrCodeInvalidArgument, "abort beyond open batch").
			WithContext("n", n).WithContext("posted", q.batch)
	}
	keep := len(q.inflight) - n
	for _, seg := range q.inflight[keep:] {
		seg.Release()
	}
	q.inflight = q.inflight[:keep]
	q.current = q.current[:len(q.current)-n]
	q.batch -= n
	q.aborted += n
	return nil
}

func (q *Queue) RingDoorbell() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.doorbells++
	if !q.hold {
		q.completed = len(q.inflight) - q.batch
	}
	return nil
}

func (q *Queue) PollCompletions(budget int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.polls++
	n := min(budget, q.completed)
	for _, seg := range q.inflight[:n] {
		seg.Release()
	}
	q.inflight = q.inflight[n:]
	q.completed -= n
	return n, nil
}

// HoldCompletions stops (or resumes) completing descriptors on doorbell.
func (q *Queue) HoldCompletions(hold bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.hold = hold
}

// CompleteAll marks every posted descriptor complete.
func (q *Queue) CompleteAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = len(q.inflight) - q.batch
}

// SetPostError makes PostSegment fail with err.
func (q *Queue) SetPostError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.postErr = err
}

// FailNthPost makes the n-th PostSegment call from now fail once with err.
func (q *Queue) FailNthPost(n int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failAt, q.failErr, q.postCalls = n, err, 0
}

// Aborted returns how many segments were dropped by Abort.
func (q *Queue) Aborted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.aborted
}

// Frames returns the finished frames in posting order.
func (q *Queue) Frames() [][]Posted {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]Posted, len(q.frames))
	copy(out, q.frames)
	return out
}

// Frame returns the concatenated bytes of frame i.
func (q *Queue) Frame(i int) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []byte
	for _, p := range q.frames[i] {
		out = append(out, p.Data...)
	}
	return out
}

// Inflight returns descriptors not yet reaped.
func (q *Queue) Inflight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

// Doorbells returns the number of doorbell rings.
func (q *Queue) Doorbells() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.doorbells
}

// Polls returns the number of PollCompletions calls.
func (q *Queue) Polls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.polls
}

// Close releases every segment still held.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, seg := range q.inflight {
		seg.Release()
	}
	q.inflight, q.completed, q.batch, q.current = nil, 0, 0, nil
}
