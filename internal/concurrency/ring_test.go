package concurrency

import (
	"runtime"
	"testing"

	"github.com/momentics/hioload-sga/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -4, 3, 100} {
		_, err := NewRingBuffer[int](size)
		assert.ErrorIs(t, err, api.ErrInvalidArgument, "size %d", size)
	}
}

func TestRingBufferReserveCommitRelease(t *testing.T) {
	r, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Free())

	pos, ok := r.Reserve(3)
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		*r.Slot(pos + uint64(i)) = i + 10
	}
	assert.Equal(t, 3, r.Pending())
	assert.Equal(t, 0, r.Available(), "nothing visible before commit")

	r.Commit()
	assert.Equal(t, 0, r.Pending())
	assert.Equal(t, 3, r.Available())
	assert.Equal(t, 1, r.Free())

	_, ok = r.Reserve(2)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Free(), "failed reserve has no side effects")

	head := r.Head()
	assert.Equal(t, 10, *r.Slot(head))
	r.Release(2)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 3, r.Free())

	pos, ok = r.Reserve(3)
	require.True(t, ok)
	assert.Equal(t, uint64(3), pos, "positions keep increasing across wraps")
}

func TestRingBufferUnreserve(t *testing.T) {
	r, err := NewRingBuffer[int](4)
	require.NoError(t, err)
	pos, ok := r.Reserve(3)
	require.True(t, ok)

	assert.ErrorIs(t, r.Unreserve(4), api.ErrInvalidArgument)
	assert.ErrorIs(t, r.Unreserve(-1), api.ErrInvalidArgument)
	require.NoError(t, r.Unreserve(2))
	assert.Equal(t, 1, r.Pending())
	assert.Equal(t, 3, r.Free())

	next, ok := r.Reserve(1)
	require.True(t, ok)
	assert.Equal(t, pos+1, next, "withdrawn slots are handed out again")
	r.Commit()
	assert.Equal(t, 2, r.Available())
}

func TestRingBufferSPSC(t *testing.T) {
	r, err := NewRingBuffer[uint64](64)
	require.NoError(t, err)
	const total = 100000

	done := make(chan uint64)
	go func() {
		var sum uint64
		seen := uint64(0)
		for seen < total {
			n := r.Available()
			if n == 0 {
				runtime.Gosched()
				continue
			}
			head := r.Head()
			for i := 0; i < n; i++ {
				v := *r.Slot(head + uint64(i))
				if v != seen {
					panic("out of order")
				}
				sum += v
				seen++
			}
			r.Release(n)
		}
		done <- sum
	}()

	for i := uint64(0); i < total; {
		pos, ok := r.Reserve(1)
		if !ok {
			runtime.Gosched()
			continue
		}
		*r.Slot(pos) = i
		r.Commit()
		i++
	}
	assert.Equal(t, uint64(total*(total-1)/2), <-done)
}
