package transport_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/fake"
	itransport "github.com/momentics/hioload-sga/internal/transport"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/protocol"
	"github.com/momentics/hioload-sga/sga"
	"github.com/momentics/hioload-sga/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threshold = 64

func newManager(t *testing.T) *pool.Manager {
	t.Helper()
	opts := pool.DefaultOptions()
	opts.PageSize = pool.Page4K
	opts.RxItems, opts.TxItems = 32, 32
	opts.RxItemLen, opts.TxItemLen = 4096, 4096
	opts.CopyThreshold = threshold
	m, err := pool.NewManager(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// payload returns n bytes of registered memory that stay allocated for the test.
func payload(t *testing.T, m *pool.Manager, n int) []byte {
	t.Helper()
	id, err := m.AddRegion(4096, 2)
	require.NoError(t, err)
	b, ok := m.Allocate(id)
	require.True(t, ok)
	_, err = b.Write(bytes.Repeat([]byte{'z'}, n))
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b.Bytes()
}

// mixedList builds [copied "small", zero-copy registered 200 bytes].
func mixedList(t *testing.T, m *pool.Manager) (*sga.List, *sga.CopyContext) {
	t.Helper()
	cc := sga.NewCopyContext(m)
	l := sga.NewList(sga.BytesShape(), 2)
	for _, p := range [][]byte{[]byte("small"), payload(t, m, 200)} {
		bs, err := sga.NewByteString(m, cc, p)
		require.NoError(t, err)
		require.NoError(t, l.Append(bs))
	}
	return l, cc
}

func newPoster(t *testing.T, m *pool.Manager, q transport.Queue, framing bool) *transport.Poster {
	t.Helper()
	p, err := transport.NewPoster(m, []transport.Queue{q}, transport.Options{Framing: framing})
	require.NoError(t, err)
	return p
}

func TestNewPosterQueueCount(t *testing.T) {
	m := newManager(t)
	_, err := transport.NewPoster(m, nil, transport.Options{})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = transport.NewPoster(m, []transport.Queue{fake.NewQueue(8), fake.NewQueue(8)}, transport.Options{})
	assert.ErrorIs(t, err, api.ErrNotSupported)
}

func TestPostFramesHeaderCopiesThenZeroCopy(t *testing.T) {
	m := newManager(t)
	l, cc := mixedList(t, m)
	form, err := sga.Serialize(l, cc)
	require.NoError(t, err)
	flat := form.Flatten()

	q := fake.NewQueue(16)
	p := newPoster(t, m, q, true)
	msg := transport.NewMessage(form, 1234, 99)
	assert.Equal(t, 3, transport.RequiredEntries(msg, true))
	require.NoError(t, p.Post(msg))

	frames := q.Frames()
	require.Len(t, frames, 1)
	require.Len(t, frames[0], 3)
	assert.Equal(t, pool.TxRegion, frames[0][0].Region)
	assert.Equal(t, pool.TxRegion, frames[0][1].Region)
	assert.Greater(t, frames[0][2].Region, pool.TxRegion, "zero-copy payload posted from its own region")

	wire := q.Frame(0)
	fb, err := protocol.Framing(wire)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), fb.Timestamp())
	assert.Equal(t, uint64(99), fb.FlowID())
	assert.Equal(t, flat, wire[protocol.FramingLen:])

	assert.Equal(t, 0, q.Inflight(), "completions reaped after the doorbell")
	assert.Equal(t, 1, q.Doorbells())
	sga.Release(l)
	assert.Equal(t, 1, m.Outstanding(), "only the payload item is still held")
}

func TestPostViewInsideHeader(t *testing.T) {
	m := newManager(t)
	l, cc := mixedList(t, m)
	form, err := sga.Serialize(l, cc)
	require.NoError(t, err)
	flat := form.Flatten()
	defer sga.Release(l)

	msg := transport.NewMessage(form, 1, 2)
	require.NoError(t, msg.Trim(5))
	require.NoError(t, msg.Adjust(3))
	assert.Equal(t, len(flat)-8, msg.Len())

	q := fake.NewQueue(16)
	require.NoError(t, newPoster(t, m, q, true).Post(msg))
	assert.Equal(t, flat[5:len(flat)-3], q.Frame(0), "no framing once the view has moved")
}

func TestPostViewSkipsSegments(t *testing.T) {
	m := newManager(t)
	l, cc := mixedList(t, m)
	form, err := sga.Serialize(l, cc)
	require.NoError(t, err)
	flat := form.Flatten()
	defer sga.Release(l)

	msg := transport.NewMessage(form, 0, 0)
	skip := form.HeaderLen() + form.CopyLen() + 10
	require.NoError(t, msg.Trim(skip))
	assert.Equal(t, 1, transport.RequiredEntries(msg, true))

	q := fake.NewQueue(16)
	require.NoError(t, newPoster(t, m, q, true).Post(msg))
	frames := q.Frames()
	require.Len(t, frames[0], 1)
	assert.Equal(t, 10, frames[0][0].Offset, "payload posted as a narrowed sub-range")
	assert.Equal(t, flat[skip:], q.Frame(0))

	assert.ErrorIs(t, transport.NewMessage(&sga.SerializedForm{}, 0, 0).Trim(1), api.ErrInvalidArgument)
}

func TestPostRejectsOversizedFrame(t *testing.T) {
	m := newManager(t)
	l, cc := mixedList(t, m)
	form, err := sga.Serialize(l, cc)
	require.NoError(t, err)
	sga.Release(l)

	q := fake.NewQueue(2)
	err = newPoster(t, m, q, false).Post(transport.NewMessage(form, 0, 0))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Empty(t, q.Frames())
	assert.Equal(t, 1, m.Outstanding(), "message references dropped on rejection")
}

func TestPostSpinsUntilEntriesFree(t *testing.T) {
	m := newManager(t)
	q := fake.NewQueue(4)
	p, err := transport.NewPoster(m, []transport.Queue{q}, transport.Options{CompletionBudget: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		l, cc := mixedList(t, m)
		form, err := sga.Serialize(l, cc)
		require.NoError(t, err)
		require.NoError(t, p.Post(transport.NewMessage(form, 0, 0)))
		sga.Release(l)
	}
	assert.Len(t, q.Frames(), 3)
	assert.Greater(t, q.Polls(), 3, "later posts polled while the ring was full")
	q.Close()
}

func TestPostSegmentFailureReleases(t *testing.T) {
	m := newManager(t)
	l, cc := mixedList(t, m)
	form, err := sga.Serialize(l, cc)
	require.NoError(t, err)
	sga.Release(l)

	q := fake.NewQueue(8)
	boom := errors.New("device gone")
	q.SetPostError(boom)
	err = newPoster(t, m, q, true).Post(transport.NewMessage(form, 0, 0))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Outstanding(), "only the payload item remains")
}

func TestPostAbortsPartialFrame(t *testing.T) {
	m := newManager(t)
	q := fake.NewQueue(8)
	p := newPoster(t, m, q, true)
	boom := errors.New("link flap")
	q.FailNthPost(2, boom)

	l, cc := mixedList(t, m)
	form, err := sga.Serialize(l, cc)
	require.NoError(t, err)
	sga.Release(l)
	err = p.Post(transport.NewMessage(form, 0, 0))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, q.Aborted(), "the header posted before the failure is withdrawn")
	assert.Equal(t, 0, q.Inflight())
	assert.Empty(t, q.Frames())
	assert.Equal(t, 1, m.Outstanding(), "only the payload item remains")

	l, cc = mixedList(t, m)
	form, err = sga.Serialize(l, cc)
	require.NoError(t, err)
	flat := form.Flatten()
	sga.Release(l)
	require.NoError(t, p.Post(transport.NewMessage(form, 0, 0)))
	require.Len(t, q.Frames(), 1)
	assert.Len(t, q.Frames()[0], 3)
	assert.Equal(t, flat, q.Frame(0)[protocol.FramingLen:])
	assert.Equal(t, 0, q.Inflight())
	assert.Equal(t, 2, m.Outstanding(), "both payload items remain")
}

func TestPostThroughLoopback(t *testing.T) {
	m := newManager(t)
	q, err := itransport.NewLoopback(m, itransport.Options{Entries: 16, RxRegion: pool.RxRegion})
	require.NoError(t, err)
	defer q.Close()
	p := newPoster(t, m, q, true)

	cc := sga.NewCopyContext(m)
	s := sga.NewSingle()
	leaf, err := sga.NewByteString(m, cc, payload(t, m, 300))
	require.NoError(t, err)
	s.SetMessage(leaf)
	form, err := sga.Serialize(s, cc)
	require.NoError(t, err)

	env, err := protocol.AppendEnvelope(nil, protocol.SingleEnvelope())
	require.NoError(t, err)
	require.NoError(t, p.Post(transport.NewMessage(form, 5, 6).WithPrefix(env)))

	pkt, ok := q.Receive()
	require.True(t, ok)
	defer pkt.Release()
	fb, err := protocol.Framing(pkt.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), fb.FlowID())
	got, err := protocol.DecodeEnvelope(pkt.Bytes()[protocol.FramingLen:])
	require.NoError(t, err)
	assert.Equal(t, protocol.SingleEnvelope(), got)

	obj, err := sga.Deserialize(got.Shape(), pkt, protocol.FramingLen+protocol.EnvelopeLen)
	require.NoError(t, err)
	assert.True(t, sga.Equal(s, obj))
	sga.Release(obj)
	sga.Release(s)

	require.NoError(t, p.PostSlice([]byte("ping"), 1, 2))
	raw, ok := q.Receive()
	require.True(t, ok)
	assert.Equal(t, []byte("ping"), raw.Bytes()[protocol.FramingLen:])
	raw.Release()
}
