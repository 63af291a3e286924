package facade_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/control"
	"github.com/momentics/hioload-sga/facade"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/protocol"
	"github.com/momentics/hioload-sga/sga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() control.Config {
	cfg := control.DefaultConfig()
	cfg.RxItems = 64
	cfg.TxItems = 64
	cfg.PageSize = 4 * datasize.KB
	cfg.QueueEntries = 64
	return cfg
}

func newSession(t *testing.T, cfg control.Config, opts ...facade.Option) *facade.Session {
	t.Helper()
	opts = append([]facade.Option{facade.WithLogWriter(io.Discard)}, opts...)
	s, err := facade.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// registered copies b into a TX item so the leaf built on it is zero-copy.
func registered(t *testing.T, s *facade.Session, b []byte) *sga.ByteString {
	t.Helper()
	buf, ok := s.Manager().Allocate(pool.TxRegion)
	require.True(t, ok)
	_, err := buf.Write(b)
	require.NoError(t, err)
	md, err := buf.Freeze(0, buf.Len())
	require.NoError(t, err)
	return sga.RefCountedBytes(md)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.QueueEntries = 3
	_, err := facade.New(cfg, facade.WithLogWriter(io.Discard))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	cfg = testConfig()
	cfg.LogLevel = "chatty"
	_, err = facade.New(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestSendDecodeEcho(t *testing.T) {
	s := newSession(t, testConfig())
	payload := bytes.Repeat([]byte("z"), 1024)

	msg := sga.NewSingle()
	msg.SetMessage(registered(t, s, payload))
	require.NoError(t, s.Send(msg, s.NewCopyContext(), 7, 9))
	sga.Release(msg)

	pkt, ok := s.Receive()
	require.True(t, ok)
	assert.Equal(t, protocol.FramingLen+protocol.EnvelopeLen+16+len(payload), pkt.Len())

	in, err := s.Decode(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), in.Timestamp)
	assert.Equal(t, uint64(9), in.FlowID)
	assert.Equal(t, protocol.SingleEnvelope(), in.Envelope)
	got := in.Object.(*sga.Single).Message()
	assert.Equal(t, payload, got.Bytes())
	assert.True(t, got.IsZeroCopy())
	in.Release()

	require.NoError(t, s.Echo(pkt))
	echoed, ok := s.Receive()
	require.True(t, ok)
	out, err := s.Decode(echoed)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), out.Timestamp)
	assert.Equal(t, uint64(9), out.FlowID)
	assert.Equal(t, payload, out.Object.(*sga.Single).Message().Bytes())
	out.Release()
	echoed.Release()

	_, ok = s.Receive()
	assert.False(t, ok)
	assert.Equal(t, uint64(2), s.Queue().Stats().Delivered)
	assert.Equal(t, 0, s.Manager().Outstanding())
}

func TestEchoListKeepsShape(t *testing.T) {
	s := newSession(t, testConfig())
	cc := s.NewCopyContext()
	list := sga.NewList(sga.BytesShape(), 3)
	small, err := s.NewByteString(cc, []byte("hi"))
	require.NoError(t, err)
	require.NoError(t, list.Append(small))
	require.NoError(t, list.Append(registered(t, s, bytes.Repeat([]byte{0xAB}, 2048))))
	empty, err := s.NewByteString(cc, nil)
	require.NoError(t, err)
	require.NoError(t, list.Append(empty))

	require.NoError(t, s.Send(list, cc, 1, 2))
	sga.Release(list)

	pkt, ok := s.Receive()
	require.True(t, ok)
	in, err := s.Decode(pkt)
	require.NoError(t, err)
	defer in.Release()
	assert.Equal(t, protocol.ListEnvelope(3), in.Envelope)

	require.NoError(t, s.Echo(pkt))
	echoed, ok := s.Receive()
	require.True(t, ok)
	defer echoed.Release()
	out, err := s.Decode(echoed)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, in.Envelope, out.Envelope)
	assert.True(t, sga.Equal(in.Object, out.Object))
	l := out.Object.(*sga.List)
	require.Equal(t, 3, l.Len())
	assert.Equal(t, []byte("hi"), l.At(0).(*sga.ByteString).Bytes())
	assert.Equal(t, 2048, l.At(1).(*sga.ByteString).Len())
	assert.Equal(t, 0, l.At(2).(*sga.ByteString).Len())
}

func TestEchoRejectsCorruptPacket(t *testing.T) {
	s := newSession(t, testConfig())
	require.NoError(t, s.SendSlice([]byte{0, 2, 0, 0}, 0, 0))
	pkt, ok := s.Receive()
	require.True(t, ok)

	err := s.Echo(pkt)
	assert.True(t, api.IsWireCorruption(err))
	_, ok = s.Receive()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Manager().Outstanding())
}

func TestDecodeShortPacket(t *testing.T) {
	s := newSession(t, testConfig())
	require.NoError(t, s.SendSlice(nil, 0, 0))
	pkt, ok := s.Receive()
	require.True(t, ok)
	defer pkt.Release()
	_, err := s.Decode(pkt)
	assert.True(t, api.IsWireCorruption(err))
}

func TestSendWithoutFraming(t *testing.T) {
	cfg := testConfig()
	cfg.Framing = false
	s := newSession(t, cfg)

	cc := s.NewCopyContext()
	leaf, err := s.NewByteString(cc, []byte("tiny"))
	require.NoError(t, err)
	msg := sga.NewSingle()
	msg.SetMessage(leaf)
	require.NoError(t, s.Send(msg, cc, 5, 5))

	pkt, ok := s.Receive()
	require.True(t, ok)
	defer pkt.Release()
	assert.Equal(t, []byte{0, 0, 0, 0}, pkt.Bytes()[:protocol.EnvelopeLen])
	in, err := s.Decode(pkt)
	require.NoError(t, err)
	defer in.Release()
	assert.Zero(t, in.Timestamp)
	assert.Equal(t, []byte("tiny"), in.Object.(*sga.Single).Message().Bytes())
}

func TestSendRejectsTree(t *testing.T) {
	s := newSession(t, testConfig())
	cc := s.NewCopyContext()
	leaf, err := s.NewByteString(cc, []byte("leaf"))
	require.NoError(t, err)
	tree, err := sga.BuildTree(1, []*sga.ByteString{leaf, nil})
	require.NoError(t, err)

	err = s.Send(tree, cc, 0, 0)
	assert.ErrorIs(t, err, api.ErrNotSupported)
	sga.Release(tree)
	assert.Equal(t, 0, s.Manager().Outstanding(), "copy context released on failure")
	assert.Zero(t, s.Queue().Stats().Posted)
}

func TestReconfigure(t *testing.T) {
	var logs bytes.Buffer
	s := newSession(t, testConfig(), facade.WithLogWriter(&logs))

	s.Reconfigure(map[string]any{"completion-budget": 8})
	assert.Equal(t, 8, s.Poster().CompletionBudget())

	s.Reconfigure(map[string]any{"rx-items": 5})
	assert.Contains(t, logs.String(), "key is fixed for the session lifetime")
	v, ok := s.Store().Get("rx-items")
	assert.True(t, ok)
	assert.Equal(t, 5, v, "the store records the request")
	assert.Equal(t, 64, s.Config().RxItems)
}

func TestProbesAndMetrics(t *testing.T) {
	mr := control.NewMetricsRegistry()
	s := newSession(t, testConfig(), facade.WithMetrics(mr))
	require.NoError(t, s.SendSlice([]byte("ping"), 1, 1))
	pkt, ok := s.Receive()
	require.True(t, ok)
	pkt.Release()

	state := s.Probes().DumpState()
	assert.Equal(t, 0, state["pool.outstanding"])
	rx := state["pool.rx"].(map[string]any)
	assert.Equal(t, 64, rx["items"])
	assert.Equal(t, 64, rx["free"])
	assert.Equal(t, "8.0 KiB", rx["item_size"])
	assert.Contains(t, state, "queue")
	assert.Contains(t, state, "platform.cpus")
	assert.Equal(t, 64, state["config"].(map[string]any)["queue-entries"])

	snap, err := mr.GetSnapshot("hioload_")
	require.NoError(t, err)
	assert.Equal(t, float64(1), snap["hioload_poster_messages_total"])
	assert.Equal(t, float64(1), snap["hioload_queue_doorbells_total"])
}

func TestCloseTwice(t *testing.T) {
	s, err := facade.New(testConfig(), facade.WithLogWriter(io.Discard))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), api.ErrManagerClosed)
}
