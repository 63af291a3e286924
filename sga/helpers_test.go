package sga_test

import (
	"testing"

	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/sga"
	"github.com/stretchr/testify/require"
)

const testThreshold = 128

func newManager(t *testing.T) *pool.Manager {
	t.Helper()
	opts := pool.DefaultOptions()
	opts.PageSize = pool.Page4K
	opts.RxItems, opts.TxItems = 64, 64
	opts.RxItemLen, opts.TxItemLen = 8192, 8192
	opts.CopyThreshold = testThreshold
	m, err := pool.NewManager(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// arena returns registered memory filled with a byte pattern. It stays
// allocated for the whole test.
func arena(t *testing.T, m *pool.Manager) []byte {
	t.Helper()
	id, err := m.AddRegion(8192, 4)
	require.NoError(t, err)
	b, ok := m.Allocate(id)
	require.True(t, ok)
	for i := 0; i < b.Cap(); i++ {
		_, _ = b.Write([]byte{byte(i*7 + 3)})
	}
	t.Cleanup(b.Release)
	return b.Bytes()
}

// receive places the flattened form offset bytes into a fresh RX item.
func receive(t *testing.T, m *pool.Manager, form *sga.SerializedForm, offset int) *pool.Metadata {
	t.Helper()
	b, ok := m.Allocate(pool.RxRegion)
	require.True(t, ok)
	_, err := b.Write(make([]byte, offset))
	require.NoError(t, err)
	_, err = b.Write(form.Flatten())
	require.NoError(t, err)
	pkt, err := b.Freeze(0, b.Len())
	require.NoError(t, err)
	return pkt
}

// roundTrip serializes o, decodes it from a received packet and releases
// every intermediate reference.
func roundTrip(t *testing.T, m *pool.Manager, o sga.Object, cc *sga.CopyContext) sga.Object {
	t.Helper()
	form, err := sga.Serialize(o, cc)
	require.NoError(t, err)
	pkt := receive(t, m, form, 4)
	form.Release()
	got, err := sga.Deserialize(o.Shape(), pkt, 4)
	require.NoError(t, err)
	pkt.Release()
	return got
}

func leaf(t *testing.T, m *pool.Manager, cc *sga.CopyContext, b []byte) *sga.ByteString {
	t.Helper()
	bs, err := sga.NewByteString(m, cc, b)
	require.NoError(t, err)
	return bs
}
