package sga_test

import (
	"bytes"
	"testing"

	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/sga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldCopy(t *testing.T) {
	m := newManager(t)
	cc := sga.NewCopyContext(m)
	defer cc.Release()
	assert.True(t, cc.ShouldCopy(make([]byte, testThreshold-1)))
	assert.False(t, cc.ShouldCopy(make([]byte, testThreshold)))
	assert.True(t, cc.ShouldCopy(nil))
}

func TestCopyAppendsAndTracksOffsets(t *testing.T) {
	m := newManager(t)
	cc := sga.NewCopyContext(m)
	defer cc.Release()

	e1, err := cc.Copy([]byte("alpha"))
	require.NoError(t, err)
	e2, err := cc.Copy([]byte("beta"))
	require.NoError(t, err)

	assert.Equal(t, sga.CopyEntry{Index: 0, Start: 0, Len: 5, TotalOffset: 0}, stripData(e1))
	assert.Equal(t, sga.CopyEntry{Index: 0, Start: 5, Len: 4, TotalOffset: 5}, stripData(e2))
	assert.Equal(t, []byte("alpha"), e1.Bytes())
	assert.Equal(t, []byte("beta"), e2.Bytes())
	assert.Equal(t, 9, cc.DataLen())
	assert.Equal(t, 1, cc.NumBuffers())
}

func TestCopyNeverSplitsValues(t *testing.T) {
	m := newManager(t)
	cc := sga.NewCopyContext(m)
	defer cc.Release()

	first := bytes.Repeat([]byte{'a'}, 5000)
	second := bytes.Repeat([]byte{'b'}, 5000)
	e1, err := cc.Copy(first)
	require.NoError(t, err)
	e2, err := cc.Copy(second)
	require.NoError(t, err)

	assert.Equal(t, 0, e1.Index)
	assert.Equal(t, 1, e2.Index)
	assert.Equal(t, 0, e2.Start)
	assert.Equal(t, 5000, e2.TotalOffset)
	assert.Equal(t, second, e2.Bytes())
	assert.Equal(t, 10000, cc.DataLen())
}

func TestCopyValueTooLarge(t *testing.T) {
	m := newManager(t)
	tx, _ := m.Region(pool.TxRegion)
	free := tx.FreeItems()

	cc := sga.NewCopyContext(m)
	_, err := cc.Copy(make([]byte, 9000))
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrValueTooLarge)
	assert.Equal(t, free, tx.FreeItems(), "rejected staging buffer must be returned")
	cc.Release()
}

func TestCopyExhaustion(t *testing.T) {
	opts := pool.DefaultOptions()
	opts.PageSize = pool.Page4K
	opts.TxItems, opts.TxItemLen = 1, 1024
	opts.CopyThreshold = 64
	m, err := pool.NewManager(opts)
	require.NoError(t, err)
	defer m.Close()

	cc := sga.NewCopyContext(m)
	_, err = cc.Copy(make([]byte, 1000))
	require.NoError(t, err)
	_, err = cc.Copy(make([]byte, 100))
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	cc.Release()
}

func stripData(e sga.CopyEntry) sga.CopyEntry {
	return sga.CopyEntry{Index: e.Index, Start: e.Start, Len: e.Len, TotalOffset: e.TotalOffset}
}
