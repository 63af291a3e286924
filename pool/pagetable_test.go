package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveChecksGranularitiesInOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.PageSize = Page4K
	opts.RxItems, opts.TxItems = 4, 4
	opts.RxItemLen, opts.TxItemLen = 2048, 2048
	m, err := NewManager(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	b, ok := m.Allocate(TxRegion)
	require.True(t, ok)
	defer b.Release()
	addr := addrOf(b.Tail())
	t2m, t4k, t1g := m.table(Page2M), m.table(Page4K), m.table(Page1G)

	// The 2MiB entry is consulted before a conflicting 4KiB one.
	t2m.pages[alignDown(addr, Page2M)] = TxRegion
	t4k.pages[alignDown(addr, Page4K)] = RxRegion
	md, ok := m.Resolve(b.Tail()[:8])
	require.True(t, ok)
	assert.Equal(t, TxRegion, md.RegionID())
	md.Release()

	// The first hit wins even when its region does not hold the address.
	t2m.pages[alignDown(addr, Page2M)] = RxRegion
	t4k.pages[alignDown(addr, Page4K)] = TxRegion
	_, ok = m.Resolve(b.Tail()[:8])
	assert.False(t, ok)

	// Without a 2MiB entry the 4KiB table is next, ahead of 1GiB.
	delete(t2m.pages, alignDown(addr, Page2M))
	t1g.pages[alignDown(addr, Page1G)] = RxRegion
	md, ok = m.Resolve(b.Tail()[:8])
	require.True(t, ok)
	assert.Equal(t, TxRegion, md.RegionID())
	md.Release()
	delete(t1g.pages, alignDown(addr, Page1G))
}

func TestPageTableRemoveKeepsForeignEntries(t *testing.T) {
	pt := newPageTable(Page4K)
	r := &Region{id: 3, base: 0x1000, mem: make([]byte, 2*Page4K), pageSize: Page4K}
	pt.insert(r)
	pt.pages[0x2000] = 7
	pt.remove(r)
	_, ok := pt.lookup(0x1234)
	assert.False(t, ok)
	id, ok := pt.lookup(0x2abc)
	require.True(t, ok)
	assert.Equal(t, 7, id)
}
