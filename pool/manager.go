// File: pool/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Manager owns the registered regions of one datapath session and the three
// page tables used to resolve arbitrary pointers back to a region item.

package pool

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/momentics/hioload-sga/api"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Well-known region ids.
const (
	RxRegion        = 0
	TxRegion        = 1
	firstUserRegion = 2
)

// Options configures a Manager.
type Options struct {
	RxItemLen int
	RxItems   int
	TxItemLen int
	TxItems   int

	// PageSize is the preferred page granularity (Page4K, Page2M or Page1G).
	// Hugepage requests fall back to 4KiB pages when the host has none.
	PageSize int

	// LockMemory pins region memory with mlock as the registration step.
	LockMemory bool

	// CopyThreshold is the payload size below which values are copied.
	CopyThreshold int

	Logger     log.Logger
	Registerer prometheus.Registerer
}

// DefaultOptions returns sane defaults for a single-queue worker.
func DefaultOptions() Options {
	return Options{
		RxItemLen:     8192,
		RxItems:       1024,
		TxItemLen:     8192,
		TxItems:       1024,
		PageSize:      Page2M,
		CopyThreshold: 512,
	}
}

// Manager is the buffer and mempool manager. It is not safe for concurrent use.
type Manager struct {
	opts    Options
	regions map[int]*Region
	nextID  int
	tables  [len(lookupOrder)]*pageTable

	outstanding int
	closed      bool
	tornDown    bool

	logger  log.Logger
	metrics *Metrics
}

// NewManager maps and registers the RX and TX regions.
func NewManager(opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.PageSize == 0 {
		opts.PageSize = Page4K
	}
	m := &Manager{
		opts:    opts,
		regions: make(map[int]*Region),
		nextID:  firstUserRegion,
		logger:  log.With(opts.Logger, "component", "pool"),
		metrics: NewMetrics(opts.Registerer),
	}
	for i, ps := range lookupOrder {
		m.tables[i] = newPageTable(ps)
	}
	if err := m.register(RxRegion, opts.RxItemLen, opts.RxItems); err != nil {
		return nil, errors.Wrap(err, "rx region")
	}
	if err := m.register(TxRegion, opts.TxItemLen, opts.TxItems); err != nil {
		m.teardown()
		return nil, errors.Wrap(err, "tx region")
	}
	return m, nil
}

// AddRegion creates a user region on demand and returns its id.
func (m *Manager) AddRegion(itemLen, numItems int) (int, error) {
	if m.closed {
		return 0, api.ErrManagerClosed
	}
	id := m.nextID
	if err := m.register(id, itemLen, numItems); err != nil {
		return 0, errors.Wrapf(err, "user region %d", id)
	}
	m.nextID++
	return id, nil
}

func (m *Manager) register(id, itemLen, numItems int) error {
	r, err := newRegion(m, id, itemLen, numItems, m.opts.PageSize, m.opts.LockMemory)
	if err != nil {
		level.Error(m.logger).Log("msg", "region registration failed", "region", id, "err", err)
		return err
	}
	if r.pageSize != m.opts.PageSize {
		level.Warn(m.logger).Log("msg", "hugepages unavailable, using regular pages",
			"region", id, "wanted", humanize.IBytes(uint64(m.opts.PageSize)))
	}
	m.regions[id] = r
	m.table(r.pageSize).insert(r)
	m.metrics.freeItems.WithLabelValues(strconv.Itoa(id)).Set(float64(numItems))
	level.Info(m.logger).Log("msg", "region registered", "region", id, "items", numItems,
		"item_len", itemLen, "size", humanize.IBytes(uint64(itemLen*numItems)),
		"page", humanize.IBytes(uint64(r.pageSize)), "locked", r.locked)
	return nil
}

func (m *Manager) table(pageSize int) *pageTable {
	for i, ps := range lookupOrder {
		if ps == pageSize {
			return m.tables[i]
		}
	}
	panic("pool: unsupported page size " + strconv.Itoa(pageSize))
}

// Region returns the region with the given id.
func (m *Manager) Region(id int) (*Region, bool) {
	r, ok := m.regions[id]
	return r, ok
}

// CopyingThreshold returns the size below which payloads are copied.
func (m *Manager) CopyingThreshold() int { return m.opts.CopyThreshold }

// Outstanding returns how many items across all regions are not free.
func (m *Manager) Outstanding() int { return m.outstanding }

// Allocate pulls one free item from the region. It reports false when the
// region is exhausted or unknown.
func (m *Manager) Allocate(regionID int) (*Buffer, bool) {
	if m.closed {
		return nil, false
	}
	r, ok := m.regions[regionID]
	if !ok {
		return nil, false
	}
	label := strconv.Itoa(regionID)
	idx, ok := r.take()
	if !ok {
		m.metrics.exhausted.WithLabelValues(label).Inc()
		return nil, false
	}
	m.outstanding++
	m.metrics.allocations.WithLabelValues(label).Inc()
	m.metrics.freeItems.WithLabelValues(label).Dec()
	return &Buffer{r: r, idx: idx, data: r.item(idx)}, true
}

// AllocateTxBuffer allocates from the TX region and reports the buffer capacity.
func (m *Manager) AllocateTxBuffer() (*Buffer, int, bool) {
	b, ok := m.Allocate(TxRegion)
	if !ok {
		return nil, 0, false
	}
	return b, b.Cap(), true
}

// Resolve maps an arbitrary byte slice back to the registered item holding it.
// Tables are checked 2MiB first, then 4KiB, then 1GiB; the first hit wins.
// It reports false for memory outside every region, for slices crossing the
// end of their item and for items that are currently free.
func (m *Manager) Resolve(b []byte) (*Metadata, bool) {
	if m.closed || len(b) == 0 {
		return nil, false
	}
	addr := addrOf(b)
	for _, t := range m.tables {
		id, ok := t.lookup(addr)
		if !ok {
			continue
		}
		md, ok := m.resolveIn(m.regions[id], addr, len(b))
		if ok {
			m.metrics.resolves.WithLabelValues("hit").Inc()
		} else {
			m.metrics.resolves.WithLabelValues("miss").Inc()
		}
		return md, ok
	}
	m.metrics.resolves.WithLabelValues("miss").Inc()
	return nil, false
}

func (m *Manager) resolveIn(r *Region, addr uintptr, n int) (*Metadata, bool) {
	if r == nil || !r.contains(addr) {
		return nil, false
	}
	idx := r.indexOf(addr)
	off := int(addr - r.itemBase(idx))
	if off+n > r.itemLen || r.refcnt[idx] == 0 {
		return nil, false
	}
	r.incRef(idx)
	return &Metadata{r: r, idx: idx, off: off, n: n}, true
}

func (m *Manager) itemReturned(r *Region) {
	m.outstanding--
	m.metrics.freeItems.WithLabelValues(strconv.Itoa(r.id)).Inc()
	if m.closed && m.outstanding == 0 {
		m.teardown()
	}
}

// Close deregisters all regions. When handles are still outstanding the
// memory stays mapped until the last of them is released.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.outstanding > 0 {
		level.Info(m.logger).Log("msg", "deferring region teardown", "outstanding", m.outstanding)
		return nil
	}
	return m.teardown()
}

func (m *Manager) teardown() error {
	if m.tornDown {
		return nil
	}
	m.tornDown = true
	var first error
	for id, r := range m.regions {
		m.table(r.pageSize).remove(r)
		if err := r.teardown(); err != nil {
			level.Warn(m.logger).Log("msg", "region deregistration failed", "region", id, "err", err)
			if first == nil {
				first = api.NewError(api.ErrCodeRegistration, "region deregistration failed").
					WithCause(err).WithContext("region", id)
			}
		}
	}
	level.Info(m.logger).Log("msg", "regions torn down", "count", len(m.regions))
	return first
}
