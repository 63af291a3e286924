// File: internal/transport/loopback.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/eapache/queue"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/internal/concurrency"
	"github.com/momentics/hioload-sga/pool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// RxAllocator hands out receive items.
type RxAllocator interface {
	Allocate(regionID int) (*pool.Buffer, bool)
}

// Options configures a Loopback queue.
type Options struct {
	// Entries is the TX ring size, a power of two.
	Entries int
	// RxRegion is the region delivered frames are written into.
	RxRegion int

	Logger     log.Logger
	Registerer prometheus.Registerer
}

// Stats is a point-in-time copy of the queue counters.
type Stats struct {
	Posted     uint64
	Completed  uint64
	Doorbells  uint64
	Delivered  uint64
	Dropped    uint64
	Aborted    uint64
	LastDigest uint64
}

// Loopback is a single TX queue whose device side delivers every frame back
// as a received packet. It is driven by one worker; only the counters may be
// read from other goroutines.
type Loopback struct {
	ring     *concurrency.RingBuffer[Descriptor]
	segs     []api.Segment
	mask     uint64
	next     uint64 // next position to reserve
	device   uint64 // next position the device gathers
	frame    []byte
	done     *queue.Queue // completed ring positions, in order
	rx       *queue.Queue // delivered *pool.Metadata
	alloc    RxAllocator
	rxRegion int

	posted, completed, doorbells *atomic.Uint64
	delivered, dropped, digest   *atomic.Uint64
	aborted                      *atomic.Uint64

	metrics *metrics
	logger  log.Logger
}

// NewLoopback builds a queue with opts.Entries descriptor slots.
func NewLoopback(alloc RxAllocator, opts Options) (*Loopback, error) {
	ring, err := concurrency.NewRingBuffer[Descriptor](opts.Entries)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Loopback{
		ring:      ring,
		segs:      make([]api.Segment, opts.Entries),
		mask:      uint64(opts.Entries - 1),
		done:      queue.New(),
		rx:        queue.New(),
		alloc:     alloc,
		rxRegion:  opts.RxRegion,
		posted:    atomic.NewUint64(0),
		completed: atomic.NewUint64(0),
		doorbells: atomic.NewUint64(0),
		delivered: atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
		digest:    atomic.NewUint64(0),
		aborted:   atomic.NewUint64(0),
		metrics:   newMetrics(opts.Registerer),
		logger:    log.With(logger, "component", "loopback"),
	}, nil
}

// AvailableEntries returns free descriptor slots.
func (l *Loopback) AvailableEntries() int { return l.ring.Free() }

// Capacity returns the ring size.
func (l *Loopback) Capacity() int { return l.ring.Cap() }

// PostSegment writes one descriptor for seg. The queue owns seg's reference
// until its completion is polled.
func (l *Loopback) PostSegment(seg api.Segment) error {
	pos, ok := l.ring.Reserve(1)
	if !ok {
		return api.NewError(api.ErrCodeResourceExhausted, "tx ring full").WithContext("capacity", l.ring.Cap())
	}
	l.ring.Slot(pos).Fill(seg.RegionID(), seg.Index(), seg.Offset(), seg.Len())
	l.segs[pos&l.mask] = seg
	l.next = pos + 1
	l.posted.Inc()
	l.metrics.descriptors.Inc()
	return nil
}

// FinishBatch closes the frame made of the last n posted segments and
// publishes it to the device.
func (l *Loopback) FinishBatch(n int) error {
	if pending := l.ring.Pending(); n != pending {
		return api.NewError(api.ErrCodeInvalidArgument, "batch size does not match posted segments").
			WithContext("n", n).WithContext("pending", pending)
	}
	if n == 0 {
		return nil
	}
	last := l.ring.Slot(l.next - 1)
	last.SetFlags(last.Flags() | FlagEndOfPacket)
	l.ring.Commit()
	return nil
}

// Abort withdraws the last n posted segments of the open batch. Their ring
// slots become free again and the segments are released.
func (l *Loopback) Abort(n int) error {
	if err := l.ring.Unreserve(n); err != nil {
		return err
	}
	for pos := l.next - uint64(n); pos < l.next; pos++ {
		*l.ring.Slot(pos) = Descriptor{}
		l.segs[pos&l.mask].Release()
		l.segs[pos&l.mask] = nil
	}
	l.next -= uint64(n)
	if n > 0 {
		l.aborted.Add(uint64(n))
		l.metrics.frames.WithLabelValues("aborted").Inc()
		level.Debug(l.logger).Log("msg", "batch aborted", "segments", n)
	}
	return nil
}

// RingDoorbell runs the device side over every published descriptor.
func (l *Loopback) RingDoorbell() error {
	l.doorbells.Inc()
	l.metrics.doorbells.Inc()
	published := l.ring.Published()
	for ; l.device < published; l.device++ {
		d := l.ring.Slot(l.device)
		seg := l.segs[l.device&l.mask]
		l.frame = append(l.frame, seg.Bytes()[:d.Len()]...)
		l.done.Add(l.device)
		if d.Flags()&FlagEndOfPacket != 0 {
			l.deliver(l.frame)
			l.frame = l.frame[:0]
		}
	}
	return nil
}

func (l *Loopback) deliver(frame []byte) {
	b, ok := l.alloc.Allocate(l.rxRegion)
	if !ok {
		l.drop("rx region exhausted", len(frame))
		return
	}
	if len(frame) > b.Cap() {
		b.Release()
		l.drop("frame larger than rx item", len(frame))
		return
	}
	_, _ = b.Write(frame)
	md, err := b.Freeze(0, len(frame))
	if err != nil {
		l.drop(err.Error(), len(frame))
		return
	}
	l.digest.Store(xxhash.Sum64(frame))
	l.delivered.Inc()
	l.metrics.frames.WithLabelValues("delivered").Inc()
	l.metrics.frameBytes.Observe(float64(len(frame)))
	l.rx.Add(md)
}

func (l *Loopback) drop(reason string, size int) {
	l.dropped.Inc()
	l.metrics.frames.WithLabelValues("dropped").Inc()
	level.Warn(l.logger).Log("msg", "frame dropped", "reason", reason, "size", humanize.IBytes(uint64(size)))
}

// PollCompletions releases up to budget completed segments and returns how
// many slots were freed.
func (l *Loopback) PollCompletions(budget int) (int, error) {
	n := 0
	for n < budget && l.done.Length() > 0 {
		pos := l.done.Remove().(uint64)
		seg := l.segs[pos&l.mask]
		l.segs[pos&l.mask] = nil
		seg.Release()
		n++
	}
	if n > 0 {
		l.ring.Release(n)
		l.completed.Add(uint64(n))
		l.metrics.completions.Add(float64(n))
	}
	return n, nil
}

// Receive pops the oldest delivered frame. The caller owns the reference.
func (l *Loopback) Receive() (*pool.Metadata, bool) {
	if l.rx.Length() == 0 {
		return nil, false
	}
	return l.rx.Remove().(*pool.Metadata), true
}

// Stats snapshots the counters.
func (l *Loopback) Stats() Stats {
	return Stats{
		Posted:     l.posted.Load(),
		Completed:  l.completed.Load(),
		Doorbells:  l.doorbells.Load(),
		Delivered:  l.delivered.Load(),
		Dropped:    l.dropped.Load(),
		Aborted:    l.aborted.Load(),
		LastDigest: l.digest.Load(),
	}
}

// Close drops every segment still owned by the queue and every frame not
// yet received.
func (l *Loopback) Close() error {
	for i, seg := range l.segs {
		if seg != nil {
			seg.Release()
			l.segs[i] = nil
		}
	}
	for l.rx.Length() > 0 {
		l.rx.Remove().(*pool.Metadata).Release()
	}
	for l.done.Length() > 0 {
		l.done.Remove()
	}
	level.Debug(l.logger).Log("msg", "queue closed", "posted", l.posted.Load(), "completed", l.completed.Load())
	return nil
}
