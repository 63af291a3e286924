// File: transport/poster.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/protocol"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCompletionBudget is the number of completions reaped after each post.
const DefaultCompletionBudget = 32

// Options configures a Poster.
type Options struct {
	// Framing prepends the 32-byte timestamp/flow-id block to every frame
	// whose view starts at byte 0.
	Framing bool

	CompletionBudget int

	Logger     log.Logger
	Registerer prometheus.Registerer
}

// Poster posts messages onto a single queue. It is not safe for concurrent
// use; each worker owns its own Poster and queue.
type Poster struct {
	alloc   HeaderAllocator
	q       Queue
	framing bool
	budget  int
	logger  log.Logger
	metrics *metrics
}

// NewPoster binds a poster to exactly one queue.
func NewPoster(alloc HeaderAllocator, queues []Queue, opts Options) (*Poster, error) {
	switch {
	case len(queues) == 0:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "poster needs a queue")
	case len(queues) > 1:
		return nil, api.NewError(api.ErrCodeNotSupported, "one queue per poster").
			WithContext("queues", len(queues))
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	budget := opts.CompletionBudget
	if budget <= 0 {
		budget = DefaultCompletionBudget
	}
	return &Poster{
		alloc:   alloc,
		q:       queues[0],
		framing: opts.Framing,
		budget:  budget,
		logger:  log.With(logger, "component", "poster"),
		metrics: newMetrics(opts.Registerer),
	}, nil
}

// Queue returns the queue the poster drives.
func (p *Poster) Queue() Queue { return p.q }

// SetCompletionBudget changes how many completions are reaped per poll.
// Non-positive values restore the default. Call it from the posting worker.
func (p *Poster) SetCompletionBudget(n int) {
	if n <= 0 {
		n = DefaultCompletionBudget
	}
	p.budget = n
}

// CompletionBudget returns the current budget.
func (p *Poster) CompletionBudget() int { return p.budget }

// Post transmits the viewed part of msg as one frame. On return the
// message's segment references have been handed to the queue or dropped,
// whether or not the post succeeded.
func (p *Poster) Post(msg *Message) error {
	defer msg.Form.Release()

	required := RequiredEntries(msg, p.framing)
	if required == 0 {
		p.metrics.messages.WithLabelValues("empty").Inc()
		return nil
	}
	if err := p.reserve(required); err != nil {
		p.metrics.messages.WithLabelValues("rejected").Inc()
		return err
	}

	posted := 0
	hdr, err := p.header(msg)
	if err != nil {
		p.metrics.messages.WithLabelValues("rejected").Inc()
		return err
	}
	if hdr != nil {
		if err := p.post(hdr, "header"); err != nil {
			return p.abort(posted, err)
		}
		posted++
	}

	pos := msg.HeaderLen()
	for _, md := range msg.Form.CopyBuffers {
		if ok, err := p.postRange(msg, md, pos, "copy"); err != nil {
			return p.abort(posted, err)
		} else if ok {
			posted++
		}
		pos += md.Len()
	}
	for _, md := range msg.Form.ZeroCopy {
		if ok, err := p.postRange(msg, md, pos, "zero_copy"); err != nil {
			return p.abort(posted, err)
		} else if ok {
			posted++
		}
		pos += md.Len()
	}
	if err := p.q.FinishBatch(posted); err != nil {
		return p.abort(posted, errors.Wrap(err, "finish batch"))
	}
	if err := p.kick(); err != nil {
		return err
	}
	p.metrics.messages.WithLabelValues("posted").Inc()
	return nil
}

// PostSlice copies payload into one TX buffer behind the framing block and
// transmits it.
func (p *Poster) PostSlice(payload []byte, timestamp, flowID uint64) error {
	if err := p.reserve(1); err != nil {
		return err
	}
	b, capacity, ok := p.alloc.AllocateTxBuffer()
	if !ok {
		return errors.Wrap(api.ErrResourceExhausted, "allocate tx buffer")
	}
	need := len(payload)
	if p.framing {
		need += protocol.FramingLen
	}
	if need > capacity {
		b.Release()
		return api.NewError(api.ErrCodeInvalidArgument, "payload larger than tx buffer").
			WithContext("len", need).WithContext("capacity", capacity).WithCause(api.ErrValueTooLarge)
	}
	if p.framing {
		protocol.PutFraming(b.Tail()[:protocol.FramingLen], timestamp, flowID)
		_ = b.Advance(protocol.FramingLen)
	}
	if _, err := b.Write(payload); err != nil {
		b.Release()
		return errors.Wrap(err, "write payload")
	}
	md, err := b.Freeze(0, b.Len())
	if err != nil {
		return errors.Wrap(err, "freeze payload")
	}
	if err := p.post(md, "slice"); err != nil {
		return err
	}
	if err := p.q.FinishBatch(1); err != nil {
		return p.abort(1, errors.Wrap(err, "finish batch"))
	}
	if err := p.kick(); err != nil {
		return err
	}
	p.metrics.messages.WithLabelValues("posted").Inc()
	return nil
}

// reserve spins until n entries are free, reaping completions meanwhile.
// A frame that can never fit is refused up front.
func (p *Poster) reserve(n int) error {
	if capacity := p.q.Capacity(); n > capacity {
		level.Warn(p.logger).Log("msg", "frame needs more entries than the queue has", "required", n, "capacity", capacity)
		return api.NewError(api.ErrCodeInvalidArgument, "frame exceeds queue capacity").
			WithContext("required", n).WithContext("capacity", capacity)
	}
	for p.q.AvailableEntries() < n {
		p.metrics.spins.Inc()
		if _, err := p.q.PollCompletions(p.budget); err != nil {
			return errors.Wrap(err, "poll completions")
		}
	}
	return nil
}

// header builds the header segment: the framing block when the view starts
// at 0, then the part of prefix+header that lies in the view. It returns nil
// when nothing of the header is sent.
func (p *Poster) header(msg *Message) (*pool.Metadata, error) {
	withFraming := p.framing && msg.Start() == 0
	off, n, inView := msg.intersect(0, msg.HeaderLen())
	if !withFraming && !inView {
		return nil, nil
	}
	b, capacity, ok := p.alloc.AllocateTxBuffer()
	if !ok {
		return nil, errors.Wrap(api.ErrResourceExhausted, "allocate header buffer")
	}
	need := n
	if withFraming {
		need += protocol.FramingLen
	}
	if need > capacity {
		b.Release()
		return nil, api.NewError(api.ErrCodeInvalidArgument, "header larger than tx buffer").
			WithContext("len", need).WithContext("capacity", capacity).WithCause(api.ErrValueTooLarge)
	}
	if withFraming {
		protocol.PutFraming(b.Tail()[:protocol.FramingLen], msg.Timestamp, msg.FlowID)
		_ = b.Advance(protocol.FramingLen)
	}
	if inView {
		// The prefix and header are contiguous in logical space only.
		end := off + n
		if pl := len(msg.Prefix); off < pl {
			_, _ = b.Write(msg.Prefix[off:min(end, pl)])
		}
		if pl := len(msg.Prefix); end > pl {
			_, _ = b.Write(msg.Form.Header[max(off-pl, 0) : end-pl])
		}
	}
	md, err := b.Freeze(0, b.Len())
	if err != nil {
		return nil, errors.Wrap(err, "freeze header")
	}
	return md, nil
}

// postRange posts the part of md in view as its own reference.
func (p *Poster) postRange(msg *Message, md *pool.Metadata, pos int, kind string) (bool, error) {
	off, n, ok := msg.intersect(pos, md.Len())
	if !ok {
		return false, nil
	}
	seg := md.Clone()
	if err := seg.SetView(n, md.Offset()+off); err != nil {
		seg.Release()
		return false, errors.Wrap(err, "narrow segment")
	}
	if err := p.post(seg, kind); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Poster) post(seg *pool.Metadata, kind string) error {
	n := seg.Len()
	if err := p.q.PostSegment(seg); err != nil {
		seg.Release()
		level.Error(p.logger).Log("msg", "post segment failed", "kind", kind, "err", err)
		return errors.Wrap(err, "post segment")
	}
	p.metrics.segments.WithLabelValues(kind).Inc()
	p.metrics.bytes.Add(float64(n))
	return nil
}

// abort withdraws the n segments of an unfinished frame so the queue's open
// batch is empty again, and returns cause.
func (p *Poster) abort(n int, cause error) error {
	p.metrics.messages.WithLabelValues("aborted").Inc()
	if n == 0 {
		return cause
	}
	if err := p.q.Abort(n); err != nil {
		level.Error(p.logger).Log("msg", "abort failed, queue batch left open", "segments", n, "err", err)
		return errors.Wrapf(cause, "abort: %v", err)
	}
	level.Warn(p.logger).Log("msg", "frame aborted", "segments", n, "err", cause)
	return cause
}

// kick rings the doorbell on a finished frame and reaps completions.
func (p *Poster) kick() error {
	if err := p.q.RingDoorbell(); err != nil {
		return errors.Wrap(err, "ring doorbell")
	}
	if _, err := p.q.PollCompletions(p.budget); err != nil {
		return errors.Wrap(err, "poll completions")
	}
	return nil
}
