// File: facade/messages.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"github.com/go-kit/log/level"
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/protocol"
	"github.com/momentics/hioload-sga/sga"
	"github.com/momentics/hioload-sga/transport"
	"github.com/pkg/errors"
)

// Received is a decoded inbound frame. Object's leaves reference the packet
// in place; Release drops them.
type Received struct {
	Envelope  protocol.Envelope
	Object    sga.Object
	Timestamp uint64
	FlowID    uint64
}

// Release drops the leaf references of the decoded object.
func (r *Received) Release() {
	if r.Object != nil {
		sga.Release(r.Object)
		r.Object = nil
	}
}

// Send serializes obj behind its envelope and posts it. cc is consumed in
// every case; obj keeps its own leaf references.
func (s *Session) Send(obj sga.Object, cc *sga.CopyContext, timestamp, flowID uint64) error {
	env, err := protocol.EnvelopeFor(obj)
	if err != nil {
		cc.Release()
		return err
	}
	return s.send(obj, cc, env, timestamp, flowID)
}

func (s *Session) send(obj sga.Object, cc *sga.CopyContext, env protocol.Envelope, timestamp, flowID uint64) error {
	prefix, err := protocol.AppendEnvelope(make([]byte, 0, protocol.EnvelopeLen), env)
	if err != nil {
		cc.Release()
		return err
	}
	form, err := sga.Serialize(obj, cc)
	if err != nil {
		cc.Release()
		return errors.Wrap(err, "serialize")
	}
	msg := transport.NewMessage(form, timestamp, flowID).WithPrefix(prefix)
	return s.poster.Post(msg)
}

// SendSlice posts raw bytes without an envelope.
func (s *Session) SendSlice(payload []byte, timestamp, flowID uint64) error {
	return s.poster.PostSlice(payload, timestamp, flowID)
}

// Receive pops the next delivered packet. The caller owns the reference.
func (s *Session) Receive() (*pool.Metadata, bool) {
	return s.queue.Receive()
}

// Decode reads the framing block (when enabled), the envelope and the object
// that follows it. pkt keeps its reference; the decoded leaves take their own.
func (s *Session) Decode(pkt *pool.Metadata) (*Received, error) {
	raw := pkt.Bytes()
	r := &Received{}
	base := 0
	if s.cfg.Framing {
		fb, err := protocol.Framing(raw)
		if err != nil {
			return nil, err
		}
		r.Timestamp, r.FlowID = fb.Timestamp(), fb.FlowID()
		base = protocol.FramingLen
	}
	env, err := protocol.DecodeEnvelope(raw[base:])
	if err != nil {
		return nil, err
	}
	obj, err := sga.Deserialize(env.Shape(), pkt, base+protocol.EnvelopeLen)
	if err != nil {
		return nil, err
	}
	if l, ok := obj.(*sga.List); ok && l.Len() != env.Count {
		sga.Release(obj)
		return nil, api.NewError(api.ErrCodeWireCorruption, "list length disagrees with envelope").
			WithContext("envelope", env.Count).WithContext("list", l.Len())
	}
	r.Envelope, r.Object = env, obj
	return r, nil
}

// Echo reflects pkt back onto the queue with the same framing values and
// envelope. Leaves at or above the copy threshold resolve into the receive
// region and go back out zero-copy. pkt's reference is dropped.
func (s *Session) Echo(pkt *pool.Metadata) error {
	defer pkt.Release()
	in, err := s.Decode(pkt)
	if err != nil {
		level.Warn(s.logger).Log("msg", "dropping undecodable packet", "len", pkt.Len(), "err", err)
		return err
	}
	defer in.Release()

	cc := s.NewCopyContext()
	reply, err := rebuild(s.mgr, cc, in.Object)
	if err != nil {
		cc.Release()
		return errors.Wrap(err, "rebuild reply")
	}
	defer sga.Release(reply)
	return s.send(reply, cc, in.Envelope, in.Timestamp, in.FlowID)
}

// rebuild constructs a copy of o whose leaves go through NewByteString.
func rebuild(dp sga.Datapath, cc *sga.CopyContext, o sga.Object) (sga.Object, error) {
	switch v := o.(type) {
	case *sga.ByteString:
		bs, err := sga.NewByteString(dp, cc, v.Bytes())
		if err != nil {
			return nil, err
		}
		return bs, nil
	case *sga.Single:
		out := sga.NewSingle()
		if v.HasMessage() {
			bs, err := sga.NewByteString(dp, cc, v.Message().Bytes())
			if err != nil {
				return nil, err
			}
			out.SetMessage(bs)
		}
		return out, nil
	case *sga.List:
		out := sga.NewList(v.Elem(), v.Len())
		for _, e := range v.Elements() {
			c, err := rebuild(dp, cc, e)
			if err != nil {
				sga.Release(out)
				return nil, err
			}
			if err := out.Append(c); err != nil {
				sga.Release(c)
				sga.Release(out)
				return nil, err
			}
		}
		return out, nil
	case *sga.Tree:
		out, err := sga.NewTree(v.Depth())
		if err != nil {
			return nil, err
		}
		for _, side := range []struct {
			has bool
			get func() sga.Object
			set func(sga.Object) error
		}{
			{v.HasLeft(), v.Left, out.SetLeft},
			{v.HasRight(), v.Right, out.SetRight},
		} {
			if !side.has {
				continue
			}
			c, err := rebuild(dp, cc, side.get())
			if err == nil {
				if err = side.set(c); err != nil {
					sga.Release(c)
				}
			}
			if err != nil {
				sga.Release(out)
				return nil, err
			}
		}
		return out, nil
	}
	return nil, api.NewError(api.ErrCodeNotSupported, "unknown object").WithContext("shape", o.Shape().String())
}
