// File: protocol/frame_codec.go
// Package protocol implements the message envelope codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The envelope tells a receiver which shape follows: (0, 0) is a single
// message, (1, n) a list of n byte strings. Anything else is rejected.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/sga"
)

// MessageType is the first envelope word.
type MessageType uint16

const (
	TypeSingle MessageType = 0
	TypeList   MessageType = 1
)

// Envelope is the decoded prefix of an application message.
type Envelope struct {
	Type  MessageType
	Count int
}

// SingleEnvelope is the envelope of a single message.
func SingleEnvelope() Envelope { return Envelope{Type: TypeSingle} }

// ListEnvelope is the envelope of an n-element list.
func ListEnvelope(n int) Envelope { return Envelope{Type: TypeList, Count: n} }

// Shape returns the object shape announced by the envelope.
func (e Envelope) Shape() sga.Shape {
	if e.Type == TypeList {
		return sga.ListShape(sga.BytesShape())
	}
	return sga.SingleShape()
}

// String implements fmt.Stringer.
func (e Envelope) String() string {
	if e.Type == TypeList {
		return fmt.Sprintf("list(%d)", e.Count)
	}
	return "single"
}

// EnvelopeFor returns the envelope describing o.
func EnvelopeFor(o sga.Object) (Envelope, error) {
	switch v := o.(type) {
	case *sga.Single:
		return SingleEnvelope(), nil
	case *sga.List:
		if !v.Elem().Equal(sga.BytesShape()) {
			break
		}
		if v.Len() > MaxListCount {
			return Envelope{}, api.NewError(api.ErrCodeInvalidArgument, "list too long for envelope").
				WithContext("len", v.Len())
		}
		return ListEnvelope(v.Len()), nil
	}
	return Envelope{}, api.NewError(api.ErrCodeNotSupported, "no envelope for shape").
		WithContext("shape", o.Shape().String())
}

// DecodeEnvelope parses the envelope at the start of raw.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	if len(raw) < EnvelopeLen {
		return Envelope{}, api.NewError(api.ErrCodeWireCorruption, "envelope too short").
			WithContext("len", len(raw))
	}
	typ := MessageType(binary.BigEndian.Uint16(raw[0:2]))
	count := int(binary.BigEndian.Uint16(raw[2:4]))
	switch {
	case typ == TypeSingle && count == 0:
		return SingleEnvelope(), nil
	case typ == TypeList:
		return ListEnvelope(count), nil
	}
	return Envelope{}, api.NewError(api.ErrCodeWireCorruption, "unknown envelope").
		WithContext("type", uint16(typ)).WithContext("count", count)
}

// EncodeEnvelope writes e into the first EnvelopeLen bytes of dst.
func EncodeEnvelope(dst []byte, e Envelope) error {
	if len(dst) < EnvelopeLen {
		return api.NewError(api.ErrCodeInvalidArgument, "envelope buffer too short").WithContext("len", len(dst))
	}
	if e.Count < 0 || e.Count > MaxListCount || (e.Type == TypeSingle && e.Count != 0) {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid envelope").WithContext("envelope", e.String())
	}
	binary.BigEndian.PutUint16(dst[0:2], uint16(e.Type))
	binary.BigEndian.PutUint16(dst[2:4], uint16(e.Count))
	return nil
}

// AppendEnvelope appends the encoded envelope to dst.
func AppendEnvelope(dst []byte, e Envelope) ([]byte, error) {
	var b [EnvelopeLen]byte
	if err := EncodeEnvelope(b[:], e); err != nil {
		return dst, err
	}
	return append(dst, b[:]...), nil
}
