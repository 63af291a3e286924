// File: transport/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/sga"
)

// Message is a serialized object queued for transmission.
//
// Its logical bytes are Prefix, the object header, the copy-context bytes
// and the zero-copy payloads, in that order. The view (Start, Len) selects
// the part that is actually sent; Trim and Adjust narrow it for partially
// consumed sends.
type Message struct {
	Form      *sga.SerializedForm
	Prefix    []byte // written between the framing block and the header
	Timestamp uint64
	FlowID    uint64

	start  int
	length int
}

// NewMessage wraps form with a full view.
func NewMessage(form *sga.SerializedForm, timestamp, flowID uint64) *Message {
	m := &Message{Form: form, Timestamp: timestamp, FlowID: flowID}
	m.length = m.TotalLen()
	return m
}

// WithPrefix sets the prefix and resets the view to the whole message.
func (m *Message) WithPrefix(prefix []byte) *Message {
	m.Prefix = prefix
	m.start, m.length = 0, m.TotalLen()
	return m
}

// HeaderLen is the length of the prefix plus the object header.
func (m *Message) HeaderLen() int { return len(m.Prefix) + m.Form.HeaderLen() }

// TotalLen is the full logical length regardless of the view.
func (m *Message) TotalLen() int { return len(m.Prefix) + m.Form.TotalLen() }

// Start returns the first logical byte in view.
func (m *Message) Start() int { return m.start }

// Len returns the number of bytes in view.
func (m *Message) Len() int { return m.length }

// Trim drops n bytes from the front of the view.
func (m *Message) Trim(n int) error {
	if n < 0 || n > m.length {
		return api.NewError(api.ErrCodeInvalidArgument, "trim beyond message").
			WithContext("n", n).WithContext("len", m.length)
	}
	m.start += n
	m.length -= n
	return nil
}

// Adjust drops n bytes from the end of the view.
func (m *Message) Adjust(n int) error {
	if n < 0 || n > m.length {
		return api.NewError(api.ErrCodeInvalidArgument, "adjust beyond message").
			WithContext("n", n).WithContext("len", m.length)
	}
	m.length -= n
	return nil
}

// intersect clips the segment [segOff, segOff+segLen) to the view and
// returns the overlap relative to the segment start.
func (m *Message) intersect(segOff, segLen int) (off, n int, ok bool) {
	lo := max(segOff, m.start)
	hi := min(segOff+segLen, m.start+m.length)
	if hi <= lo {
		return 0, 0, false
	}
	return lo - segOff, hi - lo, true
}

// RequiredEntries counts the descriptors Post needs for m: the header buffer
// when it carries any byte, then every copy buffer and zero-copy payload that
// intersects the view.
//
// withHeader reports whether the poster writes its own header block (the
// framing block) in front of the message. When set, a view starting at byte
// 0 always needs the header buffer, even if no prefix or object header byte
// is in view. A Poster passes its Framing option.
func RequiredEntries(m *Message, withHeader bool) int {
	n := 0
	if _, _, ok := m.intersect(0, m.HeaderLen()); ok || (withHeader && m.start == 0) {
		n++
	}
	pos := m.HeaderLen()
	for _, md := range m.Form.CopyBuffers {
		if _, _, ok := m.intersect(pos, md.Len()); ok {
			n++
		}
		pos += md.Len()
	}
	for _, md := range m.Form.ZeroCopy {
		if _, _, ok := m.intersect(pos, md.Len()); ok {
			n++
		}
		pos += md.Len()
	}
	return n
}
