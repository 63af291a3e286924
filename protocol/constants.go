// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Outer wire constants: the framing block the poster prepends and the
// message envelope the echo path reads.

package protocol

const (
	// FramingLen is the size of the framing block: timestamp, reserved,
	// flow id, reserved, each a little-endian u64.
	FramingLen = 32

	// EnvelopeLen is the size of the message envelope: u16 type, u16 count,
	// both big-endian.
	EnvelopeLen = 4

	// MaxListCount bounds the element count an envelope may announce.
	MaxListCount = 0xFFFF
)
