// File: internal/transport/descriptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"encoding/binary"
	"fmt"
)

// DescriptorSize is the wire size of one TX descriptor.
const DescriptorSize = 16

// Descriptor flags.
const (
	// FlagEndOfPacket marks the last segment of a frame.
	FlagEndOfPacket uint16 = 1 << iota
)

// Descriptor is a TX ring entry laid out as
//
//	addr   u64  region-relative address: item index << 32 | offset in item
//	len    u32  segment length
//	region u16  registered region id
//	flags  u16
//
// Fields are little-endian and only accessed through the methods below.
type Descriptor [DescriptorSize]byte

// Addr returns the region-relative address.
func (d *Descriptor) Addr() uint64 { return binary.LittleEndian.Uint64(d[0:8]) }

// Len returns the segment length.
func (d *Descriptor) Len() uint32 { return binary.LittleEndian.Uint32(d[8:12]) }

// Region returns the region id.
func (d *Descriptor) Region() uint16 { return binary.LittleEndian.Uint16(d[12:14]) }

// Flags returns the flag bits.
func (d *Descriptor) Flags() uint16 { return binary.LittleEndian.Uint16(d[14:16]) }

// Item returns the item index encoded in Addr.
func (d *Descriptor) Item() int { return int(d.Addr() >> 32) }

// Offset returns the in-item offset encoded in Addr.
func (d *Descriptor) Offset() int { return int(uint32(d.Addr())) }

func (d *Descriptor) SetAddr(v uint64) { binary.LittleEndian.PutUint64(d[0:8], v) }
func (d *Descriptor) SetLen(v uint32) { binary.LittleEndian.PutUint32(d[8:12], v) }
func (d *Descriptor) SetRegion(v uint16) { binary.LittleEndian.PutUint16(d[12:14], v) }
func (d *Descriptor) SetFlags(v uint16) { binary.LittleEndian.PutUint16(d[14:16], v) }

// Fill encodes a segment location into d and clears the flags.
func (d *Descriptor) Fill(region, item, offset, length int) {
	d.SetAddr(uint64(item)<<32 | uint64(uint32(offset)))
	d.SetLen(uint32(length))
	d.SetRegion(uint16(region))
	d.SetFlags(0)
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return fmt.Sprintf("desc{region=%d item=%d off=%d len=%d flags=%#x}",
		d.Region(), d.Item(), d.Offset(), d.Len(), d.Flags())
}
