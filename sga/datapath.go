// File: sga/datapath.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

import "github.com/momentics/hioload-sga/pool"

// Datapath is the memory side the engine consumes. *pool.Manager implements it.
type Datapath interface {
	// AllocateTxBuffer returns a fresh transmit buffer and its capacity.
	AllocateTxBuffer() (*pool.Buffer, int, bool)

	// Resolve maps b back to a registered item, adding a reference.
	Resolve(b []byte) (*pool.Metadata, bool)

	// CopyingThreshold is the size below which payloads are copied.
	CopyingThreshold() int
}

var _ Datapath = (*pool.Manager)(nil)
