// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Software queue pair standing in for a NIC send queue. Segments are posted
// as 16-byte descriptors onto an SPSC ring; the doorbell makes the device
// side gather each frame, deliver it into a fresh RX item and queue one
// completion per descriptor. Completed segments are released when the
// poster polls, which is also when their ring slots become free again.

package transport
