// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free primitives shared by the datapath. The only structure here is
// the single-producer/single-consumer descriptor ring that carries posted
// segments from a poster to the device side of a queue.
package concurrency
