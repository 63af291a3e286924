// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package transport turns serialized objects into send-queue descriptors.
//
// A Poster owns exactly one Queue. For every message it waits for enough
// ring entries, writes the optional framing block and the object header
// into a fresh TX buffer, then posts header, copy buffers and zero-copy
// payloads as one frame and rings the doorbell. Segments handed to the queue
// carry their own reference; the message's references are dropped once the
// frame is posted.
package transport
