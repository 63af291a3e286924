// Package pool
// Author: momentics <momentics@gmail.com>
//
// Registered memory layer for hioload-sga.
// A Manager owns fixed-item regions (RX, TX and user regions), hands out
// exclusive Buffers and shared, refcounted Metadata views, and resolves
// arbitrary byte slices back to the region item that contains them.
//
// All address arithmetic on raw pointers is confined to addr.go; everything
// above this package only sees Buffer and Metadata handles.
package pool
