// Package sga implements the hybrid zero-copy/copy serialization engine.
//
// Objects (ByteString leaves, Single, List and bounded Tree composites) are
// encoded into a compact header of presence bitmaps and (size, offset)
// forward pointers plus a list of payload segments. Payloads at or above the
// copy threshold that live in registered memory are referenced in place;
// everything else is copied into staging buffers owned by a CopyContext.
//
// Logical wire layout: header bytes, then all copy-context bytes, then all
// zero-copy payloads in depth-first declaration order.
package sga
