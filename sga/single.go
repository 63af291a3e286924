// File: sga/single.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

const singleMessageField = 0

// Single is a composite with one optional ByteString field.
type Single struct {
	bitmap  Bitmap
	message *ByteString
}

func (*Single) isObject() {}

// NewSingle returns an empty Single.
func NewSingle() *Single {
	return &Single{bitmap: newBitmap(SingleShape().BitmapWords)}
}

// Shape implements Object.
func (*Single) Shape() Shape { return SingleShape() }

// Bitmap returns the presence bitmap.
func (s *Single) Bitmap() Bitmap { return s.bitmap }

// HasMessage reports whether the field is set.
func (s *Single) HasMessage() bool { return s.bitmap.Get(singleMessageField) }

// Message returns the field, nil when unset.
func (s *Single) Message() *ByteString { return s.message }

// SetMessage sets the field.
func (s *Single) SetMessage(bs *ByteString) {
	s.bitmap.Set(singleMessageField)
	s.message = bs
}

// ClearMessage unsets the field without releasing it.
func (s *Single) ClearMessage() {
	s.bitmap.Unset(singleMessageField)
	s.message = nil
}
