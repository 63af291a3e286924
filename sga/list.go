// File: sga/list.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

import "github.com/momentics/hioload-sga/api"

// List is a homogeneous, length-prefixed sequence of objects.
type List struct {
	elem   Shape
	elts   []Object
	numSet int
}

func (*List) isObject() {}

// NewList returns an empty list of elem with room for capacity elements.
func NewList(elem Shape, capacity int) *List {
	return &List{elem: elem, elts: make([]Object, 0, capacity)}
}

// Shape implements Object.
func (l *List) Shape() Shape { return ListShape(l.elem) }

// Elem returns the element shape.
func (l *List) Elem() Shape { return l.elem }

// Len returns the number of elements.
func (l *List) Len() int { return l.numSet }

// At returns element i, or nil when i is outside [0, Len()).
func (l *List) At(i int) Object {
	if i < 0 || i >= l.numSet {
		return nil
	}
	return l.elts[i]
}

// Elements returns the set elements.
func (l *List) Elements() []Object { return l.elts[:l.numSet] }

// Append adds o, reusing an already allocated slot before growing.
func (l *List) Append(o Object) error {
	if err := l.check(o); err != nil {
		return err
	}
	if l.numSet < len(l.elts) {
		l.elts[l.numSet] = o
	} else {
		l.elts = append(l.elts, o)
	}
	l.numSet++
	return nil
}

// Replace overwrites element i.
func (l *List) Replace(i int, o Object) error {
	if i < 0 || i >= l.numSet {
		return api.NewError(api.ErrCodeInvalidArgument, "list index out of range").
			WithContext("index", i).WithContext("len", l.numSet)
	}
	if err := l.check(o); err != nil {
		return err
	}
	l.elts[i] = o
	return nil
}

// Reset empties the list but keeps its slots for reuse.
func (l *List) Reset() { l.numSet = 0 }

func (l *List) check(o Object) error {
	if isNil(o) {
		return api.NewError(api.ErrCodeInvalidArgument, "nil list element")
	}
	if !o.Shape().Equal(l.elem) {
		return api.NewError(api.ErrCodeInvalidArgument, "list element shape mismatch").
			WithContext("want", l.elem.String()).WithContext("got", o.Shape().String())
	}
	return nil
}
