// File: sga/equal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

import "bytes"

// Equal reports deep equality. Presence bits are compared field by field and
// only fields present on both sides are compared recursively; leaves compare
// their payload bytes.
func Equal(a, b Object) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	switch x := a.(type) {
	case *ByteString:
		y, ok := b.(*ByteString)
		return ok && bytes.Equal(x.Bytes(), y.Bytes())
	case *List:
		y, ok := b.(*List)
		if !ok || !x.elem.Equal(y.elem) || x.Len() != y.Len() {
			return false
		}
		for i := 0; i < x.Len(); i++ {
			if !Equal(x.At(i), y.At(i)) {
				return false
			}
		}
		return true
	case *Single, *Tree:
		if !a.Shape().Equal(b.Shape()) {
			return false
		}
		bmA, fa := fields(a)
		bmB, fb := fields(b)
		for i := range fa {
			if bmA.Get(i) != bmB.Get(i) {
				return false
			}
			if bmA.Get(i) && !Equal(fa[i], fb[i]) {
				return false
			}
		}
		return true
	}
	return false
}
