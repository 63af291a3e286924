// File: sga/tree.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded binary trees. A depth-1 tree has two Single children; a depth-d
// tree has two depth d-1 children. Every level carries a 2-bit bitmap.

package sga

import "github.com/momentics/hioload-sga/api"

const (
	treeLeftField  = 0
	treeRightField = 1
)

// Tree is a two-child composite of depth 1..MaxTreeDepth.
type Tree struct {
	depth  int
	bitmap Bitmap
	left   Object
	right  Object
}

func (*Tree) isObject() {}

// NewTree returns an empty tree of the given depth.
func NewTree(depth int) (*Tree, error) {
	s, err := TreeShape(depth)
	if err != nil {
		return nil, err
	}
	return &Tree{depth: depth, bitmap: newBitmap(s.BitmapWords)}, nil
}

// Shape implements Object.
func (t *Tree) Shape() Shape { return MustTreeShape(t.depth) }

// Depth returns the tree depth.
func (t *Tree) Depth() int { return t.depth }

// Bitmap returns the presence bitmap of this level.
func (t *Tree) Bitmap() Bitmap { return t.bitmap }

func (t *Tree) HasLeft() bool  { return t.bitmap.Get(treeLeftField) }
func (t *Tree) HasRight() bool { return t.bitmap.Get(treeRightField) }

// Left returns the left child, nil when absent.
func (t *Tree) Left() Object { return t.left }

// Right returns the right child, nil when absent.
func (t *Tree) Right() Object { return t.right }

// SetLeft sets the left child. Its shape must be one level down.
func (t *Tree) SetLeft(child Object) error { return t.set(treeLeftField, child) }

// SetRight sets the right child. Its shape must be one level down.
func (t *Tree) SetRight(child Object) error { return t.set(treeRightField, child) }

// ClearLeft removes the left child without releasing it.
func (t *Tree) ClearLeft() { t.bitmap.Unset(treeLeftField); t.left = nil }

// ClearRight removes the right child without releasing it.
func (t *Tree) ClearRight() { t.bitmap.Unset(treeRightField); t.right = nil }

func (t *Tree) set(field int, child Object) error {
	if isNil(child) {
		return api.NewError(api.ErrCodeInvalidArgument, "nil tree child")
	}
	want := t.Shape().Field(field)
	if !child.Shape().Equal(want) {
		return api.NewError(api.ErrCodeInvalidArgument, "tree child shape mismatch").
			WithContext("want", want.String()).WithContext("got", child.Shape().String())
	}
	t.bitmap.Set(field)
	if field == treeLeftField {
		t.left = child
	} else {
		t.right = child
	}
	return nil
}

// BuildTree assembles a tree of depth from 2^depth positional leaves.
// Nil leaves are absent; a subtree whose leaves are all nil is absent too.
func BuildTree(depth int, leaves []*ByteString) (*Tree, error) {
	if _, err := TreeShape(depth); err != nil {
		return nil, err
	}
	if len(leaves) != 1<<depth {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "leaf count does not match tree depth").
			WithContext("depth", depth).WithContext("leaves", len(leaves))
	}
	t, _ := NewTree(depth)
	half := len(leaves) / 2
	for field, part := range [][]*ByteString{leaves[:half], leaves[half:]} {
		child, err := buildSubtree(depth-1, part)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		if err := t.set(field, child); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func buildSubtree(depth int, leaves []*ByteString) (Object, error) {
	if depth == 0 {
		if leaves[0] == nil {
			return nil, nil
		}
		s := NewSingle()
		s.SetMessage(leaves[0])
		return s, nil
	}
	empty := true
	for _, l := range leaves {
		if l != nil {
			empty = false
			break
		}
	}
	if empty {
		return nil, nil
	}
	return BuildTree(depth, leaves)
}

// Leaves returns the 2^depth leaf positions, nil where absent.
func (t *Tree) Leaves() []*ByteString {
	out := make([]*ByteString, 1<<t.depth)
	collectLeaves(t, out)
	return out
}

func collectLeaves(o Object, out []*ByteString) {
	switch v := o.(type) {
	case *Single:
		if v != nil && v.HasMessage() {
			out[0] = v.message
		}
	case *Tree:
		if v == nil {
			return
		}
		half := len(out) / 2
		if v.HasLeft() {
			collectLeaves(v.left, out[:half])
		}
		if v.HasRight() {
			collectLeaves(v.right, out[half:])
		}
	}
}
