package expr

import "fmt"

// UpdateList is a persistent write log layered on top of an Array: a linked
// chain of byte-indexed updates, newest first, rooted at Root. Appending a
// write never mutates an existing UpdateList; it returns a new one that
// shares the old chain's tail, so cloning an object for copy-on-write is
// just copying the (Root, Head) pair.
type UpdateList struct {
	Root *Array
	Head *UpdateNode
}

// NewUpdateList returns an empty update list over root.
func NewUpdateList(root *Array) UpdateList {
	return UpdateList{Root: root}
}

// String returns a string representation of the update list.
func (ul UpdateList) String() string {
	return fmt.Sprintf("(updates %s %s)", ul.Root, ul.Head)
}

// Extend returns a new UpdateList with a write of value at index appended
// to the front of the chain. If index is constant, any existing updates to
// the same constant index further down the chain are unlinked, since they
// are permanently shadowed and would otherwise grow the chain without
// bound across repeated byte writes to the same offset.
func (ul UpdateList) Extend(index, value Expr) UpdateList {
	assert(Width(index) == Width64, "updatelist: index must be 64-bit, got %d", Width(index))
	assert(Width(value) == Width8, "updatelist: value must be byte-wide, got %d", Width(value))

	if c, ok := index.(*ConstantExpr); ok {
		assert(c.Value < uint64(ul.Root.Size), "updatelist: index out of bounds: %d >= %d", c.Value, ul.Root.Size)
	}

	head := NewUpdateNode(index, value, ul.Head)

	if idx, ok := index.(*ConstantExpr); ok {
		// Nodes ahead of a shadowed write are copied rather than relinked,
		// so the chain ul itself refers to is left untouched.
		prev, pruned := head, false
		for n := ul.Head; n != nil; n = n.Next {
			ni, ok := n.Index.(*ConstantExpr)
			if !ok {
				break // symbolic index further down, stop pruning
			}
			if ni.Value == idx.Value {
				prev.Next = n.Next // shadowed, unlink
				pruned = true
			} else {
				cp := *n
				prev.Next = &cp
				prev = &cp
			}
		}
		if !pruned {
			head.Next = ul.Head
		}
	}

	return UpdateList{Root: ul.Root, Head: head}
}

// ReadByte returns the expression for the byte at index, resolving to a
// concrete update if the write history up to the first symbolic index
// proves it, and otherwise folding to a ReadExpr leaf for the solver.
func (ul UpdateList) ReadByte(index Expr) Expr {
	assert(Width(index) == Width64, "updatelist: index must be 64-bit, got %d", Width(index))
	for n := ul.Head; n != nil; n = n.Next {
		cond, ok := NewBinaryExpr(EQ, index, n.Index).(*ConstantExpr)
		if !ok {
			break // symbolic index, can no longer prove disjointness
		} else if cond.IsTrue() {
			return n.Value
		}
	}
	return NewReadExpr(ul, index)
}

// Read returns the width-bit value at byte offset, assembled from
// individual byte reads in the order dictated by isLittleEndian.
func (ul UpdateList) Read(offset Expr, width uint, isLittleEndian bool) Expr {
	assert(width > 0, "updatelist: read width cannot be zero")
	offset = newZExtExpr(offset, Width64)

	if width == WidthBool {
		return NewExtractExpr(ul.ReadByte(offset), 0, WidthBool)
	}

	var result Expr
	n := width / 8
	for i := uint(0); i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = n - i - 1
		}
		b := ul.ReadByte(NewBinaryExpr(ADD, offset, NewConstantExpr64(uint64(byteOffset))))
		if i == 0 {
			result = b
		} else {
			result = NewConcatExpr(b, result)
		}
	}
	return result
}

// Write returns a new UpdateList with a width-bit value written at byte
// offset, split into individual byte writes in the order dictated by
// isLittleEndian.
func (ul UpdateList) Write(offset, value Expr, isLittleEndian bool) UpdateList {
	offset = newZExtExpr(offset, Width64)

	width := Width(value)
	assert(width > 0, "updatelist: write width cannot be zero")
	if width == WidthBool {
		return ul.Extend(offset, newZExtExpr(value, Width8))
	}

	n := width / 8
	for i := uint(0); i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = n - i - 1
		}
		ul = ul.Extend(NewBinaryExpr(ADD, offset, NewConstantExpr64(uint64(byteOffset))), NewExtractExpr(value, i*8, Width8))
	}
	return ul
}

// CompareUpdateList returns an integer comparing two update lists by root
// identity and write history. The result is 0 if a==b, -1 if a < b, and +1
// if a > b.
func CompareUpdateList(a, b UpdateList) int {
	if cmp := CompareArray(a.Root, b.Root); cmp != 0 {
		return cmp
	}
	return compareUpdateNode(a.Head, b.Head)
}

// UpdateNode is one entry in an UpdateList's write-log chain.
type UpdateNode struct {
	Index Expr
	Value Expr
	Next  *UpdateNode
}

// NewUpdateNode returns a new UpdateNode, normalizing index to 64 bits and
// value to a single byte.
func NewUpdateNode(index, value Expr, next *UpdateNode) *UpdateNode {
	return &UpdateNode{
		Index: newZExtExpr(index, Width64),
		Value: newZExtExpr(value, Width8),
		Next:  next,
	}
}

// String returns a string representation of the update node chain starting
// at n.
func (n *UpdateNode) String() string {
	if n == nil {
		return "[]"
	}
	return fmt.Sprintf("[%s <- %s] %s", n.Index, n.Value, n.Next)
}

func compareUpdateNode(a, b *UpdateNode) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}
	if cmp := CompareExpr(a.Index, b.Index); cmp != 0 {
		return cmp
	}
	if cmp := CompareExpr(a.Value, b.Value); cmp != 0 {
		return cmp
	}
	return compareUpdateNode(a.Next, b.Next)
}
