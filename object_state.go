package svm

import (
	"fmt"
	"math/rand"

	"github.com/gosymvm/svm/expr"
)

// ObjectState is the live contents bound to one MemoryObject: two
// ObjectStatePlanes, one holding ordinary values and one holding pointer
// segments, so that a byte written as part of a pointer keeps its
// provenance even though the value plane only ever sees plain bit patterns.
// A fresh ObjectState allocates the offset plane eagerly but defers the
// segment plane until something actually writes a non-scalar KValue into
// it, since the overwhelming majority of objects never hold a pointer.
type ObjectState struct {
	object *MemoryObject

	offsetPlane  *ObjectStatePlane
	segmentPlane *ObjectStatePlane

	readOnly bool

	copyOnWriteOwner uint64

	arrays *expr.ArrayCache
}

// NewObjectState returns a concrete ObjectState for object, with its offset
// plane uninitialized (see InitializeToZero/InitializeToRandom) and no
// segment plane yet materialized.
func NewObjectState(object *MemoryObject, arrays *expr.ArrayCache) *ObjectState {
	size, ok := object.ConcreteSize()
	assert(ok, "object state: object %s has no concrete size", object)

	os := &ObjectState{object: object, readOnly: object.IsReadOnly(), arrays: arrays}
	os.offsetPlane = newConcreteObjectStatePlane(os, arrays.CreateArray("", uint(size)), uint(size))
	return os
}

// NewSymbolicObjectState returns an ObjectState for object whose offset
// plane reads back as entirely unknown-symbolic, backed by array.
func NewSymbolicObjectState(object *MemoryObject, array *expr.Array, arrays *expr.ArrayCache) *ObjectState {
	os := &ObjectState{object: object, readOnly: object.IsReadOnly(), arrays: arrays}
	os.offsetPlane = newSymbolicObjectStatePlane(os, array)
	return os
}

// Clone returns a deep copy of os bound to the same MemoryObject but
// independent of os for every subsequent write; owner is the new copy's
// copy-on-write owner tag (see SetCopyOnWriteOwner).
func (os *ObjectState) Clone(owner uint64) *ObjectState {
	clone := &ObjectState{
		object:           os.object,
		readOnly:         os.readOnly,
		copyOnWriteOwner: owner,
		arrays:           os.arrays,
	}
	clone.offsetPlane = os.offsetPlane.clone(clone)
	if os.segmentPlane != nil {
		clone.segmentPlane = os.segmentPlane.clone(clone)
	}
	return clone
}

// Object returns the MemoryObject this state's contents belong to.
func (os *ObjectState) Object() *MemoryObject { return os.object }

// IsReadOnly reports whether writes to this state are rejected.
func (os *ObjectState) IsReadOnly() bool { return os.readOnly }

// SetReadOnly sets this state's read-only bit, independent of the backing
// MemoryObject's default.
func (os *ObjectState) SetReadOnly(readOnly bool) { os.readOnly = readOnly }

// CopyOnWriteOwner returns the tag identifying which execution state last
// cloned this ObjectState. A write is free to mutate os in place exactly
// when the caller's own tag matches this value; otherwise it must Clone
// first. The memory core does not interpret or compare tags itself — that
// policy lives with the caller modeling address spaces.
func (os *ObjectState) CopyOnWriteOwner() uint64 { return os.copyOnWriteOwner }

// SetCopyOnWriteOwner sets the copy-on-write owner tag.
func (os *ObjectState) SetCopyOnWriteOwner(owner uint64) { os.copyOnWriteOwner = owner }

// prepareSegmentPlane lazily materializes the segment plane the first time
// something needs to record pointer provenance into this object, and
// leaves it nil otherwise.
func (os *ObjectState) prepareSegmentPlane() *ObjectStatePlane {
	if os.segmentPlane == nil {
		size, ok := os.object.ConcreteSize()
		assert(ok, "object state: object %s has no concrete size", os.object)
		os.segmentPlane = newConcreteObjectStatePlane(os, os.arrays.CreateArray("", uint(size)), uint(size))
		os.segmentPlane.InitializeToZero()
	}
	return os.segmentPlane
}

// InitializeToZero makes the offset plane entirely concrete and zero. The
// segment plane, if present, is left untouched; a freshly constructed
// ObjectState has none.
func (os *ObjectState) InitializeToZero() { os.offsetPlane.InitializeToZero() }

// InitializeToRandom makes the offset plane entirely concrete with random
// bytes drawn from r.
func (os *ObjectState) InitializeToRandom(r *rand.Rand) { os.offsetPlane.InitializeToRandom(r) }

func (os *ObjectState) checkWritable() error {
	if os.readOnly {
		return fmt.Errorf("svm: write to read-only object %s", os.object)
	}
	return nil
}

// Read8 returns the byte at a concrete offset, taking its segment byte from
// the segment plane when one has been materialized and zero otherwise.
func (os *ObjectState) Read8(offset uint) KValue {
	offsetVal := os.offsetPlane.Read8(offset)
	if os.segmentPlane == nil {
		return NewScalar(offsetVal)
	}
	return KValue{Segment: os.segmentPlane.Read8(offset), Offset: offsetVal}
}

// Read returns the width-bit KValue at a concrete offset, assembling its
// segment from the segment plane when one has been materialized and zero
// otherwise.
func (os *ObjectState) Read(ctx Context, offset uint, width uint) KValue {
	offsetVal := os.offsetPlane.Read(offset, width, ctx.LittleEndian)
	if os.segmentPlane == nil {
		return NewScalar(offsetVal)
	}
	return KValue{Segment: os.segmentPlane.Read(offset, width, ctx.LittleEndian), Offset: offsetVal}
}

// ReadSym returns the width-bit KValue at a symbolic offset.
func (os *ObjectState) ReadSym(ctx Context, offset expr.Expr, width uint) KValue {
	offsetVal := os.offsetPlane.ReadSym(offset, width, ctx.LittleEndian)
	if os.segmentPlane == nil {
		return NewScalar(offsetVal)
	}
	return KValue{Segment: os.segmentPlane.ReadSym(offset, width, ctx.LittleEndian), Offset: offsetVal}
}

// Write8 writes a single byte at a concrete offset. It reports an error
// for a write to a read-only object (a recoverable, caller-level
// violation) and panics for an out-of-range offset (a contract violation:
// the caller was supposed to bounds-check before calling).
func (os *ObjectState) Write8(offset uint, value KValue) error {
	if err := os.checkWritable(); err != nil {
		return err
	}
	os.offsetPlane.Write8(offset, value.Offset)
	if os.segmentPlane != nil || !isZeroSegmentConstant(value.Segment) {
		os.prepareSegmentPlane().Write8(offset, value.Segment)
	}
	return nil
}

// Write writes a width-bit KValue at a concrete offset.
func (os *ObjectState) Write(ctx Context, offset uint, value KValue) error {
	if err := os.checkWritable(); err != nil {
		return err
	}
	os.offsetPlane.Write(offset, value.Offset, ctx.LittleEndian)
	if os.segmentPlane != nil || !isZeroSegmentConstant(value.Segment) {
		os.prepareSegmentPlane().Write(offset, value.Segment, ctx.LittleEndian)
	}
	return nil
}

// WriteSym writes a width-bit KValue at a symbolic offset.
func (os *ObjectState) WriteSym(ctx Context, offset expr.Expr, value KValue) error {
	if err := os.checkWritable(); err != nil {
		return err
	}
	os.offsetPlane.WriteSym(offset, value.Offset, ctx.LittleEndian)
	if os.segmentPlane != nil || !isZeroSegmentConstant(value.Segment) {
		os.prepareSegmentPlane().WriteSym(offset, value.Segment, ctx.LittleEndian)
	}
	return nil
}

// FlushToConcreteStore asks solver for a concrete value of every symbolic
// byte in the offset plane under constraints, for inspection purposes
// (e.g. printing a satisfying test case). The segment plane is never
// flushed this way: a solver has no opinion on which memory object a
// pointer names, only on its bit pattern.
func (os *ObjectState) FlushToConcreteStore(solver Solver, constraints []expr.Expr) error {
	return os.offsetPlane.FlushToConcreteStore(solver, constraints)
}

func isZeroSegmentConstant(e expr.Expr) bool {
	c, ok := e.(*expr.ConstantExpr)
	return ok && c.IsZero()
}

// String returns a short diagnostic description of the state.
func (os *ObjectState) String() string {
	kind := "concrete"
	if os.offsetPlane.symbolic {
		kind = "symbolic"
	}
	ro := ""
	if os.readOnly {
		ro = " readonly"
	}
	return fmt.Sprintf("ObjectState[%s %s%s]", os.object, kind, ro)
}
