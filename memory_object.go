package svm

import (
	"fmt"

	"github.com/gosymvm/svm/expr"
)

// AllocSite names the call site or static declaration a MemoryObject was
// allocated for. It exists purely for diagnostics, so it is left as an
// opaque, comparable token rather than tied to any particular IR; a caller
// embedding this package in a real interpreter can use an instruction
// pointer, an AST node, or a source location as long as it is comparable.
type AllocSite interface {
	String() string
}

// NamedAllocSite is a ready-made AllocSite for callers that just want a
// label (a function name, a "global" marker, a test name) without defining
// their own type.
type NamedAllocSite string

// String returns the string representation of the alloc site.
func (s NamedAllocSite) String() string { return string(s) }

// MemoryObject describes one allocation: a segment identity, a size, and
// the flags that distinguish stack locals from globals from fixed
// addresses. It owns no bytes itself; ObjectState holds the actual
// contents. Bounds-check expressions are derived from a MemoryObject's size
// and segment, never evaluated here — they are Expr trees a caller
// conjoins with its path condition and hands to a solver.
type MemoryObject struct {
	id      uint64
	segment uint64
	address uint64

	size expr.Expr
	name string

	isLocal         bool
	isGlobal        bool
	isFixed         bool
	isUserSpecified bool
	isReadOnly      bool

	allocSite AllocSite
}

// ID returns the object's unique allocation id.
func (mo *MemoryObject) ID() uint64 { return mo.id }

// Segment returns the object's segment number. Segment 0 is reserved and
// never assigned to a live object; it is the provenance-free segment
// ordinary scalar KValues carry.
func (mo *MemoryObject) Segment() uint64 { return mo.segment }

// Address returns the object's base address within its segment.
func (mo *MemoryObject) Address() uint64 { return mo.address }

// Size returns the object's size in bytes as an expression.
func (mo *MemoryObject) Size() expr.Expr { return mo.size }

// Name returns the object's diagnostic name.
func (mo *MemoryObject) Name() string { return mo.name }

// SetName sets the object's diagnostic name.
func (mo *MemoryObject) SetName(name string) { mo.name = name }

// IsLocal reports whether the object was allocated on a stack frame.
func (mo *MemoryObject) IsLocal() bool { return mo.isLocal }

// IsGlobal reports whether the object has process-lifetime duration.
func (mo *MemoryObject) IsGlobal() bool { return mo.isGlobal }

// MarkGlobal promotes the object to global lifetime, e.g. when a local
// escapes its frame.
func (mo *MemoryObject) MarkGlobal() { mo.isGlobal = true }

// IsFixed reports whether the object's address was chosen by the caller
// rather than by the allocator.
func (mo *MemoryObject) IsFixed() bool { return mo.isFixed }

// IsUserSpecified reports whether the object's address was supplied by a
// user-facing API call rather than inferred during allocation.
func (mo *MemoryObject) IsUserSpecified() bool { return mo.isUserSpecified }

// IsReadOnly reports the object's default read-only flag. ObjectState
// copies this into its own read-only bit at construction and may change it
// independently afterward.
func (mo *MemoryObject) IsReadOnly() bool { return mo.isReadOnly }

// AllocSite returns the call site or declaration the object was allocated
// for.
func (mo *MemoryObject) AllocSite() AllocSite { return mo.allocSite }

// ConcreteSize returns the object's size as a uint64 and true if size is a
// constant expression; otherwise it returns false.
func (mo *MemoryObject) ConcreteSize() (uint64, bool) {
	c, ok := mo.size.(*expr.ConstantExpr)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// GetSegmentExpr returns the object's segment as a pointer-width constant.
func (mo *MemoryObject) GetSegmentExpr(ctx Context) *expr.ConstantExpr {
	return ctx.constant(mo.segment)
}

// GetBaseExpr returns the object's base address as a pointer-width
// constant.
func (mo *MemoryObject) GetBaseExpr(ctx Context) *expr.ConstantExpr {
	return ctx.constant(mo.address)
}

// GetPointer returns a KValue for the object's base address.
func (mo *MemoryObject) GetPointer(ctx Context) KValue {
	return KValue{Segment: mo.GetSegmentExpr(ctx), Offset: mo.GetBaseExpr(ctx)}
}

// GetPointerAt returns a KValue for offset bytes past the object's base
// address.
func (mo *MemoryObject) GetPointerAt(ctx Context, offset uint64) KValue {
	return KValue{
		Segment: mo.GetSegmentExpr(ctx),
		Offset:  expr.NewBinaryExpr(expr.ADD, mo.GetBaseExpr(ctx), ctx.constant(offset)),
	}
}

// GetOffsetExpr returns pointer's offset relative to the object's base
// address, i.e. pointer - base. It does not check that pointer actually
// falls within the object; pair it with GetBoundsCheckOffset for that.
func (mo *MemoryObject) GetOffsetExpr(ctx Context, pointer expr.Expr) expr.Expr {
	return expr.NewBinaryExpr(expr.SUB, pointer, mo.GetBaseExpr(ctx))
}

// GetBoundsCheckSegment returns the boolean expression asserting that
// segment may alias this object: either it carries no provenance (segment
// zero, an ordinary integer used as a pointer) or it names this object
// directly.
func (mo *MemoryObject) GetBoundsCheckSegment(ctx Context, segment expr.Expr) expr.Expr {
	return expr.NewBinaryExpr(expr.OR,
		expr.NewBinaryExpr(expr.EQ, segment, expr.NewConstantExpr(0, expr.Width(segment))),
		expr.NewBinaryExpr(expr.EQ, mo.GetSegmentExpr(ctx), segment))
}

// GetBoundsCheckOffset returns the boolean expression asserting offset
// addresses a single byte within the object.
//
// A zero-sized object has no valid byte offsets except the degenerate
// offset 0 itself (matching a one-past-the-end pointer to an empty
// allocation); klee's getBoundsCheckOffset special-cases this rather than
// letting `offset < size` fold to `offset < 0`, which is never satisfiable.
func (mo *MemoryObject) GetBoundsCheckOffset(ctx Context, offset expr.Expr) expr.Expr {
	if size, ok := mo.size.(*expr.ConstantExpr); ok && size.IsZero() {
		return expr.NewBinaryExpr(expr.EQ, offset, ctx.zero())
	}
	return expr.NewBinaryExpr(expr.ULT, offset, mo.size)
}

// GetBoundsCheckOffsetN returns the boolean expression asserting that all
// of the bytes [offset, offset+bytes) lie within the object.
//
// When bytes is known to exceed the object's concrete size outright, the
// check collapses to the constant false rather than to the symbolic
// underflow `offset < size-(bytes-1)` would produce when size-(bytes-1)
// wraps around; see the zero-size and short-object discussion in this
// package's design notes.
func (mo *MemoryObject) GetBoundsCheckOffsetN(ctx Context, offset expr.Expr, bytes uint) expr.Expr {
	if size, ok := mo.ConcreteSize(); ok && uint64(bytes) > size {
		return expr.NewBoolConstantExpr(false)
	}
	limit := expr.NewBinaryExpr(expr.SUB, mo.size, ctx.constant(uint64(bytes-1)))
	return expr.NewBinaryExpr(expr.ULT, offset, limit)
}

// GetBoundsCheckPointer returns the boolean expression asserting that
// pointer addresses a single byte within the object: its segment must be
// compatible and its offset relative to the object's base must be in
// range.
func (mo *MemoryObject) GetBoundsCheckPointer(ctx Context, pointer KValue) expr.Expr {
	return expr.NewBinaryExpr(expr.AND,
		mo.GetBoundsCheckSegment(ctx, pointer.Segment),
		mo.GetBoundsCheckOffset(ctx, mo.GetOffsetExpr(ctx, pointer.Offset)))
}

// GetBoundsCheckPointerN returns the boolean expression asserting that the
// bytes bytes starting at pointer all lie within the object.
func (mo *MemoryObject) GetBoundsCheckPointerN(ctx Context, pointer KValue, bytes uint) expr.Expr {
	return expr.NewBinaryExpr(expr.AND,
		mo.GetBoundsCheckSegment(ctx, pointer.Segment),
		mo.GetBoundsCheckOffsetN(ctx, mo.GetOffsetExpr(ctx, pointer.Offset), bytes))
}

// Compare orders mo against other: equal ids are equal objects; otherwise
// objects are ordered by address, then size, then alloc site name. This is
// used to give MemoryObjects a stable total order for diagnostics and for
// use as map/set keys alongside segment, not to imply any runtime meaning
// to the order.
func (mo *MemoryObject) Compare(other *MemoryObject) int {
	if mo.id == other.id {
		return 0
	}
	if mo.address != other.address {
		if mo.address < other.address {
			return -1
		}
		return 1
	}
	if cmp := expr.CompareExpr(mo.size, other.size); cmp != 0 {
		return cmp
	}
	an, bn := allocSiteName(mo.allocSite), allocSiteName(other.allocSite)
	if an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	return 0
}

func allocSiteName(a AllocSite) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// String returns a short diagnostic description of the object.
func (mo *MemoryObject) String() string {
	sizeStr := "symbolic"
	if size, ok := mo.ConcreteSize(); ok {
		sizeStr = fmt.Sprintf("%d", size)
	}
	return fmt.Sprintf("MO%d[seg=%d addr=%#x size=%s name=%q]", mo.id, mo.segment, mo.address, sizeStr, mo.name)
}
