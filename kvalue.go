package svm

import "github.com/gosymvm/svm/expr"

// KValue is a pointer-carrying value: a (segment, offset) pair. Segment
// names which memory object a value is provenance-tied to (zero for
// ordinary scalars); offset is the value itself, or the byte offset into
// the object when segment is non-zero. Every arithmetic and comparison
// operator on KValue operates on both components together so that pointer
// provenance survives ordinary integer arithmetic without having to special
// case "is this actually a pointer" at each call site.
type KValue struct {
	Segment expr.Expr
	Offset  expr.Expr
}

// NewKValue returns the pair (segment, offset).
func NewKValue(segment, offset expr.Expr) KValue {
	return KValue{Segment: segment, Offset: offset}
}

// NewScalar returns a KValue with a zero segment, i.e. an ordinary value
// with no pointer provenance.
func NewScalar(offset expr.Expr) KValue {
	return KValue{Segment: expr.NewConstantExpr(0, expr.Width(offset)), Offset: offset}
}

// Width returns the bit width of the offset component.
func (k KValue) Width() uint {
	return expr.Width(k.Offset)
}

// IsConstant reports whether both components are constant.
func (k KValue) IsConstant() bool {
	return expr.IsConstantExpr(k.Segment) && expr.IsConstantExpr(k.Offset)
}

// IsZero returns the boolean expression for whether k is null: both its
// segment and its offset are zero.
func (k KValue) IsZero() expr.Expr {
	return expr.NewBinaryExpr(expr.AND, expr.NewIsZeroExpr(k.Segment), expr.NewIsZeroExpr(k.Offset))
}

// String returns "segment:offset", or just "offset" when the segment is
// the constant zero, matching klee's KValue::print, which omits a segment
// prefix for ordinary (non-pointer) values.
func (k KValue) String() string {
	if c, ok := k.Segment.(*expr.ConstantExpr); ok && c.IsZero() {
		return k.Offset.String()
	}
	return k.Segment.String() + ":" + k.Offset.String()
}

// segmentOfSameObject returns whichever of a and b is not the constant
// zero, preferring a when neither is. Add, Sub and Concat do not call it;
// they combine both segments with the same operation as the offsets.
func segmentOfSameObject(a, b expr.Expr) expr.Expr {
	if c, ok := a.(*expr.ConstantExpr); ok && c.IsZero() {
		return b
	}
	return a
}

func zeroSegment(width uint) expr.Expr {
	return expr.NewConstantExpr(0, width)
}

// Add returns k+other, adding segments as well as offsets: a pointer plus
// a zero-segment scalar keeps the pointer's segment.
func (k KValue) Add(other KValue) KValue {
	return KValue{
		Segment: expr.NewBinaryExpr(expr.ADD, k.Segment, other.Segment),
		Offset:  expr.NewBinaryExpr(expr.ADD, k.Offset, other.Offset),
	}
}

// Sub returns k-other, subtracting segments as well as offsets: a pointer
// minus a scalar keeps its segment, and the difference of two pointers into
// the same object has a zero segment.
func (k KValue) Sub(other KValue) KValue {
	return KValue{
		Segment: expr.NewBinaryExpr(expr.SUB, k.Segment, other.Segment),
		Offset:  expr.NewBinaryExpr(expr.SUB, k.Offset, other.Offset),
	}
}

// Concat returns k as the most-significant bits concatenated with lsb's
// least-significant bits, concatenating the segments the same way.
func (k KValue) Concat(lsb KValue) KValue {
	return KValue{
		Segment: expr.NewConcatExpr(k.Segment, lsb.Segment),
		Offset:  expr.NewConcatExpr(k.Offset, lsb.Offset),
	}
}

// Mul returns k*other. Multiplying two pointers is meaningless, but the
// segment still needs to add (not zero out) so that the identity 1*p==p
// holds when p is a pointer and the other operand is the zero-segment
// scalar 1.
func (k KValue) Mul(other KValue) KValue {
	return KValue{
		Segment: expr.NewBinaryExpr(expr.ADD, k.Segment, other.Segment),
		Offset:  expr.NewBinaryExpr(expr.MUL, k.Offset, other.Offset),
	}
}

// binarySegmentZero implements the operators for which a pointer result
// never makes sense (division, remainder, bitwise and shift operators):
// the offset is computed normally but the segment is unconditionally zero.
func (k KValue) binarySegmentZero(op expr.BinaryOp, other KValue) KValue {
	return KValue{
		Segment: zeroSegment(expr.Width(k.Segment)),
		Offset:  expr.NewBinaryExpr(op, k.Offset, other.Offset),
	}
}

func (k KValue) UDiv(other KValue) KValue { return k.binarySegmentZero(expr.UDIV, other) }
func (k KValue) SDiv(other KValue) KValue { return k.binarySegmentZero(expr.SDIV, other) }
func (k KValue) URem(other KValue) KValue { return k.binarySegmentZero(expr.UREM, other) }
func (k KValue) SRem(other KValue) KValue { return k.binarySegmentZero(expr.SREM, other) }
func (k KValue) And(other KValue) KValue  { return k.binarySegmentZero(expr.AND, other) }
func (k KValue) Or(other KValue) KValue   { return k.binarySegmentZero(expr.OR, other) }
func (k KValue) Xor(other KValue) KValue  { return k.binarySegmentZero(expr.XOR, other) }
func (k KValue) Shl(other KValue) KValue  { return k.binarySegmentZero(expr.SHL, other) }
func (k KValue) LShr(other KValue) KValue { return k.binarySegmentZero(expr.LSHR, other) }
func (k KValue) AShr(other KValue) KValue { return k.binarySegmentZero(expr.ASHR, other) }

// lexicographicCompare implements the ordering operators (Ult, Ule, Ugt,
// ...): pointers into different objects are ordered by segment first, and
// only compared by offset when the segments are equal. This matches
// klee's _op_seg_cmp_lexicographic macro, which builds the comparison as a
// select on segment equality rather than special-casing it at call sites.
func lexicographicCompare(op expr.BinaryOp, a, b KValue) expr.Expr {
	sameSegment := expr.NewBinaryExpr(expr.EQ, a.Segment, b.Segment)
	return expr.NewSelectExpr(sameSegment,
		expr.NewBinaryExpr(op, a.Offset, b.Offset),
		expr.NewBinaryExpr(op, a.Segment, b.Segment),
	)
}

func (k KValue) Ult(other KValue) expr.Expr { return lexicographicCompare(expr.ULT, k, other) }
func (k KValue) Ule(other KValue) expr.Expr { return lexicographicCompare(expr.ULE, k, other) }
func (k KValue) Ugt(other KValue) expr.Expr { return lexicographicCompare(expr.UGT, k, other) }
func (k KValue) Uge(other KValue) expr.Expr { return lexicographicCompare(expr.UGE, k, other) }
func (k KValue) Slt(other KValue) expr.Expr { return lexicographicCompare(expr.SLT, k, other) }
func (k KValue) Sle(other KValue) expr.Expr { return lexicographicCompare(expr.SLE, k, other) }
func (k KValue) Sgt(other KValue) expr.Expr { return lexicographicCompare(expr.SGT, k, other) }
func (k KValue) Sge(other KValue) expr.Expr { return lexicographicCompare(expr.SGE, k, other) }

// Eq returns the boolean expression for k==other: both segment and offset
// must match, since two pointers with equal offsets into different objects
// are not the same pointer.
func (k KValue) Eq(other KValue) expr.Expr {
	return expr.NewBinaryExpr(expr.AND,
		expr.NewBinaryExpr(expr.EQ, k.Segment, other.Segment),
		expr.NewBinaryExpr(expr.EQ, k.Offset, other.Offset))
}

// Ne returns the boolean expression for k!=other.
func (k KValue) Ne(other KValue) expr.Expr {
	return expr.NewNotExpr(k.Eq(other))
}

// Select returns the KValue choosing trueVal when cond holds and falseVal
// otherwise, distributing the select over both segment and offset
// independently so a symbolic choice between two pointers stays provenance
// correct on both halves.
func Select(cond expr.Expr, trueVal, falseVal KValue) KValue {
	return KValue{
		Segment: expr.NewSelectExpr(cond, trueVal.Segment, falseVal.Segment),
		Offset:  expr.NewSelectExpr(cond, trueVal.Offset, falseVal.Offset),
	}
}

// Extract returns width bits of k starting at bit offset, slicing the
// segment and the offset alike.
func (k KValue) Extract(bitOffset, width uint) KValue {
	return KValue{
		Segment: expr.NewExtractExpr(k.Segment, bitOffset, width),
		Offset:  expr.NewExtractExpr(k.Offset, bitOffset, width),
	}
}

// ZExt returns k zero-extended to width bits. Segment and offset are both
// extended, so they keep equal widths.
func (k KValue) ZExt(width uint) KValue {
	return KValue{Segment: expr.NewCastExpr(k.Segment, width, false), Offset: expr.NewCastExpr(k.Offset, width, false)}
}

// SExt returns k sign-extended to width bits, extending segment and offset
// alike.
func (k KValue) SExt(width uint) KValue {
	return KValue{Segment: expr.NewCastExpr(k.Segment, width, true), Offset: expr.NewCastExpr(k.Offset, width, true)}
}

// ConcatValues concatenates the offsets of vs, most-significant first,
// ignoring segments. Used to assemble a plain multi-fragment value (for
// example the result of several byte reads) where provenance does not
// apply to the combined result.
func ConcatValues(vs ...KValue) expr.Expr {
	assert(len(vs) > 0, "kvalue: ConcatValues requires at least one value")
	result := vs[0].Offset
	for _, v := range vs[1:] {
		result = expr.NewConcatExpr(result, v.Offset)
	}
	return result
}
