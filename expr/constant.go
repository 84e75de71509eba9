package expr

import "fmt"

// ConstantExpr is a fixed-width integer literal. It is the only Expr kind
// that every other constructor folds toward: whenever both operands of a
// binary, cast, extract, or concat constructor are constants, the result
// is computed immediately rather than represented as a tree.
type ConstantExpr struct {
	Value uint64
	Width uint
}

// NewConstantExpr returns a new width-bit constant, masking value to width.
func NewConstantExpr(value uint64, width uint) *ConstantExpr {
	return &ConstantExpr{
		Value: value & bitmask(width),
		Width: width,
	}
}

// NewConstantExpr8 returns an 8-bit constant.
func NewConstantExpr8(value uint64) *ConstantExpr { return NewConstantExpr(value, Width8) }

// NewConstantExpr16 returns a 16-bit constant.
func NewConstantExpr16(value uint64) *ConstantExpr { return NewConstantExpr(value, Width16) }

// NewConstantExpr32 returns a 32-bit constant.
func NewConstantExpr32(value uint64) *ConstantExpr { return NewConstantExpr(value, Width32) }

// NewConstantExpr64 returns a 64-bit constant.
func NewConstantExpr64(value uint64) *ConstantExpr { return NewConstantExpr(value, Width64) }

// NewBoolConstantExpr returns a WidthBool constant.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	if value {
		return &ConstantExpr{Value: 1, Width: WidthBool}
	}
	return &ConstantExpr{Value: 0, Width: WidthBool}
}

// String returns the s-expression form of e.
func (e *ConstantExpr) String() string {
	return fmt.Sprintf("(const %d %d)", e.Value, e.Width)
}

// IsTrue reports whether e is the WidthBool constant true.
func (e *ConstantExpr) IsTrue() bool { return e.Width == WidthBool && e.Value != 0 }

// IsFalse reports whether e is the WidthBool constant false.
func (e *ConstantExpr) IsFalse() bool { return e.Width == WidthBool && e.Value == 0 }

// IsAllOnes reports whether every bit of e is set.
func (e *ConstantExpr) IsAllOnes() bool { return e.Value == bitmask(e.Width) }

// IsZero reports whether e's value is zero.
func (e *ConstantExpr) IsZero() bool { return e.Value == 0 }

func (e *ConstantExpr) Add(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "add: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value+other.Value, e.Width)
}

func (e *ConstantExpr) Sub(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "sub: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value-other.Value, e.Width)
}

func (e *ConstantExpr) Mul(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "mul: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr((e.Value*other.Value)&bitmask(e.Width), e.Width)
}

func (e *ConstantExpr) UDiv(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "udiv: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)/uint8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)/uint16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)/uint32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(e.Value/other.Value, e.Width)
	default:
		panic(fmt.Sprintf("udiv: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) SDiv(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "sdiv: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(int8(e.Value)/int8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(int16(e.Value)/int16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(int32(e.Value)/int32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(uint64(int64(e.Value)/int64(other.Value)), e.Width)
	default:
		panic(fmt.Sprintf("sdiv: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) URem(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "urem: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)%uint8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)%uint16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)%uint32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(e.Value%other.Value, e.Width)
	default:
		panic(fmt.Sprintf("urem: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) SRem(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "srem: width mismatch: %d != %d", e.Width, other.Width)
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(int8(e.Value)%int8(other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(int16(e.Value)%int16(other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(int32(e.Value)%int32(other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(uint64(int64(e.Value)%int64(other.Value)), e.Width)
	default:
		panic(fmt.Sprintf("srem: non-standard width: %d", e.Width))
	}
}

func (e *ConstantExpr) And(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "and: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value&other.Value, e.Width)
}

func (e *ConstantExpr) Or(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "or: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value|other.Value, e.Width)
}

func (e *ConstantExpr) Xor(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "xor: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExpr(e.Value^other.Value, e.Width)
}

func (e *ConstantExpr) Shl(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)<<other.Value), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)<<other.Value), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)<<other.Value), e.Width)
	case Width64:
		return NewConstantExpr(e.Value<<other.Value, e.Width)
	default:
		panic("shl: non-standard width")
	}
}

func (e *ConstantExpr) LShr(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(e.Value)>>other.Value), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(e.Value)>>other.Value), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(e.Value)>>other.Value), e.Width)
	case Width64:
		return NewConstantExpr(e.Value>>other.Value, e.Width)
	default:
		panic("lshr: non-standard width")
	}
}

func (e *ConstantExpr) AShr(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewConstantExpr(uint64(uint8(int8(e.Value)>>other.Value)), e.Width)
	case Width16:
		return NewConstantExpr(uint64(uint16(int16(e.Value)>>other.Value)), e.Width)
	case Width32:
		return NewConstantExpr(uint64(uint32(int32(e.Value)>>other.Value)), e.Width)
	case Width64:
		return NewConstantExpr(uint64(int64(e.Value)>>other.Value), e.Width)
	default:
		panic("ashr: non-standard width")
	}
}

func (e *ConstantExpr) Eq(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "eq: width mismatch: %d != %d", e.Width, other.Width)
	return NewBoolConstantExpr(e.Value == other.Value)
}

func (e *ConstantExpr) Ult(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(uint8(e.Value) < uint8(other.Value))
	case Width16:
		return NewBoolConstantExpr(uint16(e.Value) < uint16(other.Value))
	case Width32:
		return NewBoolConstantExpr(uint32(e.Value) < uint32(other.Value))
	case Width64:
		return NewBoolConstantExpr(e.Value < other.Value)
	default:
		panic("ult: non-standard width")
	}
}

func (e *ConstantExpr) Ugt(other *ConstantExpr) *ConstantExpr { return other.Ult(e) }

func (e *ConstantExpr) Ule(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(uint8(e.Value) <= uint8(other.Value))
	case Width16:
		return NewBoolConstantExpr(uint16(e.Value) <= uint16(other.Value))
	case Width32:
		return NewBoolConstantExpr(uint32(e.Value) <= uint32(other.Value))
	case Width64:
		return NewBoolConstantExpr(e.Value <= other.Value)
	default:
		panic("ule: non-standard width")
	}
}

func (e *ConstantExpr) Uge(other *ConstantExpr) *ConstantExpr { return other.Ule(e) }

func (e *ConstantExpr) Slt(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(int8(e.Value) < int8(other.Value))
	case Width16:
		return NewBoolConstantExpr(int16(e.Value) < int16(other.Value))
	case Width32:
		return NewBoolConstantExpr(int32(e.Value) < int32(other.Value))
	case Width64:
		return NewBoolConstantExpr(int64(e.Value) < int64(other.Value))
	default:
		panic("slt: non-standard width")
	}
}

func (e *ConstantExpr) Sgt(other *ConstantExpr) *ConstantExpr { return other.Slt(e) }

func (e *ConstantExpr) Sle(other *ConstantExpr) *ConstantExpr {
	switch e.Width {
	case Width8:
		return NewBoolConstantExpr(int8(e.Value) <= int8(other.Value))
	case Width16:
		return NewBoolConstantExpr(int16(e.Value) <= int16(other.Value))
	case Width32:
		return NewBoolConstantExpr(int32(e.Value) <= int32(other.Value))
	case Width64:
		return NewBoolConstantExpr(int64(e.Value) <= int64(other.Value))
	default:
		panic("sle: non-standard width")
	}
}

func (e *ConstantExpr) Sge(other *ConstantExpr) *ConstantExpr { return other.Sle(e) }

// ZExt returns e zero-extended (or truncated) to width.
func (e *ConstantExpr) ZExt(width uint) *ConstantExpr {
	if e.Width == width {
		return e
	} else if width == WidthBool {
		return NewBoolConstantExpr(e.Value != 0)
	}
	return NewConstantExpr(e.Value, width)
}

// SExt returns e sign-extended (or truncated) to width.
func (e *ConstantExpr) SExt(width uint) *ConstantExpr {
	if e.Width == width {
		return e
	}

	switch width {
	case Width8:
		switch e.Width {
		case Width16:
			return NewConstantExpr(uint64(int16(int8(e.Value))), width)
		case Width32:
			return NewConstantExpr(uint64(int32(int8(e.Value))), width)
		case Width64:
			return NewConstantExpr(uint64(int64(int8(e.Value))), width)
		}
	case Width16:
		switch e.Width {
		case Width8:
			return NewConstantExpr(uint64(int8(int16(e.Value))), width)
		case Width32:
			return NewConstantExpr(uint64(int32(int16(e.Value))), width)
		case Width64:
			return NewConstantExpr(uint64(int64(int16(e.Value))), width)
		}
	case Width32:
		switch e.Width {
		case Width8:
			return NewConstantExpr(uint64(int8(int32(e.Value))), width)
		case Width16:
			return NewConstantExpr(uint64(int16(int32(e.Value))), width)
		case Width64:
			return NewConstantExpr(uint64(int64(int32(e.Value))), width)
		}
	case Width64:
		switch e.Width {
		case Width8:
			return NewConstantExpr(uint64(int8(int64(e.Value))), width)
		case Width16:
			return NewConstantExpr(uint64(int16(int64(e.Value))), width)
		case Width32:
			return NewConstantExpr(uint64(int32(int64(e.Value))), width)
		}
	}
	panic(fmt.Sprintf("sext: non-standard width: %d -> %d", e.Width, width))
}

func (e *ConstantExpr) Not() *ConstantExpr {
	return NewConstantExpr((^e.Value)&bitmask(e.Width), e.Width)
}

// Extract returns width bits of e starting at bit offset.
func (e *ConstantExpr) Extract(offset, width uint) *ConstantExpr {
	return NewConstantExpr(uint64(int64(e.Value)>>offset)&bitmask(e.Width), width)
}

// Concat returns e as the most-significant bits concatenated with lsb.
func (e *ConstantExpr) Concat(lsb *ConstantExpr) *ConstantExpr {
	return NewConstantExpr((e.Value<<lsb.Width)|lsb.Value, e.Width+lsb.Width)
}

func bitmask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// IsConstantExpr reports whether e is a *ConstantExpr.
func IsConstantExpr(e Expr) bool {
	_, ok := e.(*ConstantExpr)
	return ok
}

// IsConstantTrue reports whether e is the constant true.
func IsConstantTrue(e Expr) bool {
	c, ok := e.(*ConstantExpr)
	return ok && c.IsTrue()
}

// IsConstantFalse reports whether e is the constant false.
func IsConstantFalse(e Expr) bool {
	c, ok := e.(*ConstantExpr)
	return ok && c.IsFalse()
}

// NewIsZeroExpr returns an expression for (other == 0).
func NewIsZeroExpr(other Expr) Expr {
	return NewBinaryExpr(EQ, other, NewConstantExpr(0, Width(other)))
}

func compareConstantExpr(a, b *ConstantExpr) int {
	if a.Width < b.Width {
		return -1
	} else if a.Width > b.Width {
		return 1
	}
	if a.Value < b.Value {
		return -1
	} else if a.Value > b.Value {
		return 1
	}
	return 0
}
