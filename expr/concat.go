package expr

import "fmt"

// ConcatExpr joins two expressions bitwise, MSB above LSB.
type ConcatExpr struct {
	MSB Expr
	LSB Expr
}

// NewConcatExpr returns the expression for the bitwise concatenation of
// msb above lsb, folding constants and merging contiguous extracts.
func NewConcatExpr(msb, lsb Expr) Expr {
	if msb, ok := msb.(*ConstantExpr); ok {
		if lsb, ok := lsb.(*ConstantExpr); ok {
			return msb.Concat(lsb)
		}
	}

	if msb, ok := msb.(*ExtractExpr); ok {
		if lsb, ok := lsb.(*ExtractExpr); ok {
			if CompareExpr(msb.Expr, lsb.Expr) == 0 && lsb.Offset+lsb.Width == msb.Offset {
				return NewExtractExpr(msb.Expr, lsb.Offset, msb.Width+lsb.Width)
			}
		}
	}

	return &ConcatExpr{MSB: msb, LSB: lsb}
}

// String returns the s-expression form of e.
func (e *ConcatExpr) String() string {
	return fmt.Sprintf("(concat %s %s)", e.MSB, e.LSB)
}

func compareConcatExpr(a, b *ConcatExpr) int {
	if cmp := CompareExpr(a.MSB, b.MSB); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.LSB, b.LSB)
}
