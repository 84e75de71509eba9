package expr

import "fmt"

// ExtractExpr selects Width bits of Expr starting at bit Offset.
type ExtractExpr struct {
	Expr   Expr
	Offset uint
	Width  uint
}

// NewExtractExpr returns the expression extracting width bits of e starting
// at bit offset, folding constants and pushing the extraction through
// concatenations so extracted subtrees stay small.
func NewExtractExpr(e Expr, offset uint, width uint) Expr {
	ew := Width(e)
	assert(width > 0, "extract: width cannot be zero")
	assert(offset+width <= ew, "extract: out of bounds: %d+%d > %d", offset, width, ew)

	if width == ew {
		return e
	} else if c, ok := e.(*ConstantExpr); ok {
		return c.Extract(offset, width)
	}

	if c, ok := e.(*ConcatExpr); ok {
		if offset >= Width(c.LSB) {
			return NewExtractExpr(c.MSB, offset-Width(c.LSB), width)
		}
		if offset+width <= Width(c.LSB) {
			return NewExtractExpr(c.LSB, offset, width)
		}
		return NewConcatExpr(
			NewExtractExpr(c.MSB, 0, width-Width(c.LSB)+offset),
			NewExtractExpr(c.LSB, offset, Width(c.LSB)-offset),
		)
	}

	return &ExtractExpr{Expr: e, Offset: offset, Width: width}
}

// String returns the s-expression form of e.
func (e *ExtractExpr) String() string {
	return fmt.Sprintf("(extract %s %d %d)", e.Expr, e.Offset, e.Width)
}

func compareExtractExpr(a, b *ExtractExpr) int {
	if a.Offset < b.Offset {
		return -1
	} else if a.Offset > b.Offset {
		return 1
	}
	if a.Width < b.Width {
		return -1
	} else if a.Width > b.Width {
		return 1
	}
	return CompareExpr(a.Expr, b.Expr)
}
