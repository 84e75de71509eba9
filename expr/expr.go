// Package expr implements the bit-vector term language used to describe
// symbolic memory contents: hash-friendly expression trees (immutable except
// where WalkExpr rewrites children in place) with
// constant-folding constructors, a total order for deduplication, and the
// array/update-list machinery backing symbolic reads and writes.
//
// Everything in this package is a pure term-rewriting layer. It never talks
// to a constraint solver and never allocates memory on behalf of a VM; it
// only builds and compares terms. Callers (package svm) treat it as an
// opaque expression kernel.
package expr

import "fmt"

// Standard bit widths used throughout the expression language.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// Expr is a node in a bit-vector expression tree. Every concrete
// implementation lives in this package; the interface is sealed so that
// CompareExpr and WalkExpr can switch over the full set of cases.
type Expr interface {
	fmt.Stringer
	expr()
}

func (*BinaryExpr) expr()       {}
func (*CastExpr) expr()         {}
func (*ConcatExpr) expr()       {}
func (*ConstantExpr) expr()     {}
func (*ExtractExpr) expr()      {}
func (*NotExpr) expr()          {}
func (*NotOptimizedExpr) expr() {}
func (*ReadExpr) expr()         {}
func (*SelectExpr) expr()       {}

// Width returns the bit width of e.
func Width(e Expr) uint {
	switch e := e.(type) {
	case *ConstantExpr:
		return e.Width
	case *NotOptimizedExpr:
		return Width(e.Src)
	case *ReadExpr:
		return Width8
	case *SelectExpr:
		return Width(e.True)
	case *ConcatExpr:
		return Width(e.MSB) + Width(e.LSB)
	case *ExtractExpr:
		return e.Width
	case *NotExpr:
		return Width(e.Expr)
	case *CastExpr:
		return e.Width
	case *BinaryExpr:
		if e.Op.IsCompare() {
			return WidthBool
		}
		return Width(e.LHS)
	default:
		panic("expr: unreachable")
	}
}

// assert panics if condition is false. Used for contract violations that a
// well-formed caller should never trigger.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("expr: assert: "+format, args...))
	}
}

// minBytes returns the smallest number of bytes that can hold bits.
func minBytes(bits uint) uint {
	return (bits + 7) / 8
}

// CompareExpr returns an integer comparing two expressions in a total
// order. The result is 0 if a==b, -1 if a < b, and +1 if a > b. The order
// has no semantic meaning beyond being stable and total; it exists so
// expressions can be deduplicated and sorted deterministically.
func CompareExpr(a, b Expr) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *ConstantExpr:
		return compareConstantExpr(a, b.(*ConstantExpr))
	case *NotOptimizedExpr:
		return compareNotOptimizedExpr(a, b.(*NotOptimizedExpr))
	case *ReadExpr:
		return compareReadExpr(a, b.(*ReadExpr))
	case *SelectExpr:
		return compareSelectExpr(a, b.(*SelectExpr))
	case *ConcatExpr:
		return compareConcatExpr(a, b.(*ConcatExpr))
	case *ExtractExpr:
		return compareExtractExpr(a, b.(*ExtractExpr))
	case *NotExpr:
		return compareNotExpr(a, b.(*NotExpr))
	case *CastExpr:
		return compareCastExpr(a, b.(*CastExpr))
	case *BinaryExpr:
		return compareBinaryExpr(a, b.(*BinaryExpr))
	default:
		panic("expr: unreachable")
	}
}

// exprKind returns a stable numeric tag for the dynamic type of e. Used only
// by CompareExpr to order expressions of different kinds.
func exprKind(e Expr) int {
	switch e.(type) {
	case *ConstantExpr:
		return 1
	case *NotOptimizedExpr:
		return 2
	case *ReadExpr:
		return 3
	case *SelectExpr:
		return 4
	case *ConcatExpr:
		return 5
	case *ExtractExpr:
		return 6
	case *NotExpr:
		return 7
	case *CastExpr:
		return 8
	case *BinaryExpr:
		return 9
	default:
		panic("expr: unreachable")
	}
}
