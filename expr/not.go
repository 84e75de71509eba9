package expr

import "fmt"

// NotExpr is the bitwise complement of Expr.
type NotExpr struct {
	Expr Expr
}

// NewNotExpr returns the expression for the bitwise complement of e.
func NewNotExpr(e Expr) Expr {
	if c, ok := e.(*ConstantExpr); ok {
		return c.Not()
	}
	return &NotExpr{Expr: e}
}

// String returns the s-expression form of e.
func (e *NotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

func compareNotExpr(a, b *NotExpr) int {
	return CompareExpr(a.Expr, b.Expr)
}

// NotOptimizedExpr wraps Src to opt it out of constant folding: WalkExpr and
// Evaluator still see through it (CompareExpr orders it as its own kind, so
// it never compares equal to its bare Src), but constructors never fold the wrapped
// subtree into a constant even when it is statically known to be one. Used
// to mark expressions that must be re-examined symbolically, e.g. values a
// caller intends to solve for later.
type NotOptimizedExpr struct {
	Src Expr
}

// NewNotOptimizedExpr wraps src so constructors will not fold it.
func NewNotOptimizedExpr(src Expr) Expr {
	return &NotOptimizedExpr{Src: src}
}

// String returns the s-expression form of e.
func (e *NotOptimizedExpr) String() string {
	return fmt.Sprintf("(no-opt %s)", e.Src)
}

func compareNotOptimizedExpr(a, b *NotOptimizedExpr) int {
	return CompareExpr(a.Src, b.Src)
}
