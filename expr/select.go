package expr

import "fmt"

// SelectExpr is a ternary conditional: Cond picks between True and False.
// Cond is always WidthBool; True and False share a width, which is the
// width of the whole expression. This is the node svm.Select and KValue's
// ordered comparisons build when a condition cannot be resolved to a constant.
type SelectExpr struct {
	Cond  Expr
	True  Expr
	False Expr
}

// NewSelectExpr returns the expression choosing true when cond holds and
// false otherwise, resolving immediately when cond is constant or when both
// branches are the same expression.
func NewSelectExpr(cond, trueExpr, falseExpr Expr) Expr {
	assert(Width(cond) == WidthBool, "select: condition must be boolean")
	assert(Width(trueExpr) == Width(falseExpr), "select: branch width mismatch: %d != %d", Width(trueExpr), Width(falseExpr))

	if c, ok := cond.(*ConstantExpr); ok {
		if c.IsTrue() {
			return trueExpr
		}
		return falseExpr
	}

	if CompareExpr(trueExpr, falseExpr) == 0 {
		return trueExpr
	}

	return &SelectExpr{Cond: cond, True: trueExpr, False: falseExpr}
}

// String returns the s-expression form of e.
func (e *SelectExpr) String() string {
	return fmt.Sprintf("(select %s %s %s)", e.Cond, e.True, e.False)
}

func compareSelectExpr(a, b *SelectExpr) int {
	if cmp := CompareExpr(a.Cond, b.Cond); cmp != 0 {
		return cmp
	}
	if cmp := CompareExpr(a.True, b.True); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.False, b.False)
}
