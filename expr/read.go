package expr

import "fmt"

// ReadExpr is a single byte read from an UpdateList at a symbolic index.
// It is the leaf expression a solver must actually reason about arrays
// through; every other array access (UpdateList.ReadByte, UpdateList.Read) resolves
// to a constant or folds to one of these before reaching the solver.
type ReadExpr struct {
	Updates UpdateList
	Index   Expr
}

// NewReadExpr returns the expression reading one byte at index from updates.
func NewReadExpr(updates UpdateList, index Expr) Expr {
	return &ReadExpr{Updates: updates, Index: index}
}

// String returns the s-expression form of e.
func (e *ReadExpr) String() string {
	return fmt.Sprintf("(read %s %s)", e.Updates, e.Index)
}

func compareReadExpr(a, b *ReadExpr) int {
	if cmp := CompareExpr(a.Index, b.Index); cmp != 0 {
		return cmp
	}
	return CompareUpdateList(a.Updates, b.Updates)
}
