package expr

import (
	"fmt"
	"sort"
)

// ExprVisitor is passed to WalkExpr to traverse or rewrite an expression
// tree. Visit is called for every node; returning a nil ExprVisitor stops
// the walk from descending into that node's children.
type ExprVisitor interface {
	Visit(e Expr) (Expr, ExprVisitor)
}

// WalkExpr traverses e depth-first, calling v.Visit on every node and
// rewriting children in place when Visit returns a different expression.
func WalkExpr(v ExprVisitor, e Expr) Expr {
	other, v := v.Visit(e)
	if v == nil {
		return other
	}

	switch e := e.(type) {
	case *BinaryExpr:
		if o := WalkExpr(v, e.LHS); o != e.LHS {
			e.LHS = o
		}
		if o := WalkExpr(v, e.RHS); o != e.RHS {
			e.RHS = o
		}
	case *CastExpr:
		if o := WalkExpr(v, e.Src); o != e.Src {
			e.Src = o
		}
	case *ConcatExpr:
		if o := WalkExpr(v, e.MSB); o != e.MSB {
			e.MSB = o
		}
		if o := WalkExpr(v, e.LSB); o != e.LSB {
			e.LSB = o
		}
	case *ConstantExpr:
		// leaf
	case *ExtractExpr:
		if o := WalkExpr(v, e.Expr); o != e.Expr {
			e.Expr = o
		}
	case *NotExpr:
		if o := WalkExpr(v, e.Expr); o != e.Expr {
			e.Expr = o
		}
	case *NotOptimizedExpr:
		if o := WalkExpr(v, e.Src); o != e.Src {
			e.Src = o
		}
	case *SelectExpr:
		if o := WalkExpr(v, e.Cond); o != e.Cond {
			e.Cond = o
		}
		if o := WalkExpr(v, e.True); o != e.True {
			e.True = o
		}
		if o := WalkExpr(v, e.False); o != e.False {
			e.False = o
		}
	case *ReadExpr:
		if o := WalkExpr(v, e.Index); o != e.Index {
			e.Index = o
		}
		for n := e.Updates.Head; n != nil; n = n.Next {
			if o := WalkExpr(v, n.Index); o != n.Index {
				n.Index = o
			}
			if o := WalkExpr(v, n.Value); o != n.Value {
				n.Value = o
			}
		}
	default:
		panic("expr: unreachable")
	}

	return other
}

// FindArrays returns every distinct Array referenced transitively by exprs,
// sorted by CompareArray. Used to discover which symbolic arrays a set of
// path constraints or memory reads actually depend on, e.g. to decide what
// to ask a solver to bind.
func FindArrays(exprs ...Expr) []*Array {
	v := newArrayVisitor()
	for _, e := range exprs {
		WalkExpr(v, e)
	}

	arrays := make([]*Array, 0, len(v.seen))
	for _, a := range v.seen {
		arrays = append(arrays, a)
	}
	sort.Slice(arrays, func(i, j int) bool { return CompareArray(arrays[i], arrays[j]) < 0 })
	return arrays
}

type arrayVisitor struct {
	seen map[uint64]*Array
}

func newArrayVisitor() *arrayVisitor {
	return &arrayVisitor{seen: make(map[uint64]*Array)}
}

func (v *arrayVisitor) Visit(e Expr) (Expr, ExprVisitor) {
	if r, ok := e.(*ReadExpr); ok {
		if _, ok := v.seen[r.Updates.Root.ID]; !ok {
			v.seen[r.Updates.Root.ID] = r.Updates.Root
		}
	}
	return e, v
}

// Evaluator resolves expressions to constants given concrete bindings for a
// set of arrays. It is a pure, solver-free evaluator used to concretize
// expressions once an assignment (such as one returned by a Solver) is
// known; the assignment itself is always produced elsewhere.
type Evaluator struct {
	values map[uint64][]byte // array id -> concrete bytes
}

// NewEvaluator returns an Evaluator binding each array in arrays to the
// corresponding byte slice in values.
func NewEvaluator(arrays []*Array, values [][]byte) *Evaluator {
	assert(len(arrays) == len(values), "evaluator: array/value count mismatch: %d != %d", len(arrays), len(values))

	m := make(map[uint64][]byte, len(arrays))
	for i, a := range arrays {
		_, dup := m[a.ID]
		assert(!dup, "evaluator: duplicate array: id=%d", a.ID)
		m[a.ID] = values[i]
	}
	return &Evaluator{values: m}
}

// Evaluate resolves e to a constant, returning an error if e transitively
// reads from an array this Evaluator has no binding for.
func (ev *Evaluator) Evaluate(e Expr) (*ConstantExpr, error) {
	switch e := e.(type) {
	case *BinaryExpr:
		lhs, err := ev.Evaluate(e.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ev.Evaluate(e.RHS)
		if err != nil {
			return nil, err
		}
		return NewBinaryExpr(e.Op, lhs, rhs).(*ConstantExpr), nil
	case *CastExpr:
		src, err := ev.Evaluate(e.Src)
		if err != nil {
			return nil, err
		}
		return NewCastExpr(src, e.Width, e.Signed).(*ConstantExpr), nil
	case *ConcatExpr:
		msb, err := ev.Evaluate(e.MSB)
		if err != nil {
			return nil, err
		}
		lsb, err := ev.Evaluate(e.LSB)
		if err != nil {
			return nil, err
		}
		return NewConcatExpr(msb, lsb).(*ConstantExpr), nil
	case *ConstantExpr:
		return e, nil
	case *ExtractExpr:
		src, err := ev.Evaluate(e.Expr)
		if err != nil {
			return nil, err
		}
		return NewExtractExpr(src, e.Offset, e.Width).(*ConstantExpr), nil
	case *NotExpr:
		src, err := ev.Evaluate(e.Expr)
		if err != nil {
			return nil, err
		}
		return NewNotExpr(src).(*ConstantExpr), nil
	case *NotOptimizedExpr:
		return ev.Evaluate(e.Src)
	case *SelectExpr:
		cond, err := ev.Evaluate(e.Cond)
		if err != nil {
			return nil, err
		}
		if cond.IsTrue() {
			return ev.Evaluate(e.True)
		}
		return ev.Evaluate(e.False)
	case *ReadExpr:
		i, err := ev.Evaluate(e.Index)
		if err != nil {
			return nil, err
		}

		for n := e.Updates.Head; n != nil; n = n.Next {
			idx, err := ev.Evaluate(n.Index)
			if err != nil {
				return nil, err
			} else if idx.Value != i.Value {
				continue
			}
			return ev.Evaluate(n.Value)
		}

		initial, ok := ev.values[e.Updates.Root.ID]
		if !ok {
			return nil, fmt.Errorf("expr: array not bound: id=%d", e.Updates.Root.ID)
		} else if i.Value >= uint64(len(initial)) {
			return nil, fmt.Errorf("expr: read index out of bounds: %d >= %d", i.Value, len(initial))
		}
		return NewConstantExpr(uint64(initial[i.Value]), Width8), nil
	default:
		return nil, fmt.Errorf("expr: cannot evaluate %T", e)
	}
}
