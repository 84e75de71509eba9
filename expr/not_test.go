package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gosymvm/svm/expr"
)

func TestNewNotExpr(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		if diff := cmp.Diff(
			expr.NewConstantExpr(0xFFFFFFF0, 32),
			expr.NewNotExpr(expr.NewConstantExpr(0x0F, 32)),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("DoubleNegationRoundTrips", func(t *testing.T) {
		c := expr.NewConstantExpr(0x5A, 8)
		if diff := cmp.Diff(c, expr.NewNotExpr(expr.NewNotExpr(c))); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNotExpr_String(t *testing.T) {
	x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 8))
	if s := expr.NewNotExpr(x).String(); s != "(not (no-opt (const 1 8)))" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestNewNotOptimizedExpr(t *testing.T) {
	// NotOptimizedExpr must survive wrapping a value that would otherwise
	// fold to a constant: the point of the node is to opt out of folding.
	c := expr.NewConstantExpr(7, 8)
	wrapped := expr.NewNotOptimizedExpr(c)
	if expr.IsConstantExpr(wrapped) {
		t.Fatal("expected wrapped expression not to be a constant")
	}
	if w := expr.Width(wrapped); w != 8 {
		t.Fatalf("unexpected width: %d", w)
	}
}

func TestNotOptimizedExpr_String(t *testing.T) {
	if s := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 8)).String(); s != "(no-opt (const 1 8))" {
		t.Fatalf("unexpected string: %s", s)
	}
}
