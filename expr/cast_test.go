package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gosymvm/svm/expr"
)

func TestNewCastExpr(t *testing.T) {
	t.Run("SameWidthIsNoop", func(t *testing.T) {
		x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 8))
		if diff := cmp.Diff(x, expr.NewCastExpr(x, 8, false)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("NarrowingIsExtract", func(t *testing.T) {
		x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 32))
		if diff := cmp.Diff(expr.NewExtractExpr(x, 0, 8), expr.NewCastExpr(x, 8, false)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ZExtConstant", func(t *testing.T) {
		if diff := cmp.Diff(
			expr.NewConstantExpr(0xFF, 16),
			expr.NewCastExpr(expr.NewConstantExpr(0xFF, 8), 16, false),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("SExtConstant", func(t *testing.T) {
		if diff := cmp.Diff(
			expr.NewConstantExpr(0xFFFF, 16),
			expr.NewCastExpr(expr.NewConstantExpr(0xFF, 8), 16, true),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("SymbolicWidensToCastExpr", func(t *testing.T) {
		x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 8))
		got, ok := expr.NewCastExpr(x, 16, true).(*expr.CastExpr)
		if !ok {
			t.Fatalf("expected *expr.CastExpr, got %T", got)
		}
		if !got.Signed || got.Width != 16 {
			t.Fatalf("unexpected cast: %+v", got)
		}
	})
}

func TestCastExpr_String(t *testing.T) {
	x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 8))
	if s := expr.NewCastExpr(x, 16, true).String(); s != "(sext (no-opt (const 1 8)) 16)" {
		t.Fatalf("unexpected string: %s", s)
	}
	if s := expr.NewCastExpr(x, 16, false).String(); s != "(zext (no-opt (const 1 8)) 16)" {
		t.Fatalf("unexpected string: %s", s)
	}
}
