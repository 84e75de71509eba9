package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gosymvm/svm/expr"
)

func TestNewExtractExpr(t *testing.T) {
	t.Run("FullWidthIsNoop", func(t *testing.T) {
		x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(1, 8))
		if diff := cmp.Diff(x, expr.NewExtractExpr(x, 0, 8)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Constant", func(t *testing.T) {
		if diff := cmp.Diff(
			expr.NewConstantExpr(0x12, 8),
			expr.NewExtractExpr(expr.NewConstantExpr(0x1234, 16), 8, 8),
		); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("PushesThroughConcatMSB", func(t *testing.T) {
		msb := expr.NewNotOptimizedExpr(expr.NewConstantExpr(0xAB, 8))
		lsb := expr.NewConstantExpr(0xCD, 8)
		c := expr.NewConcatExpr(msb, lsb)
		if diff := cmp.Diff(msb, expr.NewExtractExpr(c, 8, 8)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("PushesThroughConcatLSB", func(t *testing.T) {
		msb := expr.NewConstantExpr(0xAB, 8)
		lsb := expr.NewNotOptimizedExpr(expr.NewConstantExpr(0xCD, 8))
		c := expr.NewConcatExpr(msb, lsb)
		if diff := cmp.Diff(lsb, expr.NewExtractExpr(c, 0, 8)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("PanicsOnOutOfBounds", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		expr.NewExtractExpr(expr.NewConstantExpr(0, 8), 4, 8)
	})
}

func TestExtractExpr_String(t *testing.T) {
	x := expr.NewNotOptimizedExpr(expr.NewConstantExpr(0, 32))
	if s := expr.NewExtractExpr(x, 8, 16).String(); s != "(extract (no-opt (const 0 32)) 8 16)" {
		t.Fatalf("unexpected string: %s", s)
	}
}
