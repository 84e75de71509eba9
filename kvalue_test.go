package svm_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gosymvm/svm"
	"github.com/gosymvm/svm/expr"
)

func ptr(segment, offset uint64) svm.KValue {
	return svm.NewKValue(expr.NewConstantExpr(segment, 64), expr.NewConstantExpr(offset, 64))
}

func scalar(v uint64) svm.KValue {
	return svm.NewScalar(expr.NewConstantExpr(v, 64))
}

func TestKValue_Width(t *testing.T) {
	if w := scalar(1).Width(); w != 64 {
		t.Fatalf("unexpected width: %d", w)
	}
}

func TestNewScalar_HasZeroSegment(t *testing.T) {
	s := scalar(5)
	if expr.IsConstantTrue(s.IsZero()) {
		t.Fatal("expected IsZero false for a non-zero offset")
	}
	if diff := cmp.Diff(expr.NewConstantExpr(0, 64), s.Segment); diff != "" {
		t.Fatal(diff)
	}
}

func TestKValue_IsZero(t *testing.T) {
	if !expr.IsConstantTrue(scalar(0).IsZero()) {
		t.Fatal("expected IsZero true for a zero offset")
	}
}

func TestKValue_Add_PreservesPointerSegment(t *testing.T) {
	p := ptr(7, 100)
	got := p.Add(scalar(4))
	if diff := cmp.Diff(expr.NewConstantExpr(7, 64), got.Segment); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(expr.NewConstantExpr(104, 64), got.Offset); diff != "" {
		t.Fatal(diff)
	}
}

func TestKValue_Add_Associative(t *testing.T) {
	a := scalar(3)
	b := scalar(5)
	c := scalar(7)

	left := a.Add(b).Add(c)
	right := a.Add(b.Add(c))
	if diff := cmp.Diff(left, right); diff != "" {
		t.Fatal(diff)
	}
}

func TestKValue_Sub_PreservesPointerSegment(t *testing.T) {
	p := ptr(7, 100)
	got := p.Sub(scalar(4))
	if diff := cmp.Diff(expr.NewConstantExpr(7, 64), got.Segment); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(expr.NewConstantExpr(96, 64), got.Offset); diff != "" {
		t.Fatal(diff)
	}
}

func TestKValue_Mul_IdentityPreservesPointer(t *testing.T) {
	p := ptr(7, 100)
	one := scalar(1)

	got := p.Mul(one)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatal(diff)
	}

	got2 := one.Mul(p)
	if diff := cmp.Diff(p, got2); diff != "" {
		t.Fatal(diff)
	}
}

func TestKValue_BinarySegmentZero(t *testing.T) {
	p := ptr(7, 100)
	tests := []struct {
		name string
		fn   func(svm.KValue, svm.KValue) svm.KValue
	}{
		{"UDiv", svm.KValue.UDiv},
		{"SDiv", svm.KValue.SDiv},
		{"URem", svm.KValue.URem},
		{"SRem", svm.KValue.SRem},
		{"And", svm.KValue.And},
		{"Or", svm.KValue.Or},
		{"Xor", svm.KValue.Xor},
		{"Shl", svm.KValue.Shl},
		{"LShr", svm.KValue.LShr},
		{"AShr", svm.KValue.AShr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(p, scalar(1))
			if !got.Segment.(*expr.ConstantExpr).IsZero() {
				t.Fatalf("%s: expected zero segment, got %s", tt.name, got.Segment)
			}
		})
	}
}

func TestKValue_LexicographicCompare(t *testing.T) {
	t.Run("DifferentSegmentsComparedBySegment", func(t *testing.T) {
		a := ptr(1, 100) // higher offset, lower segment
		b := ptr(2, 0)
		if !expr.IsConstantTrue(a.Ult(b)) {
			t.Fatal("expected a < b by segment, despite a's larger offset")
		}
	})
	t.Run("SameSegmentComparedByOffset", func(t *testing.T) {
		a := ptr(1, 5)
		b := ptr(1, 10)
		if !expr.IsConstantTrue(a.Ult(b)) {
			t.Fatal("expected a < b by offset within the same segment")
		}
	})
	t.Run("Ugt", func(t *testing.T) {
		a := ptr(2, 0)
		b := ptr(1, 100)
		if !expr.IsConstantTrue(a.Ugt(b)) {
			t.Fatal("expected a > b by segment")
		}
	})
}

func TestKValue_Eq(t *testing.T) {
	t.Run("SameSegmentAndOffset", func(t *testing.T) {
		a, b := ptr(3, 9), ptr(3, 9)
		if !expr.IsConstantTrue(a.Eq(b)) {
			t.Fatal("expected equal")
		}
	})
	t.Run("SameOffsetDifferentSegment", func(t *testing.T) {
		a, b := ptr(3, 9), ptr(4, 9)
		if !expr.IsConstantFalse(a.Eq(b)) {
			t.Fatal("expected not equal despite matching offsets")
		}
	})
	t.Run("Ne", func(t *testing.T) {
		a, b := ptr(3, 9), ptr(4, 9)
		if !expr.IsConstantTrue(a.Ne(b)) {
			t.Fatal("expected Ne true")
		}
	})
}

func TestSelect(t *testing.T) {
	a := ptr(1, 10)
	b := ptr(2, 20)

	t.Run("True", func(t *testing.T) {
		got := svm.Select(expr.NewBoolConstantExpr(true), a, b)
		if diff := cmp.Diff(a, got); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("False", func(t *testing.T) {
		got := svm.Select(expr.NewBoolConstantExpr(false), a, b)
		if diff := cmp.Diff(b, got); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestKValue_Extract_SlicesSegment(t *testing.T) {
	p := ptr(7, 0x1234)
	got := p.Extract(0, 16)
	if diff := cmp.Diff(expr.NewConstantExpr(7, 16), got.Segment); diff != "" {
		t.Fatalf("expected the segment sliced like the offset: %s", diff)
	}
	if diff := cmp.Diff(expr.NewConstantExpr(0x1234, 16), got.Offset); diff != "" {
		t.Fatal(diff)
	}
}

func TestKValue_ZExtSExt_PreserveSegment(t *testing.T) {
	p := svm.NewKValue(expr.NewConstantExpr(7, 8), expr.NewConstantExpr(0xFF, 8))
	t.Run("ZExt", func(t *testing.T) {
		got := p.ZExt(16)
		if diff := cmp.Diff(expr.NewConstantExpr(7, 16), got.Segment); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(expr.NewConstantExpr(0xFF, 16), got.Offset); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("SExt", func(t *testing.T) {
		got := p.SExt(16)
		if diff := cmp.Diff(expr.NewConstantExpr(0xFFFF, 16), got.Offset); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestConcatValues(t *testing.T) {
	a := svm.NewScalar(expr.NewConstantExpr(0x12, 8))
	b := svm.NewScalar(expr.NewConstantExpr(0x34, 8))
	got := svm.ConcatValues(a, b)
	if diff := cmp.Diff(expr.NewConstantExpr(0x1234, 16), got); diff != "" {
		t.Fatal(diff)
	}
}

func TestConcatValues_PanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	svm.ConcatValues()
}

func TestKValue_String(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		if s := scalar(5).String(); s != "(const 5 64)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Pointer", func(t *testing.T) {
		if s := ptr(3, 5).String(); s != "(const 3 64):(const 5 64)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}
