package svm_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gosymvm/svm"
	"github.com/gosymvm/svm/expr"
)

func newObjectState(t *testing.T, size uint64) (*svm.MemoryManager, *svm.MemoryObject, *svm.ObjectState) {
	t.Helper()
	m := newManager()
	mo := m.Allocate(0, expr.NewConstantExpr(size, 64), false, false, false, svm.NamedAllocSite("obj"))
	os := svm.NewObjectState(mo, expr.NewArrayCache())
	os.InitializeToZero()
	return m, mo, os
}

func TestObjectState_ConcreteRoundTrip(t *testing.T) {
	ctx := svm.DefaultContext()
	_, _, os := newObjectState(t, 16)

	t.Run("Byte", func(t *testing.T) {
		if err := os.Write8(0, svm.NewScalar(expr.NewConstantExpr(0x42, 8))); err != nil {
			t.Fatal(err)
		}
		got := os.Read8(0)
		if diff := cmp.Diff(expr.NewConstantExpr(0x42, 8), got.Offset); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Word", func(t *testing.T) {
		v := svm.NewScalar(expr.NewConstantExpr(0x1234, 32))
		if err := os.Write(ctx, 4, v); err != nil {
			t.Fatal(err)
		}
		got := os.Read(ctx, 4, 32)
		if diff := cmp.Diff(expr.NewConstantExpr(0x1234, 32), got.Offset); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestObjectState_SymbolicOffsetRoundTrip(t *testing.T) {
	ctx := svm.DefaultContext()
	_, _, os := newObjectState(t, 16)

	idx := expr.NewNotOptimizedExpr(expr.NewConstantExpr(8, 64))
	v := svm.NewScalar(expr.NewConstantExpr(0x99, 8))
	if err := os.WriteSym(ctx, idx, v); err != nil {
		t.Fatal(err)
	}
	got := os.ReadSym(ctx, idx, 8)
	eq := expr.NewBinaryExpr(expr.EQ, got.Offset, expr.NewConstantExpr(0x99, 8))
	if !expr.IsConstantTrue(eq) {
		t.Fatalf("unexpected value at symbolic offset: %s", got.Offset)
	}
}

func TestObjectState_SegmentPlane_LazyMaterialization(t *testing.T) {
	ctx := svm.DefaultContext()
	_, _, os := newObjectState(t, 16)

	scalar := svm.NewScalar(expr.NewConstantExpr(7, 64))
	if err := os.Write(ctx, 0, scalar); err != nil {
		t.Fatal(err)
	}
	got := os.Read(ctx, 0, 64)
	if !got.Segment.(*expr.ConstantExpr).IsZero() {
		t.Fatal("expected a write of a scalar value not to materialize a segment plane with a nonzero segment")
	}

	p := svm.NewKValue(expr.NewConstantExpr(3, 64), expr.NewConstantExpr(0x10, 64))
	if err := os.Write(ctx, 8, p); err != nil {
		t.Fatal(err)
	}
	gotP := os.Read(ctx, 8, 64)
	if diff := cmp.Diff(expr.NewConstantExpr(3, 64), gotP.Segment); diff != "" {
		t.Fatal(diff)
	}

	// The segment plane was materialized lazily by the pointer write above;
	// bytes never touched by a pointer write must still read back as a zero
	// segment rather than garbage.
	gotScalar := os.Read(ctx, 0, 64)
	if !gotScalar.Segment.(*expr.ConstantExpr).IsZero() {
		t.Fatal("expected untouched bytes to keep reading as zero segment after the plane materialized")
	}
}

func TestObjectState_ReadOnlyTrap(t *testing.T) {
	ctx := svm.DefaultContext()
	_, _, os := newObjectState(t, 16)
	os.SetReadOnly(true)

	if !os.IsReadOnly() {
		t.Fatal("expected IsReadOnly to reflect SetReadOnly")
	}
	if err := os.Write8(0, svm.NewScalar(expr.NewConstantExpr(1, 8))); err == nil {
		t.Fatal("expected Write8 on a read-only state to error")
	}
	if err := os.Write(ctx, 0, svm.NewScalar(expr.NewConstantExpr(1, 64))); err == nil {
		t.Fatal("expected Write on a read-only state to error")
	}
	idx := expr.NewNotOptimizedExpr(expr.NewConstantExpr(0, 64))
	if err := os.WriteSym(ctx, idx, svm.NewScalar(expr.NewConstantExpr(1, 8))); err == nil {
		t.Fatal("expected WriteSym on a read-only state to error")
	}
}

func TestObjectState_Clone_CopyOnWriteIsolation(t *testing.T) {
	ctx := svm.DefaultContext()
	_, _, os := newObjectState(t, 16)
	if err := os.Write8(0, svm.NewScalar(expr.NewConstantExpr(1, 8))); err != nil {
		t.Fatal(err)
	}

	clone := os.Clone(99)
	if clone.CopyOnWriteOwner() != 99 {
		t.Fatalf("unexpected copy-on-write owner: %d", clone.CopyOnWriteOwner())
	}

	if err := clone.Write8(0, svm.NewScalar(expr.NewConstantExpr(2, 8))); err != nil {
		t.Fatal(err)
	}
	if err := os.Write8(1, svm.NewScalar(expr.NewConstantExpr(3, 8))); err != nil {
		t.Fatal(err)
	}

	origByte0 := os.Read8(0)
	cloneByte0 := clone.Read8(0)
	if diff := cmp.Diff(expr.NewConstantExpr(1, 8), origByte0.Offset); diff != "" {
		t.Fatalf("original mutated by clone write: %s", diff)
	}
	if diff := cmp.Diff(expr.NewConstantExpr(2, 8), cloneByte0.Offset); diff != "" {
		t.Fatalf("clone did not see its own write: %s", diff)
	}

	origByte1 := os.Read8(1)
	cloneByte1 := clone.Read8(1)
	if diff := cmp.Diff(expr.NewConstantExpr(3, 8), origByte1.Offset); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(expr.NewConstantExpr(0, 8), cloneByte1.Offset); diff != "" {
		t.Fatalf("clone leaked a write made to the original after the clone was taken: %s", diff)
	}

	// Cloning a pointer-bearing segment plane must also isolate it.
	p := svm.NewKValue(expr.NewConstantExpr(5, 64), expr.NewConstantExpr(0, 64))
	if err := os.Write(ctx, 8, p); err != nil {
		t.Fatal(err)
	}
	clone2 := os.Clone(1)
	other := svm.NewKValue(expr.NewConstantExpr(11, 64), expr.NewConstantExpr(0, 64))
	if err := clone2.Write(ctx, 8, other); err != nil {
		t.Fatal(err)
	}
	gotOrig := os.Read(ctx, 8, 64)
	if diff := cmp.Diff(expr.NewConstantExpr(5, 64), gotOrig.Segment); diff != "" {
		t.Fatalf("segment plane clone leaked into the original: %s", diff)
	}
	gotClone := clone2.Read(ctx, 8, 64)
	if diff := cmp.Diff(expr.NewConstantExpr(11, 64), gotClone.Segment); diff != "" {
		t.Fatalf("clone did not see its own segment write: %s", diff)
	}
}

func TestObjectState_InitializeToRandom(t *testing.T) {
	_, _, os := newObjectState(t, 32)
	os.InitializeToRandom(rand.New(rand.NewSource(1)))
	for i := uint(0); i < 32; i++ {
		got := os.Read8(i)
		if _, ok := got.Offset.(*expr.ConstantExpr); !ok {
			t.Fatalf("byte %d: expected a concrete value after InitializeToRandom", i)
		}
	}
}

func TestObjectState_NewSymbolicObjectState_ReadsUnknown(t *testing.T) {
	ctx := svm.DefaultContext()
	m := newManager()
	mo := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("sym"))
	cache := expr.NewArrayCache()
	array := cache.CreateArray("input", 8)
	os := svm.NewSymbolicObjectState(mo, array, cache)

	got := os.Read(ctx, 0, 8)
	if _, ok := got.Offset.(*expr.ConstantExpr); ok {
		t.Fatal("expected an unwritten symbolic object to read back as a non-constant expression")
	}
	if _, ok := got.Offset.(*expr.ReadExpr); !ok {
		t.Fatalf("expected a ReadExpr against the backing array, got %T", got.Offset)
	}
}

func TestObjectState_FlushToConcreteStore(t *testing.T) {
	ctx := svm.DefaultContext()
	m := newManager()
	mo := m.Allocate(0, expr.NewConstantExpr(4, 64), false, false, false, svm.NamedAllocSite("sym"))
	cache := expr.NewArrayCache()
	array := cache.CreateArray("input", 4)
	os := svm.NewSymbolicObjectState(mo, array, cache)

	solver := newFakeSolver()
	solver.bind(array, []byte{0xAA, 0xBB, 0xCC, 0xDD})

	if err := os.FlushToConcreteStore(solver, nil); err != nil {
		t.Fatal(err)
	}

	got := os.Read(ctx, 0, 32)
	if c, ok := got.Offset.(*expr.ConstantExpr); ok {
		t.Fatalf("FlushToConcreteStore must not commit the byte as concrete, expected a read-through expression, got constant %s", c)
	}
}

func TestObjectState_String(t *testing.T) {
	_, _, os := newObjectState(t, 4)
	if s := os.String(); s == "" {
		t.Fatal("expected a non-empty description")
	}
}
