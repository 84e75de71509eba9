package svm_test

import (
	"testing"

	"github.com/gosymvm/svm"
	"github.com/gosymvm/svm/expr"
)

func TestMemoryManager_Allocate_AssignsDistinctSegments(t *testing.T) {
	m := newManager()
	a := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("a"))
	b := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("b"))
	if a.Segment() == b.Segment() {
		t.Fatal("expected distinct segments for distinct allocations")
	}
	if a.Segment() == 0 || b.Segment() == 0 {
		t.Fatal("segment 0 is reserved and must never be assigned")
	}
}

func TestMemoryManager_AllocateFixed(t *testing.T) {
	m := newManager()
	mo := m.AllocateFixed(0x4000, expr.NewConstantExpr(8, 64), svm.NamedAllocSite("mapped"))
	if !mo.IsFixed() || !mo.IsUserSpecified() {
		t.Fatal("expected AllocateFixed to mark the object fixed and user-specified")
	}
	if mo.Address() != 0x4000 {
		t.Fatalf("unexpected address: %#x", mo.Address())
	}
}

func TestMemoryManager_Lookup(t *testing.T) {
	m := newManager()
	mo := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("a"))

	got, ok := m.Lookup(mo.Segment())
	if !ok || got != mo {
		t.Fatal("expected to find the allocated object by segment")
	}
	if _, ok := m.Lookup(mo.Segment() + 1000); ok {
		t.Fatal("expected lookup of an unused segment to fail")
	}
}

func TestMemoryManager_Deallocate(t *testing.T) {
	m := newManager()
	mo := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("a"))

	if err := m.Deallocate(mo); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Lookup(mo.Segment()); ok {
		t.Fatal("expected segment to no longer be live after deallocation")
	}
	if err := m.Deallocate(mo); err == nil {
		t.Fatal("expected deallocating an already-dead segment to error")
	}
}

func TestMemoryManager_Live(t *testing.T) {
	m := newManager()
	a := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("a"))
	b := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("b"))

	live := m.Live()
	if len(live) != 2 {
		t.Fatalf("unexpected live count: %d", len(live))
	}
	if live[0].Segment() != a.Segment() || live[1].Segment() != b.Segment() {
		t.Fatal("expected live objects ordered by segment")
	}
}

func TestMemoryManager_Snapshot_IsolatesSubsequentAllocations(t *testing.T) {
	m := newManager()
	a := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("a"))

	snap := m.Snapshot()
	b := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("b"))

	if _, ok := snap.Lookup(b.Segment()); ok {
		t.Fatal("expected a post-snapshot allocation on the original manager not to appear in the snapshot")
	}
	if _, ok := snap.Lookup(a.Segment()); !ok {
		t.Fatal("expected the pre-snapshot allocation to still be visible in the snapshot")
	}
}

func TestMemoryManager_Snapshot_DeallocateDoesNotAffectOriginal(t *testing.T) {
	m := newManager()
	a := m.Allocate(0, expr.NewConstantExpr(8, 64), false, false, false, svm.NamedAllocSite("a"))

	snap := m.Snapshot()
	if err := snap.Deallocate(a); err != nil {
		t.Fatal(err)
	}

	if _, ok := m.Lookup(a.Segment()); !ok {
		t.Fatal("expected deallocating on the snapshot not to affect the original manager")
	}
}

func TestMemoryManager_CreateArray_Dedups(t *testing.T) {
	m := newManager()
	a := m.CreateArray("input", 16)
	b := m.CreateArray("input", 16)
	if a != b {
		t.Fatal("expected CreateArray to dedup by name+size")
	}
}
