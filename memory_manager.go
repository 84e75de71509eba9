package svm

import (
	"fmt"

	"github.com/benbjohnson/immutable"

	"github.com/gosymvm/svm/expr"
)

// MemoryManager hands out segments and tracks which ones are currently
// live. It is the only component in this package allowed to mint a new
// segment number, which keeps "every live object has a distinct segment"
// an invariant of construction rather than something every caller has to
// maintain by hand.
//
// The live-object index is an immutable.SortedMap so that callers modeling
// forked execution states (one interpreter state per explored path) can
// cheaply branch a MemoryManager's view of live segments without copying
// the whole table; see Snapshot.
type MemoryManager struct {
	ctx Context

	nextID      uint64
	nextSegment uint64

	arrays *expr.ArrayCache
	live   *immutable.SortedMap
}

// NewMemoryManager returns a new MemoryManager using ctx for pointer width
// and endianness.
func NewMemoryManager(ctx Context) *MemoryManager {
	return &MemoryManager{
		ctx:    ctx,
		arrays: expr.NewArrayCache(),
		live:   immutable.NewSortedMap(segmentComparer{}),
	}
}

// Context returns the Context this manager was constructed with.
func (m *MemoryManager) Context() Context { return m.ctx }

// Allocate creates and registers a new MemoryObject of the given size.
// address is the object's base address within its (freshly assigned)
// segment; most callers that do not model a flat backing address space
// pass 0.
func (m *MemoryManager) Allocate(address uint64, size expr.Expr, isLocal, isGlobal, isFixed bool, allocSite AllocSite) *MemoryObject {
	m.nextID++
	m.nextSegment++

	mo := &MemoryObject{
		id:        m.nextID,
		segment:   m.nextSegment,
		address:   address,
		size:      expr.NewCastExpr(size, m.ctx.PointerWidth, false),
		name:      "unnamed",
		isLocal:   isLocal,
		isGlobal:  isGlobal,
		isFixed:   isFixed,
		allocSite: allocSite,
	}
	m.live = m.live.Set(mo.segment, mo)
	return mo
}

// AllocateFixed creates a MemoryObject at a caller-chosen address, e.g. to
// model a memory-mapped region or a legacy raw-address allocation. Unlike
// Allocate, the object is marked isFixed and isUserSpecified.
func (m *MemoryManager) AllocateFixed(address uint64, size expr.Expr, allocSite AllocSite) *MemoryObject {
	mo := m.Allocate(address, size, false, false, true, allocSite)
	mo.isUserSpecified = true
	return mo
}

// CreateArray returns a backing Array for a symbolic allocation of size
// bytes, deduplicating by name the way ArrayCache always does.
func (m *MemoryManager) CreateArray(name string, size uint) *expr.Array {
	return m.arrays.CreateArray(name, size)
}

// Lookup returns the live object registered under segment, if any.
func (m *MemoryManager) Lookup(segment uint64) (*MemoryObject, bool) {
	v, ok := m.live.Get(segment)
	if !ok {
		return nil, false
	}
	return v.(*MemoryObject), true
}

// Deallocate removes mo's segment from the live index. Go's garbage
// collector reclaims the MemoryObject itself once nothing references it
// any longer (including any ObjectState still holding it); Deallocate's
// only job is to enforce that a torn-down segment can no longer be looked
// up or reused, the part a GC cannot do on its own.
func (m *MemoryManager) Deallocate(mo *MemoryObject) error {
	if _, ok := m.live.Get(mo.segment); !ok {
		return fmt.Errorf("svm: deallocate: segment %d is not live", mo.segment)
	}
	m.live = m.live.Delete(mo.segment)
	return nil
}

// Live returns every currently live object, ordered by segment.
func (m *MemoryManager) Live() []*MemoryObject {
	objs := make([]*MemoryObject, 0, m.live.Len())
	itr := m.live.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		objs = append(objs, v.(*MemoryObject))
	}
	return objs
}

// Snapshot returns a MemoryManager sharing this one's live-object index and
// id/segment counters at the time of the call. Subsequent allocations or
// deallocations on either manager do not affect the other, since
// immutable.SortedMap.Set/Delete never mutates the receiver; this is the
// structural-sharing fork a caller needs when branching an execution state.
func (m *MemoryManager) Snapshot() *MemoryManager {
	return &MemoryManager{
		ctx:         m.ctx,
		nextID:      m.nextID,
		nextSegment: m.nextSegment,
		arrays:      m.arrays,
		live:        m.live,
	}
}

type segmentComparer struct{}

func (segmentComparer) Compare(a, b interface{}) int {
	x, y := a.(uint64), b.(uint64)
	if x < y {
		return -1
	} else if x > y {
		return 1
	}
	return 0
}
