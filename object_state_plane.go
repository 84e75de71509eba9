package svm

import (
	"math/rand"

	"github.com/gosymvm/svm/expr"
	"github.com/gosymvm/svm/internal/bitset"
)

// ObjectStatePlane is one byte-addressable dimension of an object's state:
// a hybrid store where most bytes usually sit as plain concrete bytes, a
// few may carry a known symbolic expression, and any byte can be pushed
// out into an expr.UpdateList once it needs to participate in a symbolic
// read or write. ObjectState layers two of these on top of one
// MemoryObject: one for ordinary values, one for pointer segments.
type ObjectStatePlane struct {
	parent *ObjectState

	concreteStore []byte
	concreteMask  *bitset.Set

	knownSymbolics []expr.Expr

	unflushedMask *bitset.Set
	updates       expr.UpdateList

	sizeBound uint
	symbolic  bool

	initialValue byte
}

// newConcreteObjectStatePlane returns a new plane of sizeBound bytes with
// undefined concrete contents; the caller is responsible for initializing
// it (InitializeToZero, InitializeToRandom, or direct writes) before
// reading from it.
func newConcreteObjectStatePlane(parent *ObjectState, array *expr.Array, sizeBound uint) *ObjectStatePlane {
	return &ObjectStatePlane{
		parent:         parent,
		concreteStore:  make([]byte, sizeBound),
		concreteMask:   bitset.New(int(sizeBound)),
		knownSymbolics: make([]expr.Expr, sizeBound),
		unflushedMask:  bitset.New(int(sizeBound)),
		updates:        expr.NewUpdateList(array),
		sizeBound:      sizeBound,
		symbolic:       false,
	}
}

// newSymbolicObjectStatePlane returns a new plane whose every byte reads as
// unknown-symbolic, backed by array.
func newSymbolicObjectStatePlane(parent *ObjectState, array *expr.Array) *ObjectStatePlane {
	sizeBound := array.Size
	p := &ObjectStatePlane{
		parent:         parent,
		concreteStore:  make([]byte, sizeBound),
		concreteMask:   bitset.New(int(sizeBound)),
		knownSymbolics: make([]expr.Expr, sizeBound),
		unflushedMask:  bitset.New(int(sizeBound)),
		updates:        expr.NewUpdateList(array),
		sizeBound:      sizeBound,
		symbolic:       true,
	}
	return p
}

// clone returns a deep copy of p bound to a new parent. The concrete store
// and both masks are copied so writes to the clone cannot affect p; the
// UpdateList is not, since expr.UpdateList is itself persistent and safe to
// share.
func (p *ObjectStatePlane) clone(parent *ObjectState) *ObjectStatePlane {
	concreteStore := make([]byte, len(p.concreteStore))
	copy(concreteStore, p.concreteStore)

	knownSymbolics := make([]expr.Expr, len(p.knownSymbolics))
	copy(knownSymbolics, p.knownSymbolics)

	return &ObjectStatePlane{
		parent:         parent,
		concreteStore:  concreteStore,
		concreteMask:   p.concreteMask.Clone(),
		knownSymbolics: knownSymbolics,
		unflushedMask:  p.unflushedMask.Clone(),
		updates:        p.updates,
		sizeBound:      p.sizeBound,
		symbolic:       p.symbolic,
		initialValue:   p.initialValue,
	}
}

// InitializeToZero makes every byte concrete and zero.
func (p *ObjectStatePlane) InitializeToZero() {
	for i := range p.concreteStore {
		p.concreteStore[i] = 0
		p.knownSymbolics[i] = nil
	}
	p.concreteMask.SetAll()
	p.unflushedMask.SetAll()
	p.symbolic = false
}

// InitializeToRandom makes every byte concrete with a value drawn from r.
func (p *ObjectStatePlane) InitializeToRandom(r *rand.Rand) {
	for i := range p.concreteStore {
		p.concreteStore[i] = byte(r.Intn(256))
		p.knownSymbolics[i] = nil
	}
	p.concreteMask.SetAll()
	p.unflushedMask.SetAll()
	p.symbolic = false
}

func (p *ObjectStatePlane) isByteConcrete(i uint) bool  { return p.concreteMask.Get(int(i)) }
func (p *ObjectStatePlane) isByteUnflushed(i uint) bool { return p.unflushedMask.Get(int(i)) }
func (p *ObjectStatePlane) isByteKnownSymbolic(i uint) bool {
	return p.unflushedMask.Get(int(i)) && !p.concreteMask.Get(int(i))
}

func (p *ObjectStatePlane) markByteConcrete(i uint, v byte) {
	p.concreteStore[i] = v
	p.knownSymbolics[i] = nil
	p.concreteMask.Set(int(i))
	p.unflushedMask.Set(int(i))
}

func (p *ObjectStatePlane) markByteSymbolic(i uint, v expr.Expr) {
	p.knownSymbolics[i] = v
	p.concreteMask.Clear(int(i))
	p.unflushedMask.Set(int(i))
}

func (p *ObjectStatePlane) markByteFlushed(i uint) { p.unflushedMask.Clear(int(i)) }

func (p *ObjectStatePlane) getConcreteValue(i uint) byte { return p.concreteStore[i] }

// flush pushes every not-yet-flushed byte into the update list so that a
// symbolic-offset read or write sees a complete history, then marks those
// bytes flushed. A byte's current value does not change; only where that
// value lives (inline storage vs. the update list) does.
func (p *ObjectStatePlane) flush() {
	for i := uint(0); i < p.sizeBound; i++ {
		if !p.isByteUnflushed(i) {
			continue
		}
		var v expr.Expr
		if p.isByteConcrete(i) {
			v = expr.NewConstantExpr8(uint64(p.concreteStore[i]))
		} else {
			v = p.knownSymbolics[i]
		}
		p.updates = p.updates.Extend(expr.NewConstantExpr64(uint64(i)), v)
		p.markByteFlushed(i)
	}
}

// FlushForRead prepares p for a read at a symbolic offset.
func (p *ObjectStatePlane) FlushForRead() { p.flush() }

// FlushForWrite prepares p for a write at a symbolic offset.
func (p *ObjectStatePlane) FlushForWrite() { p.flush() }

func (p *ObjectStatePlane) checkOffset(offset uint) {
	assert(offset < p.sizeBound, "object state plane: offset out of bounds: %d >= %d", offset, p.sizeBound)
}

// Read8 returns the byte at a concrete offset.
func (p *ObjectStatePlane) Read8(offset uint) expr.Expr {
	p.checkOffset(offset)
	if p.isByteUnflushed(offset) {
		if p.isByteConcrete(offset) {
			return expr.NewConstantExpr8(uint64(p.getConcreteValue(offset)))
		}
		return p.knownSymbolics[offset]
	}
	return p.updates.ReadByte(expr.NewConstantExpr64(uint64(offset)))
}

// Read8Sym returns the byte at a symbolic offset.
func (p *ObjectStatePlane) Read8Sym(offset expr.Expr) expr.Expr {
	p.FlushForRead()
	return p.updates.ReadByte(offset)
}

// Read returns the width-bit value at a concrete offset.
func (p *ObjectStatePlane) Read(offset uint, width uint, isLittleEndian bool) expr.Expr {
	assert(width > 0, "object state plane: read width cannot be zero")
	if width == expr.WidthBool {
		return expr.NewExtractExpr(p.Read8(offset), 0, expr.WidthBool)
	}

	var result expr.Expr
	n := width / 8
	for i := uint(0); i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = n - i - 1
		}
		b := p.Read8(offset + byteOffset)
		if i == 0 {
			result = b
		} else {
			result = expr.NewConcatExpr(b, result)
		}
	}
	return result
}

// ReadSym returns the width-bit value at a symbolic offset.
func (p *ObjectStatePlane) ReadSym(offset expr.Expr, width uint, isLittleEndian bool) expr.Expr {
	p.FlushForRead()
	return p.updates.Read(offset, width, isLittleEndian)
}

// Write8 writes a single byte at a concrete offset. value may be concrete
// or symbolic.
func (p *ObjectStatePlane) Write8(offset uint, value expr.Expr) {
	p.checkOffset(offset)
	if c, ok := value.(*expr.ConstantExpr); ok {
		p.markByteConcrete(offset, byte(c.Value))
	} else {
		p.markByteSymbolic(offset, value)
	}
}

// Write8Sym writes a single byte at a symbolic offset.
func (p *ObjectStatePlane) Write8Sym(offset expr.Expr, value expr.Expr) {
	p.FlushForWrite()
	p.updates = p.updates.Extend(offset, value)
}

// Write writes a width-bit value at a concrete offset.
func (p *ObjectStatePlane) Write(offset uint, value expr.Expr, isLittleEndian bool) {
	width := expr.Width(value)
	assert(width > 0, "object state plane: write width cannot be zero")
	if width == expr.WidthBool {
		p.Write8(offset, value)
		return
	}

	n := width / 8
	for i := uint(0); i != n; i++ {
		byteOffset := i
		if !isLittleEndian {
			byteOffset = n - i - 1
		}
		p.Write8(offset+byteOffset, expr.NewExtractExpr(value, i*8, expr.Width8))
	}
}

// WriteSym writes a width-bit value at a symbolic offset.
func (p *ObjectStatePlane) WriteSym(offset expr.Expr, value expr.Expr, isLittleEndian bool) {
	p.FlushForWrite()
	p.updates = p.updates.Write(offset, value, isLittleEndian)
}

// FlushToConcreteStore asks solver for a concrete value of every byte that
// is not already known concrete, under constraints, and records each
// resolved byte into the concrete store. It never updates concreteMask or
// unflushedMask: this is a snapshot for inspection (e.g. printing a
// satisfying assignment), not a commitment that the byte is now concrete.
// The first solver error is returned; the byte it was raised for and every
// later byte are left unchanged.
func (p *ObjectStatePlane) FlushToConcreteStore(solver Solver, constraints []expr.Expr) error {
	for i := uint(0); i < p.sizeBound; i++ {
		if p.isByteConcrete(i) {
			continue
		}
		term := p.Read8(i)
		value, err := solver.GetValue(constraints, term)
		if err != nil {
			return err
		}
		p.concreteStore[i] = byte(value.Value)
	}
	return nil
}
