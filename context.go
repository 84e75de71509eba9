package svm

import "github.com/gosymvm/svm/expr"

// Context describes the machine parameters that the memory core needs but
// cannot derive on its own: how wide a pointer is and which end of a
// multi-byte value is stored first. klee keeps the equivalent as a global
// Context singleton; we thread it explicitly instead, since nothing here
// assumes there is only ever one machine being modeled at a time.
type Context struct {
	PointerWidth uint
	LittleEndian bool
}

// DefaultContext returns a 64-bit little-endian Context, the common case
// for memory objects modeling a modern machine's address space.
func DefaultContext() Context {
	return Context{PointerWidth: expr.Width64, LittleEndian: true}
}

// zero returns the context's pointer-width zero constant.
func (c Context) zero() *expr.ConstantExpr {
	return expr.NewConstantExpr(0, c.PointerWidth)
}

// constant returns a pointer-width constant for v.
func (c Context) constant(v uint64) *expr.ConstantExpr {
	return expr.NewConstantExpr(v, c.PointerWidth)
}
