// Package svm implements a segmented symbolic memory core: pointers carried
// as a (segment, offset) pair rather than a flat address, memory objects
// described by a bounds-check contract, and per-object state split across a
// dual concrete/symbolic byte plane for values and a lazily-materialized
// plane for pointer segments.
//
// The expression kernel this package builds on (bit-vector terms, arrays,
// update lists) lives in package github.com/gosymvm/svm/expr and is treated
// here as an opaque term-rewriting layer: svm never inspects an expr.Expr's
// shape except to pattern-match on *expr.ConstantExpr, the way a bounds
// check collapses to a concrete boolean once both operands are known.
package svm

import "fmt"

// assert panics if condition is false. Used for contract violations a
// well-formed caller should never trigger — an object without a concrete
// size where one is required, an out-of-range concrete byte offset, and
// so on. These are programmer errors, not symbolic-execution path outcomes,
// so they are fatal rather than returned as errors.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("svm: assert: "+format, args...))
	}
}
