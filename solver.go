package svm

import (
	"errors"

	"github.com/gosymvm/svm/expr"
)

// Solver is the only way this package ever calls out to a constraint
// solver: given a path condition and a term, get back one concrete value
// the term can take under that path condition. Everything upstream of
// flushing a plane to its concrete store — deciding when two paths
// diverge, which constraints are live, how long to let a query run — is a
// caller concern; this package only ever needs a single-term model value.
type Solver interface {
	GetValue(constraints []expr.Expr, term expr.Expr) (*expr.ConstantExpr, error)
}

var (
	// ErrSolverTimeout is returned when a query exceeded its time budget.
	ErrSolverTimeout = errors.New("svm: solver timeout")
	// ErrSolverCanceled is returned when a query was canceled before
	// completing.
	ErrSolverCanceled = errors.New("svm: solver canceled")
	// ErrSolverResourceLimit is returned when a query exceeded a memory or
	// other resource budget.
	ErrSolverResourceLimit = errors.New("svm: solver resource limit")
	// ErrSolverUnknown is returned when the underlying solver could not
	// determine an answer for a reason it could not characterize further.
	ErrSolverUnknown = errors.New("svm: solver unknown error")
)
