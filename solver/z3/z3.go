// Package z3 implements svm.Solver against an embedded Z3 solver via cgo.
package z3

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/gosymvm/svm"
	"github.com/gosymvm/svm/expr"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Ensure Solver implements the interface.
var _ svm.Solver = (*Solver)(nil)

// Solver answers svm.Solver queries using an embedded Z3 context.
type Solver struct {
	ctx   *Context
	stats Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{ctx: NewContext()}
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// GetValue checks constraints for satisfiability and, if satisfiable,
// returns a concrete value term can take under a satisfying model. It is
// the only entry point svm's flushToConcreteStore calls.
func (s *Solver) GetValue(constraints []expr.Expr, term expr.Expr) (*expr.ConstantExpr, error) {
	t := time.Now()
	defer func() {
		s.stats.QueryN++
		s.stats.QueryTime += time.Since(t)
	}()

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return nil, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	for _, constraint := range constraints {
		z3Constraint, err := s.ctx.toAST(constraint)
		if err != nil {
			return nil, err
		}
		C.Z3_solver_assert(s.ctx.raw, solver, z3Constraint)
		if err := s.ctx.err("Z3_solver_assert"); err != nil {
			return nil, err
		}
	}

	ret := C.Z3_solver_check(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return nil, err
	} else if ret == C.Z3_L_FALSE {
		return nil, fmt.Errorf("z3: constraints are unsatisfiable")
	} else if ret == C.Z3_L_UNDEF {
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return nil, svm.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return nil, svm.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return nil, svm.ErrSolverResourceLimit
		default:
			return nil, svm.ErrSolverUnknown
		}
	}

	model := C.Z3_solver_get_model(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return nil, err
	}

	z3Term, err := s.ctx.toAST(term)
	if err != nil {
		return nil, err
	}

	var z3Value C.Z3_ast
	ok := C.Z3_model_eval(s.ctx.raw, model, z3Term, C.bool(true), &z3Value)
	if err := s.ctx.err("Z3_model_eval"); err != nil {
		return nil, err
	} else if !bool(ok) {
		return nil, svm.ErrSolverUnknown
	}

	width := expr.Width(term)
	value, err := s.ctx.numeralValue(z3Value, width)
	if err != nil {
		return nil, err
	}
	return expr.NewConstantExpr(value, width), nil
}

// Context represents a Z3 context object used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return ctx.err("Z3_del_context")
}

func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a Z3_ast for an svm expression tree.
func (ctx *Context) toAST(e expr.Expr) (C.Z3_ast, error) {
	switch e := e.(type) {
	case *expr.ConstantExpr:
		return ctx.toConstantAST(e)
	case *expr.NotOptimizedExpr:
		return ctx.toAST(e.Src)
	case *expr.SelectExpr:
		return ctx.toSelectAST(e)
	case *expr.ReadExpr:
		return ctx.toReadAST(e)
	case *expr.ConcatExpr:
		return ctx.toConcatAST(e)
	case *expr.ExtractExpr:
		return ctx.toExtractAST(e)
	case *expr.CastExpr:
		return ctx.toCastAST(e)
	case *expr.NotExpr:
		return ctx.toNotAST(e)
	case *expr.BinaryExpr:
		return ctx.toBinaryAST(e)
	default:
		return nil, fmt.Errorf("z3: unsupported expression type: %T", e)
	}
}

func (ctx *Context) toConstantAST(e *expr.ConstantExpr) (C.Z3_ast, error) {
	if e.Width == expr.WidthBool {
		if e.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	} else if e.Width <= 32 {
		return ctx.makeUint(e.Width, uint32(e.Value))
	} else if e.Width <= 64 {
		return ctx.makeUint64(e.Width, e.Value)
	}
	return nil, fmt.Errorf("z3: invalid expression width: %d", e.Width)
}

// toSelectAST builds an if-then-else for the ternary SelectExpr.
func (ctx *Context) toSelectAST(e *expr.SelectExpr) (C.Z3_ast, error) {
	cond, err := ctx.toAST(e.Cond)
	if err != nil {
		return nil, err
	}
	t, err := ctx.toAST(e.True)
	if err != nil {
		return nil, err
	}
	f, err := ctx.toAST(e.False)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, t, f), ctx.err("Z3_mk_ite")
}

// toReadAST builds an array select, materializing the backing array with
// every update in e.Updates applied.
func (ctx *Context) toReadAST(e *expr.ReadExpr) (C.Z3_ast, error) {
	array, err := ctx.makeArrayWithUpdates(e.Updates)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(e.Index)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_select(ctx.raw, array, index), ctx.err("Z3_mk_select")
}

func (ctx *Context) toConcatAST(e *expr.ConcatExpr) (C.Z3_ast, error) {
	msb, err := ctx.toAST(e.MSB)
	if err != nil {
		return nil, err
	}
	lsb, err := ctx.toAST(e.LSB)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, msb, lsb), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toExtractAST(e *expr.ExtractExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(e.Expr)
	if err != nil {
		return nil, err
	}

	if e.Width == expr.WidthBool {
		extractExpr := C.Z3_mk_extract(ctx.raw, C.uint(e.Offset), C.uint(e.Offset), src)
		if err := ctx.err("Z3_mk_extract[bool]"); err != nil {
			return nil, err
		}
		one, err := ctx.makeUint64(1, 1)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_eq(ctx.raw, extractExpr, one), ctx.err("Z3_mk_eq")
	}

	return C.Z3_mk_extract(ctx.raw, C.uint(e.Offset+e.Width-1), C.uint(e.Offset), src), ctx.err("Z3_mk_extract")
}

func (ctx *Context) toCastAST(e *expr.CastExpr) (C.Z3_ast, error) {
	if e.Signed {
		return ctx.toSignedCastAST(e)
	}
	return ctx.toUnsignedCastAST(e)
}

func (ctx *Context) toSignedCastAST(e *expr.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(e.Src)
	if err != nil {
		return nil, err
	}

	if expr.Width(e.Src) == expr.WidthBool {
		whenTrue, err := ctx.makeUint64(e.Width, uint64(int64(-1)))
		if err != nil {
			return nil, err
		}
		whenFalse, err := ctx.makeUint64(e.Width, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_ite(ctx.raw, src, whenTrue, whenFalse), ctx.err("Z3_mk_ite")
	}

	return C.Z3_mk_sign_ext(ctx.raw, C.uint(e.Width-ctx.bvSize(src)), src), ctx.err("Z3_mk_sign_ext")
}

func (ctx *Context) toUnsignedCastAST(e *expr.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(e.Src)
	if err != nil {
		return nil, err
	}

	if expr.Width(e.Src) == expr.WidthBool {
		whenTrue, err := ctx.makeUint64(e.Width, 1)
		if err != nil {
			return nil, err
		}
		whenFalse, err := ctx.makeUint64(e.Width, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_ite(ctx.raw, src, whenTrue, whenFalse), ctx.err("Z3_mk_ite")
	}

	padding, err := ctx.makeUint64(e.Width-ctx.bvSize(src), 0)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, padding, src), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toNotAST(e *expr.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(e.Expr)
	if err != nil {
		return nil, err
	}

	if expr.Width(e.Expr) == expr.WidthBool {
		return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
}

func (ctx *Context) toBinaryAST(e *expr.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(e.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(e.RHS)
	if err != nil {
		return nil, err
	}
	isBool := expr.Width(e.LHS) == expr.WidthBool

	switch e.Op {
	case expr.ADD:
		return C.Z3_mk_bvadd(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvadd")
	case expr.SUB:
		return C.Z3_mk_bvsub(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsub")
	case expr.MUL:
		return C.Z3_mk_bvmul(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvmul")
	case expr.UDIV:
		return C.Z3_mk_bvudiv(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvudiv")
	case expr.SDIV:
		return C.Z3_mk_bvsdiv(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsdiv")
	case expr.UREM:
		return C.Z3_mk_bvurem(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvurem")
	case expr.SREM:
		return C.Z3_mk_bvsrem(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsrem")
	case expr.AND:
		if isBool {
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
		}
		return C.Z3_mk_bvand(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvand")
	case expr.OR:
		if isBool {
			args := [2]C.Z3_ast{lhs, rhs}
			return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
		}
		return C.Z3_mk_bvor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvor")
	case expr.XOR:
		if isBool {
			notRHS := C.Z3_mk_not(ctx.raw, rhs)
			return C.Z3_mk_ite(ctx.raw, lhs, notRHS, rhs), ctx.err("Z3_mk_ite")
		}
		return C.Z3_mk_bvxor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvxor")
	case expr.SHL:
		return C.Z3_mk_bvshl(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvshl")
	case expr.LSHR:
		return C.Z3_mk_bvlshr(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvlshr")
	case expr.ASHR:
		return C.Z3_mk_bvashr(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvashr")
	case expr.EQ:
		if isBool {
			return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
		}
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	case expr.ULT:
		return C.Z3_mk_bvult(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvult")
	case expr.ULE:
		return C.Z3_mk_bvule(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvule")
	case expr.UGT:
		return C.Z3_mk_bvugt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvugt")
	case expr.UGE:
		return C.Z3_mk_bvuge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvuge")
	case expr.SLT:
		return C.Z3_mk_bvslt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvslt")
	case expr.SLE:
		return C.Z3_mk_bvsle(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsle")
	case expr.SGT:
		return C.Z3_mk_bvsgt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsgt")
	case expr.SGE:
		return C.Z3_mk_bvsge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsge")
	default:
		return nil, fmt.Errorf("z3: unsupported binary operator: %s", e.Op)
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint(width uint, value uint32) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int(ctx.raw, C.uint(value), t), ctx.err("Z3_mk_unsigned_int")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.ulonglong(value), t), ctx.err("Z3_mk_unsigned_int64")
}

func (ctx *Context) bvSize(e C.Z3_ast) uint {
	t := C.Z3_get_sort(ctx.raw, e)
	return uint(C.Z3_get_bv_sort_size(ctx.raw, t))
}

// makeArrayConst returns the root constant array for root, with no updates
// applied.
func (ctx *Context) makeArrayConst(root *expr.Array) (C.Z3_ast, error) {
	domainSort := C.Z3_mk_bv_sort(ctx.raw, C.uint(expr.Width64))
	if err := ctx.err("Z3_mk_bv_sort[domain]"); err != nil {
		return nil, err
	}
	rangeSort := C.Z3_mk_bv_sort(ctx.raw, C.uint(expr.Width8))
	if err := ctx.err("Z3_mk_bv_sort[range]"); err != nil {
		return nil, err
	}
	arraySort := C.Z3_mk_array_sort(ctx.raw, domainSort, rangeSort)
	if err := ctx.err("Z3_mk_array_sort"); err != nil {
		return nil, err
	}

	cname := C.CString(arrayName(root))
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, arraySort), ctx.err("Z3_mk_const")
}

// makeArrayWithUpdates returns an array with every update in ul applied,
// oldest first (it recurses to the tail before storing the head, since a
// Z3 store must be built from the bottom of the write history up).
func (ctx *Context) makeArrayWithUpdates(ul expr.UpdateList) (C.Z3_ast, error) {
	return ctx.makeArrayWithNode(ul.Root, ul.Head)
}

func (ctx *Context) makeArrayWithNode(root *expr.Array, node *expr.UpdateNode) (C.Z3_ast, error) {
	if node == nil {
		return ctx.makeArrayConst(root)
	}

	array, err := ctx.makeArrayWithNode(root, node.Next)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(node.Index)
	if err != nil {
		return nil, err
	}
	value, err := ctx.toAST(node.Value)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_store(ctx.raw, array, index, value), ctx.err("Z3_mk_store")
}

// numeralValue extracts e's value as a uint64, assuming it has already
// been reduced to a numeral by Z3_model_eval.
func (ctx *Context) numeralValue(e C.Z3_ast, width uint) (uint64, error) {
	if width == expr.WidthBool {
		if C.Z3_get_bool_value(ctx.raw, e) == C.Z3_L_TRUE {
			return 1, nil
		}
		return 0, nil
	}

	var u C.uint64_t
	if ok := C.Z3_get_numeral_uint64(ctx.raw, e, &u); !bool(ok) {
		return 0, fmt.Errorf("z3: could not extract numeral value")
	}
	if err := ctx.err("Z3_get_numeral_uint64"); err != nil {
		return 0, err
	}
	return uint64(u), nil
}

func arrayName(a *expr.Array) string {
	return fmt.Sprintf("A%d", a.ID)
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats records cumulative solver usage for diagnostics.
type Stats struct {
	QueryN    int
	QueryTime time.Duration
}
