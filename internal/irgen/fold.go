package irgen

import (
	"sysyc/internal/ast"
	"sysyc/internal/sysyerr"
)

// foldConst evaluates e bottom-up against the current scopes,
// returning (value, true) on success. It never emits IR and never
// mutates lowerer state; it is safe to call speculatively to decide
// whether a node can fold to a literal.
func (l *Lowerer) foldConst(e ast.Expr) (int32, bool) {
	switch n := e.(type) {
	case *ast.NumberExpr:
		return n.Value, true
	case *ast.LValExpr:
		if len(n.LVal.Indices) != 0 {
			return 0, false
		}
		sym, ok := l.scopes.lookup(n.LVal.Name)
		if !ok || sym.kind != symConst {
			return 0, false
		}
		return sym.value, true
	case *ast.UnaryExpr:
		v, ok := l.foldConst(n.X)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case ast.UnaryPlus:
			return v, true
		case ast.UnaryNeg:
			return -v, true
		case ast.UnaryNot:
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case *ast.BinaryExpr:
		l1, ok := l.foldConst(n.L)
		if !ok {
			return 0, false
		}
		r1, ok := l.foldConst(n.R)
		if !ok {
			return 0, false
		}
		return foldBinary(n.Op, l1, r1, n.Pos)
	case *ast.LogicalExpr:
		l1, ok := l.foldConst(n.L)
		if !ok {
			return 0, false
		}
		lb := l1 != 0
		// Short-circuit: && stops at a false left operand, || stops at
		// a true one, and the right operand must never be evaluated
		// (let alone folded) in that case.
		if n.And && !lb {
			return 0, true
		}
		if !n.And && lb {
			return 1, true
		}
		r1, ok := l.foldConst(n.R)
		if !ok {
			return 0, false
		}
		return boolToI32(r1 != 0), true
	default:
		return 0, false
	}
}

func foldBinary(op ast.BinaryOp, a, b int32, pos sysyerr.Pos) (int32, bool) {
	switch op {
	case ast.OpAdd:
		return a + b, true
	case ast.OpSub:
		return a - b, true
	case ast.OpMul:
		return a * b, true
	case ast.OpDiv:
		if b == 0 {
			sysyerr.PanicAt(sysyerr.Ast2IrError, pos, "division by zero in constant expression")
		}
		return a / b, true
	case ast.OpMod:
		if b == 0 {
			sysyerr.PanicAt(sysyerr.Ast2IrError, pos, "modulus by zero in constant expression")
		}
		return a % b, true
	case ast.OpLt:
		return boolToI32(a < b), true
	case ast.OpGt:
		return boolToI32(a > b), true
	case ast.OpLe:
		return boolToI32(a <= b), true
	case ast.OpGe:
		return boolToI32(a >= b), true
	case ast.OpEq:
		return boolToI32(a == b), true
	case ast.OpNe:
		return boolToI32(a != b), true
	}
	return 0, false
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// mustFoldConst is foldConst with the §4.3 "ConstExp must be
// resolvable" requirement enforced: used for array dimensions and
// const definitions, where falling back to runtime evaluation is not
// an option.
func (l *Lowerer) mustFoldConst(e ast.Expr) int32 {
	v, ok := l.foldConst(e)
	if !ok {
		sysyerr.PanicAt(sysyerr.Ast2IrError, e.ExprPos(), "expression is not a compile-time constant")
	}
	return v
}
