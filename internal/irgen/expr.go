package irgen

import (
	"fmt"

	"sysyc/internal/ast"
	"sysyc/internal/sysyerr"
)

var _ ast.ExprVisitor = (*Lowerer)(nil)

func (l *Lowerer) VisitNumberExpr(e *ast.NumberExpr) string {
	return fmt.Sprintf("%d", e.Value)
}

func (l *Lowerer) VisitUnaryExpr(e *ast.UnaryExpr) string {
	if v, ok := l.foldConst(e); ok {
		return fmt.Sprintf("%d", v)
	}
	x := e.X.Accept(l)
	switch e.Op {
	case ast.UnaryPlus:
		return x
	case ast.UnaryNeg:
		dst := l.newTemp()
		l.emit(fmt.Sprintf("%s = sub 0, %s", dst, x))
		return dst
	case ast.UnaryNot:
		dst := l.newTemp()
		l.emit(fmt.Sprintf("%s = eq %s, 0", dst, x))
		return dst
	}
	panic("unreachable unary operator")
}

var binaryOpText = map[ast.BinaryOp]string{
	ast.OpAdd: "add", ast.OpSub: "sub", ast.OpMul: "mul", ast.OpDiv: "div", ast.OpMod: "mod",
	ast.OpLt: "lt", ast.OpGt: "gt", ast.OpLe: "le", ast.OpGe: "ge", ast.OpEq: "eq", ast.OpNe: "ne",
}

func (l *Lowerer) VisitBinaryExpr(e *ast.BinaryExpr) string {
	if v, ok := l.foldConst(e); ok {
		return fmt.Sprintf("%d", v)
	}
	lhs := e.L.Accept(l)
	rhs := e.R.Accept(l)
	dst := l.newTemp()
	l.emit(fmt.Sprintf("%s = %s %s, %s", dst, binaryOpText[e.Op], lhs, rhs))
	return dst
}

// VisitLogicalExpr lowers "||"/"&&" per §4.3's short-circuit schema:
// a result slot, normalized 0/1 operands, and a branch whose polarity
// differs between the two operators.
func (l *Lowerer) VisitLogicalExpr(e *ast.LogicalExpr) string {
	if v, ok := l.foldConst(e); ok {
		return fmt.Sprintf("%d", v)
	}

	slot := l.newTemp()
	l.emit(fmt.Sprintf("%s = alloc i32", slot))

	lhs := e.L.Accept(l)
	normL := l.newTemp()
	l.emit(fmt.Sprintf("%s = ne %s, 0", normL, lhs))
	l.emit(fmt.Sprintf("store %s, %s", normL, slot))

	rhsLbl := l.newLabel("logic_rhs")
	endLbl := l.newLabel("logic_end")
	if e.And {
		l.emit(fmt.Sprintf("br %s, %s, %s", normL, rhsLbl, endLbl))
	} else {
		l.emit(fmt.Sprintf("br %s, %s, %s", normL, endLbl, rhsLbl))
	}

	l.startBlock(rhsLbl)
	rhs := e.R.Accept(l)
	normR := l.newTemp()
	l.emit(fmt.Sprintf("%s = ne %s, 0", normR, rhs))
	l.emit(fmt.Sprintf("store %s, %s", normR, slot))
	l.emit(fmt.Sprintf("jump %s", endLbl))

	l.startBlock(endLbl)
	dst := l.newTemp()
	l.emit(fmt.Sprintf("%s = load %s", dst, slot))
	return dst
}

func (l *Lowerer) VisitCallExpr(e *ast.CallExpr) string {
	fn, ok := l.funcs[e.Callee]
	if !ok {
		sysyerr.PanicAt(sysyerr.Ast2IrError, e.Pos, "call to undefined function %q", e.Callee)
	}

	// stoptime takes no source-level argument; the runtime ABI's sole
	// parameter is the call site's line number, supplied here.
	if e.Callee == "stoptime" && len(e.Args) == 0 {
		l.emit(fmt.Sprintf("call %s(%d)", fn.koopaName, e.Pos.Line))
		return ""
	}

	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		isArrayParam := i < len(fn.arrayParam) && fn.arrayParam[i]
		if isArrayParam {
			args[i] = l.materializeArrayArg(a)
		} else {
			args[i] = a.Accept(l)
		}
	}
	argList := ""
	for i, a := range args {
		if i > 0 {
			argList += ", "
		}
		argList += a
	}
	if fn.isVoid {
		l.emit(fmt.Sprintf("call %s(%s)", fn.koopaName, argList))
		return ""
	}
	dst := l.newTemp()
	l.emit(fmt.Sprintf("%s = call %s(%s)", dst, fn.koopaName, argList))
	return dst
}

// materializeArrayArg computes the pointer an array-typed call
// argument decays to, per §4.3: a direct function-array-parameter
// loads its slot then getptr ..., 0; any other array lvalue takes its
// address via getelemptr ..., 0.
func (l *Lowerer) materializeArrayArg(e ast.Expr) string {
	lv, ok := e.(*ast.LValExpr)
	if !ok {
		sysyerr.PanicAt(sysyerr.Ast2IrError, e.ExprPos(), "array argument must be an array reference")
	}
	ptr, applied, rank := l.lvalAddress(lv.LVal)
	if applied > 0 && applied < rank {
		// Partially indexed: ptr still denotes a sub-array (e.g.
		// *[i32,3] for a[1] of int a[2][3]), one getelemptr ..., 0 away
		// from the decayed inner-element pointer the ABI wants.
		dst := l.newTemp()
		l.emit(fmt.Sprintf("%s = getelemptr %s, 0", dst, ptr))
		return dst
	}
	return ptr
}

// VisitLValExpr reads the value an lvalue denotes. A fully-indexed
// reference (scalars, and arrays indexed down to a scalar element)
// loads its address; a partially-indexed array reference instead
// yields the decayed sub-array pointer, matching C's array-to-pointer
// rule for the cases SysY exercises (passing a row of a multi-
// dimensional array onward as a function argument).
func (l *Lowerer) VisitLValExpr(e *ast.LValExpr) string {
	if sym := l.mustLookup(e.LVal.Name, e.LVal.Pos); sym.kind == symConst {
		if len(e.LVal.Indices) != 0 {
			sysyerr.PanicAt(sysyerr.Ast2IrError, e.LVal.Pos, "%q is not an array", e.LVal.Name)
		}
		return fmt.Sprintf("%d", sym.value)
	}
	ptr, applied, rank := l.lvalAddress(e.LVal)
	if rank == 0 || applied == rank {
		dst := l.newTemp()
		l.emit(fmt.Sprintf("%s = load %s", dst, ptr))
		return dst
	}
	return ptr
}

// lvalAddress resolves lv to a Koopa pointer, applying whatever
// indices are present, and reports how many of the symbol's
// declared dimensions were consumed (0 means the array decayed to
// a bare pointer without indexing at all). Callers only reach the
// symConst case through materializeArrayArg misuse; VisitLValExpr
// handles consts itself before calling here.
func (l *Lowerer) lvalAddress(lv *ast.LVal) (ptr string, applied, rank int) {
	sym := l.mustLookup(lv.Name, lv.Pos)
	switch sym.kind {
	case symConst:
		sysyerr.PanicAt(sysyerr.Ast2IrError, lv.Pos, "%q is not an array", lv.Name)
		return "", 0, 0
	case symVar:
		if len(lv.Indices) != 0 {
			sysyerr.PanicAt(sysyerr.Ast2IrError, lv.Pos, "%q is not an array", lv.Name)
		}
		return sym.name, 0, 0
	case symArray:
		return l.arrayAddress(sym, lv)
	}
	panic("unreachable symbol kind")
}

func (l *Lowerer) arrayAddress(sym *symbol, lv *ast.LVal) (string, int, int) {
	start := 0
	ptr := sym.name
	if sym.isParam {
		base := l.newTemp()
		l.emit(fmt.Sprintf("%s = load %s", base, sym.name))
		if len(lv.Indices) == 0 {
			np := l.newTemp()
			l.emit(fmt.Sprintf("%s = getptr %s, 0", np, base))
			return np, 0, sym.rank
		}
		idx0 := lv.Indices[0].Accept(l)
		np := l.newTemp()
		l.emit(fmt.Sprintf("%s = getptr %s, %s", np, base, idx0))
		ptr = np
		start = 1
	} else if len(lv.Indices) == 0 {
		np := l.newTemp()
		l.emit(fmt.Sprintf("%s = getelemptr %s, 0", np, sym.name))
		return np, 0, sym.rank
	}
	for i := start; i < len(lv.Indices); i++ {
		idx := lv.Indices[i].Accept(l)
		np := l.newTemp()
		l.emit(fmt.Sprintf("%s = getelemptr %s, %s", np, ptr, idx))
		ptr = np
	}
	return ptr, len(lv.Indices), sym.rank
}
