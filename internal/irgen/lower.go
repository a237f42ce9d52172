// Package irgen lowers a SysY AST into Koopa IR text: the "center of
// gravity" pass that manages scopes, constant folding, short-circuit
// control flow, array initializer flattening, and function layout.
package irgen

import (
	"fmt"
	"strconv"
	"strings"

	"sysyc/internal/ast"
	"sysyc/internal/koopa"
	"sysyc/internal/sysyerr"
)

// libraryFuncs pre-registers the SysY runtime library (§6) in the
// function table before any user function is lowered, exactly as
// §4.3 "Function calls" requires: "Library functions are
// pre-registered in the function table with their array-param flags
// before user functions are emitted."
var libraryFuncs = []struct {
	name       string
	isVoid     bool
	arrayParam []bool
	declText   string
}{
	{"getint", false, nil, "decl @getint(): i32"},
	{"getch", false, nil, "decl @getch(): i32"},
	{"getarray", false, []bool{true}, "decl @getarray(*i32): i32"},
	{"putint", true, []bool{false}, "decl @putint(i32)"},
	{"putch", true, []bool{false}, "decl @putch(i32)"},
	{"putarray", true, []bool{false, true}, "decl @putarray(i32, *i32)"},
	{"starttime", true, nil, "decl @starttime()"},
	{"stoptime", true, []bool{false}, "decl @stoptime(i32)"},
}

// Lowerer threads the mutable state of §4.3's "single pass, four
// pieces of state" traversal: scopes, a temp counter, per-base-name
// counters, and the growing output buffer.
type Lowerer struct {
	scopes *scopes
	funcs  map[string]*funcInfo

	temp      int
	named     map[string]int
	loopStack []loopFrame

	buf *strings.Builder

	danglingReturnLabel bool // true right after a return's fresh trailing label, cleared by any further emission
}

// Lower runs the full AST-to-IR-text pass; it is the only exported
// entry point and recovers any panicked *sysyerr.CompilerError into a
// returned error, per the pipeline's single-recovery-point design.
func Lower(cu *ast.CompUnit) (text string, err error) {
	defer sysyerr.Recover(sysyerr.Ast2IrError, &err)
	l := &Lowerer{
		scopes: newScopes(),
		funcs:  map[string]*funcInfo{},
		named:  map[string]int{},
		buf:    &strings.Builder{},
	}
	l.registerLibraryFuncs()
	l.registerUserFuncs(cu)
	l.lowerProgram(cu)
	return l.buf.String(), nil
}

func (l *Lowerer) registerLibraryFuncs() {
	for _, f := range libraryFuncs {
		l.funcs[f.name] = &funcInfo{koopaName: "@" + f.name, isVoid: f.isVoid, arrayParam: f.arrayParam}
	}
}

func (l *Lowerer) registerUserFuncs(cu *ast.CompUnit) {
	for _, fd := range cu.FuncDefs {
		if _, exists := l.funcs[fd.Name]; exists {
			sysyerr.PanicAt(sysyerr.Ast2IrError, fd.Pos, "redefinition of function %q", fd.Name)
		}
		arrayParam := make([]bool, len(fd.Params))
		for i, p := range fd.Params {
			arrayParam[i] = p.IsArray
		}
		l.funcs[fd.Name] = &funcInfo{koopaName: "@" + fd.Name, isVoid: fd.RetVoid, arrayParam: arrayParam}
	}
}

func (l *Lowerer) lowerProgram(cu *ast.CompUnit) {
	for _, f := range libraryFuncs {
		l.writeLine(f.declText)
	}
	l.blank()
	for _, ref := range cu.Order {
		switch ref.Kind {
		case ast.ItemDecl:
			l.lowerDecl(cu.Decls[ref.Index], true)
		case ast.ItemFunc:
			l.lowerFuncDef(cu.FuncDefs[ref.Index])
		}
	}
}

// --- emission helpers ---

func (l *Lowerer) writeLine(s string) {
	l.danglingReturnLabel = false
	l.buf.WriteString(s)
	l.buf.WriteByte('\n')
}
func (l *Lowerer) emit(s string)      { l.writeLine("  " + s) }
func (l *Lowerer) blank()             { l.buf.WriteByte('\n') }
func (l *Lowerer) startBlock(label string) { l.writeLine(label + ":") }

func (l *Lowerer) newTemp() string {
	h := fmt.Sprintf("%%%d", l.temp)
	l.temp++
	return h
}

func (l *Lowerer) nextNamed(sigil, base string) string {
	k := l.named[base]
	l.named[base] = k + 1
	return fmt.Sprintf("%s%s_%d", sigil, base, k)
}

func (l *Lowerer) newLocalName(base string) string { return l.nextNamed("@", base) }
func (l *Lowerer) newGlobalName(base string) string { return l.nextNamed("@", base) }
func (l *Lowerer) newLabel(base string) string      { return l.nextNamed("%", base) }

// --- declarations (§4.3 "Arrays: declaration") ---

func (l *Lowerer) lowerDecl(d *ast.Decl, isGlobal bool) {
	for _, def := range d.Defs {
		l.lowerDef(d, def, isGlobal)
	}
}

func (l *Lowerer) lowerDef(d *ast.Decl, def *ast.Def, isGlobal bool) {
	if _, exists := l.scopes.lookupLocal(def.Name); exists {
		sysyerr.PanicAt(sysyerr.Ast2IrError, def.Pos, "redefinition of %q in the same scope", def.Name)
	}

	dims := make([]int, len(def.Dims))
	for i, de := range def.Dims {
		n := l.mustFoldConst(de)
		if n < 0 {
			sysyerr.PanicAt(sysyerr.Ast2IrError, de.ExprPos(), "array dimension must be non-negative")
		}
		dims[i] = int(n)
	}

	if len(dims) == 0 {
		l.lowerScalarDef(d, def, isGlobal)
		return
	}
	l.lowerArrayDef(d, def, dims, isGlobal)
}

func (l *Lowerer) lowerScalarDef(d *ast.Decl, def *ast.Def, isGlobal bool) {
	if d.IsConst {
		v := l.mustFoldConst(def.Init.Scalar)
		l.scopes.bind(def.Name, &symbol{kind: symConst, value: v})
		return
	}

	if isGlobal {
		init := "zeroinit"
		if def.Init != nil {
			init = strconv.Itoa(int(l.mustFoldConst(def.Init.Scalar)))
		}
		name := l.newGlobalName(def.Name)
		l.writeLine(fmt.Sprintf("global %s = alloc i32, %s", name, init))
		l.blank()
		l.scopes.bind(def.Name, &symbol{kind: symVar, name: name})
		return
	}

	slot := l.newLocalName(def.Name)
	l.emit(fmt.Sprintf("%s = alloc i32", slot))
	l.scopes.bind(def.Name, &symbol{kind: symVar, name: slot})
	if def.Init != nil {
		val := def.Init.Scalar.Accept(l)
		l.emit(fmt.Sprintf("store %s, %s", val, slot))
	}
}

func (l *Lowerer) lowerArrayDef(d *ast.Decl, def *ast.Def, dims []int, isGlobal bool) {
	ty := buildArrayType(dims)
	rank := len(dims)

	if isGlobal {
		name := l.newGlobalName(def.Name)
		initText := "zeroinit"
		if def.Init != nil {
			flat := l.flattenGlobalInit(def.Init, dims)
			initText = nestAggregateText(flat, dims)
		}
		l.writeLine(fmt.Sprintf("global %s = alloc %s, %s", name, ty.String(), initText))
		l.blank()
		l.scopes.bind(def.Name, &symbol{kind: symArray, name: name, rank: rank})
		return
	}

	slot := l.newLocalName(def.Name)
	l.emit(fmt.Sprintf("%s = alloc %s", slot, ty.String()))
	l.scopes.bind(def.Name, &symbol{kind: symArray, name: slot, rank: rank})
	if def.Init != nil {
		flat := l.flattenLocalInit(def.Init, dims)
		l.emitLocalArrayStores(slot, dims, flat)
	}
}

func buildArrayType(dims []int) koopa.Type {
	ty := koopa.I32()
	for i := len(dims) - 1; i >= 0; i-- {
		ty = koopa.Array(ty, dims[i])
	}
	return ty
}

// --- function definitions (§4.3 "Function definition") ---

func (l *Lowerer) lowerFuncDef(fd *ast.FuncDef) {
	type param struct {
		incoming string
		ty       koopa.Type
		rank     int
		isArray  bool
	}
	params := make([]param, len(fd.Params))
	for i, p := range fd.Params {
		incoming := "%" + p.Name
		if !p.IsArray {
			params[i] = param{incoming: incoming, ty: koopa.I32()}
			continue
		}
		dims := make([]int, len(p.Dims))
		for j, de := range p.Dims {
			dims[j] = int(l.mustFoldConst(de))
		}
		elemTy := koopa.I32()
		if len(dims) > 0 {
			elemTy = buildArrayType(dims)
		}
		params[i] = param{incoming: incoming, ty: koopa.Ptr(elemTy), rank: len(dims) + 1, isArray: true}
	}

	sig := "fun @" + fd.Name + "("
	for i, pr := range params {
		if i > 0 {
			sig += ", "
		}
		sig += pr.incoming + ": " + pr.ty.String()
	}
	sig += ")"
	if !fd.RetVoid {
		sig += ": i32"
	}
	sig += " {"
	l.writeLine(sig)

	l.startBlock(l.newLabel(fd.Name + "_entry"))

	l.scopes.enter()
	for i, p := range fd.Params {
		if _, exists := l.scopes.lookupLocal(p.Name); exists {
			sysyerr.PanicAt(sysyerr.Ast2IrError, p.Pos, "redefinition of parameter %q", p.Name)
		}
		pr := params[i]
		slot := l.newLocalName(p.Name)
		l.emit(fmt.Sprintf("%s = alloc %s", slot, pr.ty.String()))
		l.emit(fmt.Sprintf("store %s, %s", pr.incoming, slot))
		if pr.isArray {
			l.scopes.bind(p.Name, &symbol{kind: symArray, name: slot, rank: pr.rank, isParam: true})
		} else {
			l.scopes.bind(p.Name, &symbol{kind: symVar, name: slot})
		}
	}

	for _, item := range fd.Body.Items {
		if item.Decl != nil {
			l.lowerDecl(item.Decl, false)
		} else {
			l.lowerStmt(item.Stmt)
		}
	}
	l.scopes.exit()

	l.normalizeTerminator()
	l.writeLine("}")
	l.blank()
}

// normalizeTerminator implements §4.3's closing rule: a body that
// already ended in "return" leaves a dangling, unreachable fresh
// label as its last line; strip it. Otherwise the body fell off the
// end without a return (only valid for void functions), so append a
// bare ret.
func (l *Lowerer) normalizeTerminator() {
	if l.danglingReturnLabel {
		s := strings.TrimRight(l.buf.String(), "\n")
		nl := strings.LastIndexByte(s, '\n')
		l.buf.Reset()
		l.buf.WriteString(s[:nl+1])
		l.danglingReturnLabel = false
		return
	}
	l.emit("ret")
}
