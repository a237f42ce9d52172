package irgen

import "sysyc/internal/sysyerr"

// symKind distinguishes the three ways a source identifier can be
// bound inside a scope.
type symKind int

const (
	symConst symKind = iota
	symVar
	symArray
)

// symbol is one binding in a scope. Const carries its literal value
// directly (reads never touch the IR); Var and Array carry the
// Koopa name of the stack slot the source identifier was reallocated
// into.
type symbol struct {
	kind    symKind
	value   int32 // symConst
	name    string // symVar, symArray: the alloc'd slot's Koopa name
	rank    int    // symArray: number of declared dimensions
	isParam bool   // symArray: a pointer-to-array parameter
}

// funcInfo is the flat function table: source name to Koopa identity
// plus enough of its signature to lower call-argument materialization.
type funcInfo struct {
	koopaName  string
	isVoid     bool
	arrayParam []bool // per formal parameter, true if array-typed
}

// loopFrame is pushed for every while loop so break/continue know
// which labels to jump to.
type loopFrame struct {
	entry, end string
}

// scopes is the stack of symbol tables from §3. lowerFuncDef enters a
// fresh scope for a function body and binds its formal parameters
// into it directly, the same way any other declaration is bound.
type scopes struct {
	stack []map[string]*symbol
}

func newScopes() *scopes {
	return &scopes{stack: []map[string]*symbol{{}}}
}

func (s *scopes) enter() {
	s.stack = append(s.stack, map[string]*symbol{})
}

func (s *scopes) exit() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *scopes) top() map[string]*symbol {
	return s.stack[len(s.stack)-1]
}

// bind installs name in the innermost scope. Redefinition within the
// same scope is a caller-checked error (bind itself does not check;
// callers that need the §3 redefinition invariant call lookupLocal
// first).
func (s *scopes) bind(name string, sym *symbol) {
	s.top()[name] = sym
}

func (s *scopes) lookupLocal(name string) (*symbol, bool) {
	sym, ok := s.top()[name]
	return sym, ok
}

// lookup resolves name in the innermost enclosing scope that binds
// it, per the §3 invariant.
func (s *scopes) lookup(name string) (*symbol, bool) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if sym, ok := s.stack[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// mustLookup resolves name or panics an Ast2IrError; irgen calls this
// for every identifier reference since an unresolved name is always
// a semantic error, never a bug in the lowering pass itself.
func (l *Lowerer) mustLookup(name string, pos sysyerr.Pos) *symbol {
	sym, ok := l.scopes.lookup(name)
	if !ok {
		sysyerr.PanicAt(sysyerr.Ast2IrError, pos, "undefined identifier %q", name)
	}
	return sym
}
