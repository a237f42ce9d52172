package irgen

import (
	"fmt"

	"sysyc/internal/ast"
	"sysyc/internal/sysyerr"
)

var _ ast.StmtVisitor = (*Lowerer)(nil)

func (l *Lowerer) lowerStmt(s ast.Stmt) { s.Accept(l) }

func (l *Lowerer) VisitAssignStmt(s *ast.AssignStmt) {
	sym := l.mustLookup(s.Target.Name, s.Target.Pos)
	if sym.kind == symConst {
		sysyerr.PanicAt(sysyerr.Ast2IrError, s.Pos, "cannot assign to const %q", s.Target.Name)
	}
	val := s.Value.Accept(l)
	ptr, applied, rank := l.lvalAddress(s.Target)
	if rank != 0 && applied != rank {
		sysyerr.PanicAt(sysyerr.Ast2IrError, s.Pos, "assignment target %q is not fully indexed", s.Target.Name)
	}
	l.emit(fmt.Sprintf("store %s, %s", val, ptr))
}

func (l *Lowerer) VisitExprStmt(s *ast.ExprStmt) {
	if s.X == nil {
		return
	}
	s.X.Accept(l)
}

func (l *Lowerer) VisitBlockStmt(s *ast.BlockStmt) {
	l.lowerBlock(s.Body)
}

func (l *Lowerer) lowerBlock(b *ast.Block) {
	l.scopes.enter()
	defer l.scopes.exit()
	for _, item := range b.Items {
		if item.Decl != nil {
			l.lowerDecl(item.Decl, false)
		} else {
			l.lowerStmt(item.Stmt)
		}
	}
}

// VisitIfStmt follows §4.3's three-label schema: a then block, an
// optional else block, and a shared end label every path joins at.
func (l *Lowerer) VisitIfStmt(s *ast.IfStmt) {
	cond := s.Cond.Accept(l)
	thenLbl := l.newLabel("then")
	endLbl := l.newLabel("if_end")

	if s.Else == nil {
		l.emit(fmt.Sprintf("br %s, %s, %s", cond, thenLbl, endLbl))
		l.startBlock(thenLbl)
		l.lowerStmt(s.Then)
		l.emit(fmt.Sprintf("jump %s", endLbl))
		l.startBlock(endLbl)
		return
	}

	elseLbl := l.newLabel("else")
	l.emit(fmt.Sprintf("br %s, %s, %s", cond, thenLbl, elseLbl))
	l.startBlock(thenLbl)
	l.lowerStmt(s.Then)
	l.emit(fmt.Sprintf("jump %s", endLbl))
	l.startBlock(elseLbl)
	l.lowerStmt(s.Else)
	l.emit(fmt.Sprintf("jump %s", endLbl))
	l.startBlock(endLbl)
}

// VisitWhileStmt emits entry/body/end labels and pushes a loopFrame so
// nested break/continue statements know where to jump.
func (l *Lowerer) VisitWhileStmt(s *ast.WhileStmt) {
	entryLbl := l.newLabel("while_entry")
	bodyLbl := l.newLabel("while_body")
	endLbl := l.newLabel("while_end")

	l.emit(fmt.Sprintf("jump %s", entryLbl))
	l.startBlock(entryLbl)
	cond := s.Cond.Accept(l)
	l.emit(fmt.Sprintf("br %s, %s, %s", cond, bodyLbl, endLbl))

	l.startBlock(bodyLbl)
	l.loopStack = append(l.loopStack, loopFrame{entry: entryLbl, end: endLbl})
	l.lowerStmt(s.Body)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]
	l.emit(fmt.Sprintf("jump %s", entryLbl))

	l.startBlock(endLbl)
}

func (l *Lowerer) VisitBreakStmt(s *ast.BreakStmt) {
	if len(l.loopStack) == 0 {
		sysyerr.PanicAt(sysyerr.Ast2IrError, s.Pos, "break outside of a loop")
	}
	frame := l.loopStack[len(l.loopStack)-1]
	l.emit(fmt.Sprintf("jump %s", frame.end))
	l.startBlock(l.newLabel("after_break"))
}

func (l *Lowerer) VisitContinueStmt(s *ast.ContinueStmt) {
	if len(l.loopStack) == 0 {
		sysyerr.PanicAt(sysyerr.Ast2IrError, s.Pos, "continue outside of a loop")
	}
	frame := l.loopStack[len(l.loopStack)-1]
	l.emit(fmt.Sprintf("jump %s", frame.entry))
	l.startBlock(l.newLabel("after_continue"))
}

func (l *Lowerer) VisitReturnStmt(s *ast.ReturnStmt) {
	if s.X == nil {
		l.emit("ret")
	} else {
		val := s.X.Accept(l)
		l.emit(fmt.Sprintf("ret %s", val))
	}
	l.startBlock(l.newLabel("after_return"))
	l.danglingReturnLabel = true
}
