// Package parser turns a SysY token stream into an *ast.CompUnit.
package parser

import (
	"fmt"

	"sysyc/internal/ast"
	"sysyc/internal/lexer"
	"sysyc/internal/sysyerr"
)

// binPrec gives each Add/Mul/Rel/Eq-level operator its precedence;
// LOr and LAnd are handled by dedicated recursive-descent levels
// above this table rather than folded into it, since they lower to
// control flow and must short-circuit.
var binPrec = map[lexer.TokenType]int{
	lexer.TokenEq:      1,
	lexer.TokenNotEq:   1,
	lexer.TokenLT:      2,
	lexer.TokenGT:      2,
	lexer.TokenLE:      2,
	lexer.TokenGE:      2,
	lexer.TokenPlus:    3,
	lexer.TokenMinus:   3,
	lexer.TokenStar:    4,
	lexer.TokenSlash:   4,
	lexer.TokenPercent:  4,
}

var binOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenPlus:    ast.OpAdd,
	lexer.TokenMinus:   ast.OpSub,
	lexer.TokenStar:    ast.OpMul,
	lexer.TokenSlash:   ast.OpDiv,
	lexer.TokenPercent:  ast.OpMod,
	lexer.TokenLT:      ast.OpLt,
	lexer.TokenGT:      ast.OpGt,
	lexer.TokenLE:      ast.OpLe,
	lexer.TokenGE:      ast.OpGe,
	lexer.TokenEq:      ast.OpEq,
	lexer.TokenNotEq:   ast.OpNe,
}

// Parser is a hand-written recursive-descent parser over a flat
// token slice. Errors are panicked as *sysyerr.CompilerError tagged
// Sysy2AstError; Parse recovers them into a returned error.
type Parser struct {
	tokens  []lexer.Token
	current int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the token stream and returns the compilation unit,
// or the first parse error encountered.
func Parse(tokens []lexer.Token) (cu *ast.CompUnit, err error) {
	defer sysyerr.Recover(sysyerr.Sysy2AstError, &err)
	p := New(tokens)
	cu = p.parseCompUnit()
	return cu, nil
}

func (p *Parser) parseCompUnit() *ast.CompUnit {
	cu := &ast.CompUnit{}
	for !p.isAtEnd() {
		if p.isFuncDef() {
			fd := p.funcDef()
			cu.FuncDefs = append(cu.FuncDefs, fd)
			cu.Order = append(cu.Order, ast.ItemRef{Kind: ast.ItemFunc, Index: len(cu.FuncDefs) - 1})
		} else {
			d := p.decl()
			cu.Decls = append(cu.Decls, d)
			cu.Order = append(cu.Order, ast.ItemRef{Kind: ast.ItemDecl, Index: len(cu.Decls) - 1})
		}
	}
	return cu
}

// isFuncDef distinguishes "int IDENT (" (a function) from
// "int IDENT [" or "int IDENT =" / "," / ";" (a declaration), by
// looking past the type and name without consuming tokens.
func (p *Parser) isFuncDef() bool {
	save := p.current
	defer func() { p.current = save }()

	if !p.check(lexer.TokenInt) && !p.check(lexer.TokenVoid) {
		return false
	}
	p.advance()
	if !p.check(lexer.TokenIdent) {
		return false
	}
	p.advance()
	return p.check(lexer.TokenLParen)
}

func (p *Parser) funcDef() *ast.FuncDef {
	pos := p.peek().Pos()
	retVoid := p.match(lexer.TokenVoid)
	if !retVoid {
		p.consume(lexer.TokenInt, "expected 'int' or 'void'")
	}
	name := p.consume(lexer.TokenIdent, "expected function name").Lexeme
	p.consume(lexer.TokenLParen, "expected '(' after function name")
	var params []*ast.Param
	if !p.check(lexer.TokenRParen) {
		params = append(params, p.funcFParam())
		for p.match(lexer.TokenComma) {
			params = append(params, p.funcFParam())
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after parameters")
	body := p.block()
	return &ast.FuncDef{RetVoid: retVoid, Name: name, Params: params, Body: body, Pos: pos}
}

func (p *Parser) funcFParam() *ast.Param {
	pos := p.peek().Pos()
	p.consume(lexer.TokenInt, "expected 'int' in parameter")
	name := p.consume(lexer.TokenIdent, "expected parameter name").Lexeme
	param := &ast.Param{Name: name, Pos: pos}
	if p.match(lexer.TokenLBracket) {
		param.IsArray = true
		p.consume(lexer.TokenRBracket, "expected ']' after '[' in array parameter")
		for p.match(lexer.TokenLBracket) {
			param.Dims = append(param.Dims, p.expr())
			p.consume(lexer.TokenRBracket, "expected ']' after array dimension")
		}
	}
	return param
}

// decl parses "const" int ConstDef {"," ConstDef} ";" or
// int VarDef {"," VarDef} ";".
func (p *Parser) decl() *ast.Decl {
	pos := p.peek().Pos()
	isConst := p.match(lexer.TokenConst)
	p.consume(lexer.TokenInt, "expected 'int' in declaration")
	d := &ast.Decl{IsConst: isConst, Pos: pos}
	d.Defs = append(d.Defs, p.def(isConst))
	for p.match(lexer.TokenComma) {
		d.Defs = append(d.Defs, p.def(isConst))
	}
	p.consume(lexer.TokenSemi, "expected ';' after declaration")
	return d
}

func (p *Parser) def(isConst bool) *ast.Def {
	pos := p.peek().Pos()
	name := p.consume(lexer.TokenIdent, "expected identifier in declaration").Lexeme
	def := &ast.Def{Name: name, Pos: pos}
	for p.match(lexer.TokenLBracket) {
		def.Dims = append(def.Dims, p.constExpr())
		p.consume(lexer.TokenRBracket, "expected ']' after array dimension")
	}
	if isConst {
		p.consume(lexer.TokenAssign, "expected '=' in const definition")
		def.Init = p.initVal()
	} else if p.match(lexer.TokenAssign) {
		def.Init = p.initVal()
	}
	return def
}

func (p *Parser) initVal() *ast.InitVal {
	pos := p.peek().Pos()
	if p.match(lexer.TokenLBrace) {
		iv := &ast.InitVal{Elements: []*ast.InitVal{}, Pos: pos}
		if !p.check(lexer.TokenRBrace) {
			iv.Elements = append(iv.Elements, p.initVal())
			for p.match(lexer.TokenComma) {
				iv.Elements = append(iv.Elements, p.initVal())
			}
		}
		p.consume(lexer.TokenRBrace, "expected '}' after initializer list")
		return iv
	}
	return &ast.InitVal{Scalar: p.expr(), Pos: pos}
}

func (p *Parser) block() *ast.Block {
	pos := p.peek().Pos()
	p.consume(lexer.TokenLBrace, "expected '{' to start block")
	b := &ast.Block{Pos: pos}
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		if p.checkDeclStart() {
			b.Items = append(b.Items, ast.BlockItem{Decl: p.decl()})
		} else {
			b.Items = append(b.Items, ast.BlockItem{Stmt: p.stmt()})
		}
	}
	p.consume(lexer.TokenRBrace, "expected '}' to close block")
	return b
}

func (p *Parser) checkDeclStart() bool {
	return p.check(lexer.TokenConst) || p.check(lexer.TokenInt)
}

func (p *Parser) stmt() ast.Stmt {
	pos := p.peek().Pos()
	switch {
	case p.match(lexer.TokenSemi):
		return &ast.ExprStmt{Pos: pos}
	case p.check(lexer.TokenLBrace):
		return &ast.BlockStmt{Body: p.block(), Pos: pos}
	case p.match(lexer.TokenIf):
		return p.ifStmtAt(pos)
	case p.match(lexer.TokenWhile):
		return p.whileStmtAt(pos)
	case p.match(lexer.TokenBreak):
		p.consume(lexer.TokenSemi, "expected ';' after 'break'")
		return &ast.BreakStmt{Pos: pos}
	case p.match(lexer.TokenContinue):
		p.consume(lexer.TokenSemi, "expected ';' after 'continue'")
		return &ast.ContinueStmt{Pos: pos}
	case p.match(lexer.TokenReturn):
		var x ast.Expr
		if !p.check(lexer.TokenSemi) {
			x = p.expr()
		}
		p.consume(lexer.TokenSemi, "expected ';' after 'return'")
		return &ast.ReturnStmt{X: x, Pos: pos}
	}
	return p.assignOrExprStmt(pos)
}

func (p *Parser) ifStmtAt(pos ast.Pos) ast.Stmt {
	p.consume(lexer.TokenLParen, "expected '(' after 'if'")
	cond := p.expr()
	p.consume(lexer.TokenRParen, "expected ')' after condition")
	then := p.stmt()
	var els ast.Stmt
	if p.match(lexer.TokenElse) {
		els = p.stmt()
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els, Pos: pos}
}

func (p *Parser) whileStmtAt(pos ast.Pos) ast.Stmt {
	p.consume(lexer.TokenLParen, "expected '(' after 'while'")
	cond := p.expr()
	p.consume(lexer.TokenRParen, "expected ')' after condition")
	body := p.stmt()
	return &ast.WhileStmt{Cond: cond, Body: body, Pos: pos}
}

// assignOrExprStmt disambiguates "LVal = Exp ;" from "[Exp] ;" by
// trying to parse an lvalue and checking for a following '='; if none
// follows, it rewinds to the start of the lvalue and parses an Exp.
func (p *Parser) assignOrExprStmt(pos ast.Pos) ast.Stmt {
	posv := pos
	if p.check(lexer.TokenIdent) {
		save := p.current
		lv := p.lval()
		if p.match(lexer.TokenAssign) {
			value := p.expr()
			p.consume(lexer.TokenSemi, "expected ';' after assignment")
			return &ast.AssignStmt{Target: lv, Value: value, Pos: posv}
		}
		p.current = save
	}
	x := p.expr()
	p.consume(lexer.TokenSemi, "expected ';' after expression")
	return &ast.ExprStmt{X: x, Pos: posv}
}

func (p *Parser) lval() *ast.LVal {
	pos := p.peek().Pos()
	name := p.consume(lexer.TokenIdent, "expected identifier").Lexeme
	lv := &ast.LVal{Name: name, Pos: pos}
	for p.match(lexer.TokenLBracket) {
		lv.Indices = append(lv.Indices, p.expr())
		p.consume(lexer.TokenRBracket, "expected ']' after subscript")
	}
	return lv
}

// constExpr parses a ConstExp: syntactically identical to Exp, the
// fold-to-constant requirement is enforced by internal/irgen.
func (p *Parser) constExpr() ast.Expr { return p.expr() }

func (p *Parser) expr() ast.Expr { return p.lOrExpr() }

func (p *Parser) lOrExpr() ast.Expr {
	left := p.lAndExpr()
	for p.check(lexer.TokenOrOr) {
		pos := p.peek().Pos()
		p.advance()
		right := p.lAndExpr()
		left = &ast.LogicalExpr{And: false, L: left, R: right, Pos: pos}
	}
	return left
}

func (p *Parser) lAndExpr() ast.Expr {
	left := p.eqExpr()
	for p.check(lexer.TokenAndAnd) {
		pos := p.peek().Pos()
		p.advance()
		right := p.eqExpr()
		left = &ast.LogicalExpr{And: true, L: left, R: right, Pos: pos}
	}
	return left
}

// eqExpr is EqExp: Rel must bind tighter than Eq, so it is built on
// relExpr rather than sharing its precedence range.
func (p *Parser) eqExpr() ast.Expr {
	return p.parseBinary(p.relExpr, 1, 1)
}

// relExpr covers RelExp, the level directly above Add/Mul.
func (p *Parser) relExpr() ast.Expr {
	return p.parseBinary(p.addExpr, 2, 2)
}

func (p *Parser) addExpr() ast.Expr {
	return p.parseBinary(p.mulExpr, 3, 3)
}

func (p *Parser) mulExpr() ast.Expr {
	return p.parseBinary(p.unaryExpr, 4, 4)
}

// parseBinary is a precedence-climbing helper shared by the Eq/Rel
// and Add/Mul levels: it only consumes operators whose precedence
// falls within [lo, hi], deferring to the next tighter level
// otherwise.
func (p *Parser) parseBinary(next func() ast.Expr, lo, hi int) ast.Expr {
	left := next()
	for {
		tok := p.peek()
		prec, ok := binPrec[tok.Type]
		if !ok || prec < lo || prec > hi {
			break
		}
		p.advance()
		right := next()
		left = &ast.BinaryExpr{Op: binOps[tok.Type], L: left, R: right, Pos: tok.Pos()}
	}
	return left
}

func (p *Parser) unaryExpr() ast.Expr {
	pos := p.peek().Pos()
	switch {
	case p.match(lexer.TokenPlus):
		return &ast.UnaryExpr{Op: ast.UnaryPlus, X: p.unaryExpr(), Pos: pos}
	case p.match(lexer.TokenMinus):
		return &ast.UnaryExpr{Op: ast.UnaryNeg, X: p.unaryExpr(), Pos: pos}
	case p.match(lexer.TokenNot):
		return &ast.UnaryExpr{Op: ast.UnaryNot, X: p.unaryExpr(), Pos: pos}
	}
	return p.primaryOrCall()
}

func (p *Parser) primaryOrCall() ast.Expr {
	pos := p.peek().Pos()
	if p.check(lexer.TokenIdent) && p.checkNext(lexer.TokenLParen) {
		name := p.advance().Lexeme
		p.advance() // '('
		var args []ast.Expr
		if !p.check(lexer.TokenRParen) {
			args = append(args, p.expr())
			for p.match(lexer.TokenComma) {
				args = append(args, p.expr())
			}
		}
		p.consume(lexer.TokenRParen, "expected ')' after call arguments")
		return &ast.CallExpr{Callee: name, Args: args, Pos: pos}
	}
	return p.primary()
}

func (p *Parser) primary() ast.Expr {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenLParen:
		p.advance()
		x := p.expr()
		p.consume(lexer.TokenRParen, "expected ')' after expression")
		return x
	case lexer.TokenNumber:
		p.advance()
		return &ast.NumberExpr{Value: tok.IntVal, Pos: tok.Pos()}
	case lexer.TokenIdent:
		lv := p.lval()
		return &ast.LValExpr{LVal: lv, Pos: tok.Pos()}
	default:
		p.fail(fmt.Sprintf("unexpected token %q in expression", tok.Lexeme))
		return nil
	}
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(fmt.Sprintf("%s (found %q)", msg, p.peek().Lexeme))
	return lexer.Token{}
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.tokens[p.current].Type == lexer.TokenEOF
}

func (p *Parser) fail(msg string) {
	sysyerr.PanicAt(sysyerr.Sysy2AstError, p.peek().Pos(), "%s", msg)
}
