package koopa

import (
	"strconv"
	"strings"

	"sysyc/internal/sysyerr"
)

// Parse recovers a *Program from the IR text internal/irgen produced.
// It implements the "re-parse the emitted text" stage the backend
// depends on; a failure here means the lowering pass emitted
// something the grammar below does not accept, which is always a bug
// upstream rather than a problem with the input SysY program.
func Parse(text string) (prog *Program, err error) {
	defer sysyerr.Recover(sysyerr.IrText2ProgramError, &err)
	p := &parser{lines: splitLines(text)}
	prog = p.parseProgram()
	return prog, nil
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	var out []string
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "//") {
			continue
		}
		out = append(out, l)
	}
	return out
}

type parser struct {
	lines []string
	i     int
}

func (p *parser) fail(format string, args ...interface{}) {
	sysyerr.Panic(sysyerr.IrText2ProgramError, format, args...)
}

func (p *parser) atEnd() bool { return p.i >= len(p.lines) }

func (p *parser) peek() string {
	if p.atEnd() {
		p.fail("unexpected end of IR text")
	}
	return p.lines[p.i]
}

func (p *parser) next() string {
	l := p.peek()
	p.i++
	return l
}

func (p *parser) parseProgram() *Program {
	prog := &Program{}
	for !p.atEnd() {
		line := p.peek()
		switch {
		case strings.HasPrefix(line, "decl "):
			prog.Decls = append(prog.Decls, p.parseDecl(p.next()))
		case strings.HasPrefix(line, "global "):
			prog.Globals = append(prog.Globals, p.parseGlobal(p.next()))
		case strings.HasPrefix(line, "fun "):
			prog.Funcs = append(prog.Funcs, p.parseFunc())
		default:
			p.fail("expected decl/global/fun, found %q", line)
		}
	}
	return prog
}

// parseDecl parses "decl @name(T, T, ...)[: RT]".
func (p *parser) parseDecl(line string) *Decl {
	rest := strings.TrimPrefix(line, "decl ")
	name, rest := cutIdent(rest)
	rest = requirePrefix(p, rest, "(")
	paramsStr, rest := takeBalancedParen(p, rest)
	d := &Decl{Name: name}
	for _, part := range splitTopLevel(paramsStr, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ty, _ := parseType(p, part)
		d.ParamTypes = append(d.ParamTypes, ty)
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, ":") {
		ty, _ := parseType(p, strings.TrimSpace(rest[1:]))
		d.RetType = &ty
	}
	return d
}

// parseGlobal parses "global @name = alloc T, init".
func (p *parser) parseGlobal(line string) *Global {
	rest := strings.TrimPrefix(line, "global ")
	name, rest := cutIdent(rest)
	rest = requirePrefix(p, strings.TrimSpace(rest), "=")
	rest = requirePrefix(p, strings.TrimSpace(rest), "alloc")
	rest = strings.TrimSpace(rest)
	parts := splitTopLevel(rest, ',')
	if len(parts) < 2 {
		p.fail("malformed global initializer: %q", line)
	}
	ty, _ := parseType(p, strings.TrimSpace(parts[0]))
	initText := strings.TrimSpace(strings.Join(parts[1:], ","))
	init := parseInit(p, initText)
	return &Global{Name: name, Ty: ty, Init: init}
}

func parseInit(p *parser, s string) Init {
	s = strings.TrimSpace(s)
	if s == "zeroinit" {
		return Init{Zero: true}
	}
	if strings.HasPrefix(s, "{") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		var elems []Init
		for _, part := range splitTopLevel(inner, ',') {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			elems = append(elems, parseInit(p, part))
		}
		if elems == nil {
			elems = []Init{}
		}
		return Init{Elements: elems}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail("expected integer initializer, found %q", s)
	}
	return Init{Scalar: int32(n)}
}

// parseFunc parses "fun @name(%p: T, ...)[: RT] {" through its
// matching "}".
func (p *parser) parseFunc() *Function {
	line := p.next()
	rest := strings.TrimPrefix(line, "fun ")
	name, rest := cutIdent(rest)
	rest = requirePrefix(p, rest, "(")
	paramsStr, rest := takeBalancedParen(p, rest)
	fn := &Function{Name: name}
	for _, part := range splitTopLevel(paramsStr, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		nameRest := strings.SplitN(part, ":", 2)
		if len(nameRest) != 2 {
			p.fail("malformed parameter %q", part)
		}
		pname := strings.TrimSpace(nameRest[0])
		ty, _ := parseType(p, strings.TrimSpace(nameRest[1]))
		fn.Params = append(fn.Params, Param{Name: pname, Ty: ty})
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, ":") {
		rest = strings.TrimSpace(rest[1:])
		braceIdx := strings.IndexByte(rest, '{')
		if braceIdx < 0 {
			p.fail("expected '{' after function signature")
		}
		ty, _ := parseType(p, strings.TrimSpace(rest[:braceIdx]))
		fn.RetType = &ty
	}

	for !p.atEnd() {
		line := p.peek()
		if line == "}" {
			p.next()
			return fn
		}
		fn.Blocks = append(fn.Blocks, p.parseBlock())
	}
	p.fail("unterminated function body for %s", name)
	return fn
}

func (p *parser) parseBlock() *BasicBlock {
	line := p.next()
	if !strings.HasSuffix(line, ":") {
		p.fail("expected basic block label, found %q", line)
	}
	bb := &BasicBlock{Label: strings.TrimSuffix(line, ":")}
	for !p.atEnd() {
		line := p.peek()
		if line == "}" || strings.HasSuffix(line, ":") {
			break
		}
		bb.Insts = append(bb.Insts, p.parseInst(p.next()))
	}
	return bb
}

func (p *parser) parseInst(line string) *Inst {
	if eq := strings.Index(line, " = "); eq >= 0 {
		result := strings.TrimSpace(line[:eq])
		rhs := strings.TrimSpace(line[eq+3:])
		return p.parseAssigningInst(result, rhs)
	}
	switch {
	case strings.HasPrefix(line, "store "):
		parts := splitTopLevel(strings.TrimPrefix(line, "store "), ',')
		if len(parts) != 2 {
			p.fail("malformed store: %q", line)
		}
		return &Inst{Kind: KStore, Val: strings.TrimSpace(parts[0]), Ptr: strings.TrimSpace(parts[1])}
	case strings.HasPrefix(line, "br "):
		parts := splitTopLevel(strings.TrimPrefix(line, "br "), ',')
		if len(parts) != 3 {
			p.fail("malformed br: %q", line)
		}
		return &Inst{Kind: KBranch,
			Cond: strings.TrimSpace(parts[0]),
			Then: strings.TrimSpace(parts[1]),
			Else: strings.TrimSpace(parts[2]),
		}
	case strings.HasPrefix(line, "jump "):
		return &Inst{Kind: KJump, Target: strings.TrimSpace(strings.TrimPrefix(line, "jump "))}
	case strings.HasPrefix(line, "call "):
		callee, args := p.parseCall(strings.TrimPrefix(line, "call "))
		return &Inst{Kind: KCall, Callee: callee, Args: args}
	case line == "ret":
		return &Inst{Kind: KRet}
	case strings.HasPrefix(line, "ret "):
		return &Inst{Kind: KRet, HasRetVal: true, RetVal: strings.TrimSpace(strings.TrimPrefix(line, "ret "))}
	default:
		p.fail("unrecognized instruction: %q", line)
		return nil
	}
}

func (p *parser) parseAssigningInst(result, rhs string) *Inst {
	switch {
	case strings.HasPrefix(rhs, "alloc "):
		ty, _ := parseType(p, strings.TrimPrefix(rhs, "alloc "))
		return &Inst{Result: result, Kind: KAlloc, Ty: Ptr(ty), AllocTy: ty}
	case strings.HasPrefix(rhs, "load "):
		return &Inst{Result: result, Kind: KLoad, Ptr: strings.TrimSpace(strings.TrimPrefix(rhs, "load "))}
	case strings.HasPrefix(rhs, "getelemptr "):
		ptr, idx := p.parseTwoOperands(strings.TrimPrefix(rhs, "getelemptr "))
		return &Inst{Result: result, Kind: KGetElemPtr, Ptr: ptr, Index: idx}
	case strings.HasPrefix(rhs, "getptr "):
		ptr, idx := p.parseTwoOperands(strings.TrimPrefix(rhs, "getptr "))
		return &Inst{Result: result, Kind: KGetPtr, Ptr: ptr, Index: idx}
	case strings.HasPrefix(rhs, "call "):
		callee, args := p.parseCall(strings.TrimPrefix(rhs, "call "))
		return &Inst{Result: result, Kind: KCall, Callee: callee, Args: args}
	default:
		op, operands := cutIdent(rhs)
		if !isBinaryOp(op) {
			p.fail("unrecognized assigning instruction: %q", rhs)
		}
		lhs, rhsOperand := p.parseTwoOperands(operands)
		return &Inst{Result: result, Kind: KBinary, Op: op, LHS: lhs, RHS: rhsOperand}
	}
}

func (p *parser) parseTwoOperands(s string) (string, string) {
	parts := splitTopLevel(s, ',')
	if len(parts) != 2 {
		p.fail("expected two operands in %q", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func (p *parser) parseCall(s string) (string, []string) {
	name, rest := cutIdent(s)
	rest = requirePrefix(p, rest, "(")
	argsStr, _ := takeBalancedParen(p, rest)
	var args []string
	for _, part := range splitTopLevel(argsStr, ',') {
		part = strings.TrimSpace(part)
		if part != "" {
			args = append(args, part)
		}
	}
	return name, args
}

func isBinaryOp(op string) bool {
	switch op {
	case "add", "sub", "mul", "div", "mod", "lt", "gt", "le", "ge", "eq", "ne", "and", "or", "xor", "shl", "shr", "sar":
		return true
	}
	return false
}

// cutIdent reads a leading @name/%name/bareword token and returns the
// remainder of the string.
func cutIdent(s string) (string, string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '@' || c == '%' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}

func requirePrefix(p *parser, s, prefix string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, prefix) {
		p.fail("expected %q, found %q", prefix, s)
	}
	return s[len(prefix):]
}

// takeBalancedParen consumes up to and including the ')' matching the
// '(' already stripped by the caller, returning (inside, after).
func takeBalancedParen(p *parser, s string) (string, string) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], s[i+1:]
			}
		}
	}
	p.fail("unbalanced parentheses in %q", s)
	return "", ""
}

// splitTopLevel splits s on sep, ignoring separators nested inside
// '[' ']' or '{' '}' pairs (a type like "[i32, 3]" or an aggregate
// like "{1, 2}" contains a comma that is not a field separator).
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// parseType parses a Type prefix of s and returns (type, remainder).
func parseType(p *parser, s string) (Type, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "*"):
		elem, rest := parseType(p, s[1:])
		return Ptr(elem), rest
	case strings.HasPrefix(s, "["):
		elem, rest := parseType(p, s[1:])
		rest = strings.TrimSpace(rest)
		rest = requirePrefix(p, rest, ",")
		rest = strings.TrimSpace(rest)
		j := strings.IndexByte(rest, ']')
		if j < 0 {
			p.fail("malformed array type: %q", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest[:j]))
		if err != nil {
			p.fail("malformed array length in %q", s)
		}
		return Array(elem, n), rest[j+1:]
	case strings.HasPrefix(s, "i32"):
		return I32(), s[3:]
	default:
		p.fail("malformed type: %q", s)
		return Type{}, ""
	}
}
