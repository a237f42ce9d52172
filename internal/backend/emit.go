package backend

import (
	"fmt"
	"strings"

	"sysyc/internal/koopa"
	"sysyc/internal/sysyerr"
)

// Emit renders a Koopa program as RV32 assembly text: a ".data"
// section holding every global's initializer, followed by one ".text"
// block per function, each scanned in isolation (scanFunction) before
// its body is selected into instructions.
func Emit(prog *koopa.Program) (text string, err error) {
	defer sysyerr.Recover(sysyerr.Ir2RiscvError, &err)
	e := &emitter{buf: &strings.Builder{}}
	e.emitData(prog)
	for _, fn := range prog.Funcs {
		e.emitFunc(prog, fn)
	}
	return e.buf.String(), nil
}

type emitter struct {
	buf *strings.Builder
}

func (e *emitter) line(s string) {
	e.buf.WriteString(s)
	e.buf.WriteByte('\n')
}

func (e *emitter) lines(ls []string) {
	for _, s := range ls {
		e.line(s)
	}
}

func (e *emitter) op(format string, a ...any) { e.line("  " + fmt.Sprintf(format, a...)) }

func asmSym(koopaName string) string {
	return strings.TrimPrefix(koopaName, "@")
}

func asmLabel(koopaLabel string) string {
	return strings.TrimPrefix(koopaLabel, "%")
}

// --- globals (§4.5 "data section") ---

func (e *emitter) emitData(prog *koopa.Program) {
	if len(prog.Globals) == 0 {
		return
	}
	e.line("  .data")
	for _, g := range prog.Globals {
		name := asmSym(g.Name)
		e.line("  .globl " + name)
		e.line(name + ":")
		e.emitInit(g.Init, g.Ty)
		e.buf.WriteByte('\n')
	}
}

func (e *emitter) emitInit(init koopa.Init, ty koopa.Type) {
	switch {
	case init.Zero:
		e.op(".zero %d", ty.Size())
	case init.IsAggregate():
		for _, elem := range init.Elements {
			e.emitInit(elem, *ty.Elem)
		}
	default:
		e.op(".word %d", init.Scalar)
	}
}

// --- functions (§4.5 "scan, then emit") ---

func (e *emitter) emitFunc(prog *koopa.Program, fn *koopa.Function) {
	scan := scanFunction(prog, fn)
	name := asmSym(fn.Name)

	e.line("  .text")
	e.line("  .globl " + name)
	e.line(name + ":")
	e.lines(adjustSp(-scan.frameSize))
	if scan.hasCall {
		e.lines(moveContentToStack(RegLoc("ra"), scan.raOffset))
	}

	for _, bb := range fn.Blocks {
		e.line(asmLabel(bb.Label) + ":")
		for _, inst := range bb.Insts {
			e.emitInst(scan, inst)
		}
	}
	e.buf.WriteByte('\n')
}

// adjustSp moves the stack pointer by delta, handling offsets past the
// 12-bit signed immediate addi can encode directly.
func adjustSp(delta int) []string {
	if delta > -2048 && delta < 2048 {
		return []string{fmt.Sprintf("  addi sp, sp, %d", delta)}
	}
	return []string{
		fmt.Sprintf("  li t0, %d", delta),
		"  add sp, sp, t0",
	}
}

func (e *emitter) epilogue(scan *FunctionScan) {
	if scan.hasCall {
		e.lines(moveContentToReg(StackLoc(scan.raOffset), "ra"))
	}
	e.lines(adjustSp(scan.frameSize))
}

// --- instruction selection ---

func (e *emitter) emitInst(scan *FunctionScan, inst *koopa.Inst) {
	switch inst.Kind {
	case koopa.KAlloc:
		// storage only; nothing to emit.
	case koopa.KLoad:
		e.emitLoad(scan, inst)
	case koopa.KStore:
		e.emitStore(scan, inst)
	case koopa.KGetElemPtr, koopa.KGetPtr:
		e.emitPtrArith(scan, inst)
	case koopa.KBinary:
		e.emitBinary(scan, inst)
	case koopa.KBranch:
		e.emitBranch(scan, inst)
	case koopa.KJump:
		e.op("j %s", asmLabel(inst.Target))
	case koopa.KCall:
		e.emitCall(scan, inst)
	case koopa.KRet:
		e.emitRet(scan, inst)
	}
}

func (e *emitter) emitLoad(scan *FunctionScan, inst *koopa.Inst) {
	e.lines(scan.addressOf(inst.Ptr, "t1"))
	e.op("lw t0, 0(t1)")
	e.lines(moveContentToStack(RegLoc("t0"), scan.location(inst.Result).Off))
}

func (e *emitter) emitStore(scan *FunctionScan, inst *koopa.Inst) {
	e.lines(scan.addressOf(inst.Val, "t0"))
	e.lines(scan.addressOf(inst.Ptr, "t1"))
	e.op("sw t0, 0(t1)")
}

// emitPtrArith handles both getelemptr and getptr: the only difference
// between them is which type denotes the element being stepped over,
// and that is already folded into the result type inferTypes assigned
// — the stride is always the result pointer's pointee size.
func (e *emitter) emitPtrArith(scan *FunctionScan, inst *koopa.Inst) {
	resultTy := scan.types[inst.Result]
	stride := resultTy.Elem.Size()

	e.lines(scan.addressOf(inst.Ptr, "t1"))
	e.lines(scan.addressOf(inst.Index, "t2"))
	if stride != 1 {
		e.op("li t0, %d", stride)
		e.op("mul t2, t2, t0")
	}
	e.op("add t1, t1, t2")
	e.lines(moveContentToStack(RegLoc("t1"), scan.location(inst.Result).Off))
}

func (e *emitter) emitBinary(scan *FunctionScan, inst *koopa.Inst) {
	e.lines(scan.addressOf(inst.LHS, "t0"))
	e.lines(scan.addressOf(inst.RHS, "t1"))
	e.lines(binaryOpInsns(inst.Op, "t0", "t0", "t1"))
	e.lines(moveContentToStack(RegLoc("t0"), scan.location(inst.Result).Off))
}

// binaryOpInsns selects the RV32 instruction(s) for a Koopa binary op,
// grounded on the same comparison-via-slt/seqz identities the teacher
// uses: le is "not gt", ge is "not lt", eq/ne are xor-to-zero tests.
func binaryOpInsns(op, rd, rs1, rs2 string) []string {
	direct := map[string]string{
		"add": "add", "sub": "sub", "mul": "mul", "div": "div", "mod": "rem",
		"and": "and", "or": "or", "xor": "xor",
		"shl": "sll", "shr": "srl", "sar": "sra",
		"lt": "slt", "gt": "sgt",
	}
	if ins, ok := direct[op]; ok {
		return []string{fmt.Sprintf("  %s %s, %s, %s", ins, rd, rs1, rs2)}
	}
	switch op {
	case "le":
		return []string{
			fmt.Sprintf("  sgt %s, %s, %s", rd, rs1, rs2),
			fmt.Sprintf("  seqz %s, %s", rd, rd),
		}
	case "ge":
		return []string{
			fmt.Sprintf("  slt %s, %s, %s", rd, rs1, rs2),
			fmt.Sprintf("  seqz %s, %s", rd, rd),
		}
	case "eq":
		return []string{
			fmt.Sprintf("  xor %s, %s, %s", rd, rs1, rs2),
			fmt.Sprintf("  seqz %s, %s", rd, rd),
		}
	case "ne":
		return []string{
			fmt.Sprintf("  xor %s, %s, %s", rd, rs1, rs2),
			fmt.Sprintf("  snez %s, %s", rd, rd),
		}
	}
	sysyerr.Panic(sysyerr.Ir2RiscvError, "unsupported binary op %q", op)
	return nil
}

func (e *emitter) emitBranch(scan *FunctionScan, inst *koopa.Inst) {
	e.lines(scan.addressOf(inst.Cond, "t0"))
	e.op("bnez t0, %s", asmLabel(inst.Then))
	e.op("j %s", asmLabel(inst.Else))
}

// emitCall places arguments per the ABI (§4.5 "function calls"): the
// first eight in a0-a7, the rest at 4*(i-8)(sp) measured from this
// function's own current stack pointer, then issues the call and, for
// a non-void callee, stores the a0 result into its own slot.
func (e *emitter) emitCall(scan *FunctionScan, inst *koopa.Inst) {
	for i, arg := range inst.Args {
		if i < 8 {
			e.lines(scan.addressOf(arg, regName("a", i)))
		} else {
			e.lines(scan.addressOf(arg, "t0"))
			e.lines(moveContentToStack(RegLoc("t0"), 4*(i-8)))
		}
	}
	e.op("call %s", asmSym(inst.Callee))
	if inst.Result != "" {
		e.lines(moveContentToStack(RegLoc("a0"), scan.location(inst.Result).Off))
	}
}

func (e *emitter) emitRet(scan *FunctionScan, inst *koopa.Inst) {
	if inst.HasRetVal {
		e.lines(scan.addressOf(inst.RetVal, "a0"))
	}
	e.epilogue(scan)
	e.op("ret")
}
