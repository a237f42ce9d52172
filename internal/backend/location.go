// Package backend lowers the in-memory Koopa program (internal/koopa)
// into RV32 assembly text: a per-function scan assigning every SSA
// value a storage location, followed by an emit pass that selects
// RISC-V instructions against those locations.
package backend

import "fmt"

// LocKind is the storage kind a Koopa value resolves to.
type LocKind int

const (
	LocImm LocKind = iota
	LocReg
	LocStack
	LocGlobal
)

// Location is a value's resolved storage: ready to drop into an
// operand position once the right move helper below renders it.
type Location struct {
	Kind LocKind
	Imm  string // LocImm: the decimal literal text
	Reg  string // LocReg: e.g. "a0"
	Off  int    // LocStack: byte offset from sp
	Sym  string // LocGlobal: the assembly symbol name, without Koopa's '@'
}

func ImmLoc(v string) Location    { return Location{Kind: LocImm, Imm: v} }
func RegLoc(r string) Location    { return Location{Kind: LocReg, Reg: r} }
func StackLoc(off int) Location   { return Location{Kind: LocStack, Off: off} }
func GlobalLoc(sym string) Location { return Location{Kind: LocGlobal, Sym: sym} }

// stackOperand resolves a stack offset to an operand string, spilling
// through scratch when the offset does not fit a 12-bit signed
// immediate: li scratch, off; add scratch, sp, scratch; 0(scratch).
func stackOperand(off int, scratch string) (setup []string, operand string) {
	if off > -2048 && off < 2048 {
		return nil, fmt.Sprintf("%d(sp)", off)
	}
	return []string{
		fmt.Sprintf("  li %s, %d", scratch, off),
		fmt.Sprintf("  add %s, sp, %s", scratch, scratch),
	}, fmt.Sprintf("0(%s)", scratch)
}

// moveContentToReg loads src's value into dst, the "move_content(src,
// t0)" helper from §4.5 specialized to a register destination.
func moveContentToReg(src Location, dst string) []string {
	switch src.Kind {
	case LocImm:
		return []string{fmt.Sprintf("  li %s, %s", dst, src.Imm)}
	case LocReg:
		if src.Reg == dst {
			return nil
		}
		return []string{fmt.Sprintf("  mv %s, %s", dst, src.Reg)}
	case LocStack:
		setup, operand := stackOperand(src.Off, "t3")
		return append(setup, fmt.Sprintf("  lw %s, %s", dst, operand))
	case LocGlobal:
		return []string{
			fmt.Sprintf("  la t3, %s", src.Sym),
			fmt.Sprintf("  lw %s, 0(t3)", dst),
		}
	}
	panic("unreachable location kind")
}

// moveContentToStack stores src's value at the given stack offset.
func moveContentToStack(src Location, off int) []string {
	var lines []string
	valReg := "t0"
	if src.Kind == LocReg {
		valReg = src.Reg
	} else {
		lines = append(lines, moveContentToReg(src, "t0")...)
	}
	setup, operand := stackOperand(off, "t3")
	lines = append(lines, setup...)
	lines = append(lines, fmt.Sprintf("  sw %s, %s", valReg, operand))
	return lines
}

// moveContentToGlobal stores src's value into a global symbol's slot.
func moveContentToGlobal(src Location, sym string) []string {
	var lines []string
	valReg := "t0"
	if src.Kind == LocReg {
		valReg = src.Reg
	} else {
		lines = append(lines, moveContentToReg(src, "t0")...)
	}
	lines = append(lines, fmt.Sprintf("  la t3, %s", sym))
	lines = append(lines, fmt.Sprintf("  sw %s, 0(t3)", valReg))
	return lines
}

// moveContent is the general src-to-dst mover the cross product in
// §4.5 describes; dst must be Reg, Stack, or Global.
func moveContent(src, dst Location) []string {
	switch dst.Kind {
	case LocReg:
		return moveContentToReg(src, dst.Reg)
	case LocStack:
		return moveContentToStack(src, dst.Off)
	case LocGlobal:
		return moveContentToGlobal(src, dst.Sym)
	}
	panic("invalid move destination")
}

// moveAddressToReg yields dst = &src, for Stack or Global sources
// only (the two locations that denote addressable storage).
func moveAddressToReg(src Location, dst string) []string {
	switch src.Kind {
	case LocStack:
		if src.Off > -2048 && src.Off < 2048 {
			return []string{fmt.Sprintf("  addi %s, sp, %d", dst, src.Off)}
		}
		return []string{
			fmt.Sprintf("  li %s, %d", dst, src.Off),
			fmt.Sprintf("  add %s, sp, %s", dst, dst),
		}
	case LocGlobal:
		return []string{fmt.Sprintf("  la %s, %s", dst, src.Sym)}
	}
	panic("location is not addressable")
}
