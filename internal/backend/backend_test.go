package backend

import (
	"strings"
	"testing"

	"sysyc/internal/koopa"
)

func TestMoveContentToReg(t *testing.T) {
	cases := []struct {
		src  Location
		want string
	}{
		{ImmLoc("1"), "  li a0, 1"},
		{RegLoc("a0"), ""},
		{StackLoc(0), "  lw a0, 0(sp)"},
		{GlobalLoc("@g"), "  la t3, @g\n  lw a0, 0(t3)"},
	}
	for _, c := range cases {
		got := strings.Join(moveContentToReg(c.src, "a0"), "\n")
		if c.src.Kind == LocReg {
			if got != "" {
				t.Fatalf("same-register move should be a no-op, got %q", got)
			}
			continue
		}
		if got != c.want {
			t.Fatalf("moveContentToReg(%+v) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestMoveContentToStack(t *testing.T) {
	got := strings.Join(moveContentToStack(RegLoc("a0"), 4), "\n")
	if got != "  sw a0, 4(sp)" {
		t.Fatalf("got %q", got)
	}
	got = strings.Join(moveContentToStack(ImmLoc("5"), 8), "\n")
	if got != "  li t0, 5\n  sw t0, 8(sp)" {
		t.Fatalf("got %q", got)
	}
}

func TestStackOperandSpillsPastImmediateRange(t *testing.T) {
	setup, operand := stackOperand(4096, "t3")
	if operand != "0(t3)" {
		t.Fatalf("expected scratch-indirected operand, got %q", operand)
	}
	if len(setup) != 2 {
		t.Fatalf("expected a li+add setup pair, got %v", setup)
	}
}

func TestMoveAddressToReg(t *testing.T) {
	got := strings.Join(moveAddressToReg(StackLoc(12), "t1"), "\n")
	if got != "  addi t1, sp, 12" {
		t.Fatalf("got %q", got)
	}
	got = strings.Join(moveAddressToReg(GlobalLoc("@a"), "t1"), "\n")
	if got != "  la t1, @a" {
		t.Fatalf("got %q", got)
	}
}

const sampleProgram = `
decl @getint(): i32
decl @putint(i32)

global @g = alloc i32, zeroinit

fun @callee(%x: i32): i32 {
%callee_entry_0:
  %0 = alloc i32
  store %x, %0
  %1 = load %0
  ret %1
}

fun @main(): i32 {
%main_entry_0:
  %2 = alloc i32
  store 3, %2
  %3 = load %2
  %4 = call @callee(%3)
  store %4, @g
  %6 = load @g
  br %6, %then_0, %else_0
%then_0:
  jump %end_0
%else_0:
  jump %end_0
%end_0:
  ret %6
}
`

func TestEmitProducesGlobalAndFunctionSections(t *testing.T) {
	prog, err := koopa.Parse(sampleProgram)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	text, err := Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	if !strings.Contains(text, "  .data") {
		t.Fatalf("missing data section, got:\n%s", text)
	}
	if !strings.Contains(text, "g:\n  .zero 4") {
		t.Fatalf("expected a zero-filled global, got:\n%s", text)
	}
	if !strings.Contains(text, "callee:") || !strings.Contains(text, "main:") {
		t.Fatalf("missing function labels, got:\n%s", text)
	}
	if !strings.Contains(text, "call callee") {
		t.Fatalf("expected a call instruction, got:\n%s", text)
	}
	if strings.Count(text, "ret") < 2 {
		t.Fatalf("expected a ret in both functions, got:\n%s", text)
	}
	if strings.Contains(text, "@g") {
		t.Fatalf("global references must use the bare .data label, not the Koopa @ name, got:\n%s", text)
	}
	if !strings.Contains(text, "la t1, g") {
		t.Fatalf("expected the global access to target the emitted label g, got:\n%s", text)
	}
}

func TestEmitArgumentPassingUsesA0(t *testing.T) {
	prog, err := koopa.Parse(sampleProgram)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	text, err := Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	if !strings.Contains(text, "lw a0, ") {
		t.Fatalf("expected the sole argument loaded directly into a0, got:\n%s", text)
	}
}

const overflowArgsProgram = `
decl @sum9(i32, i32, i32, i32, i32, i32, i32, i32, i32): i32

fun @main(): i32 {
%main_entry_0:
  %0 = call @sum9(1, 2, 3, 4, 5, 6, 7, 8, 9)
  ret %0
}
`

func TestEmitSpillsNinthArgumentToStack(t *testing.T) {
	prog, err := koopa.Parse(overflowArgsProgram)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	text, err := Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	if !strings.Contains(text, "sw t0, 0(sp)") {
		t.Fatalf("expected the 9th argument written to the outgoing-args area, got:\n%s", text)
	}
	if strings.Contains(text, "li a8,") {
		t.Fatalf("there is no a8 register, got:\n%s", text)
	}
}
