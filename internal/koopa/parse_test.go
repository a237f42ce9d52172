package koopa

import "testing"

const sampleProgram = `
decl @getint(): i32
decl @putint(i32)

global @g = alloc i32, 10
global @arr = alloc [i32, 3], {1, 2, 3}
global @zeroed = alloc [i32, 2], zeroinit

fun @main(): i32 {
%entry_0:
  %0 = alloc i32
  store 10, %0
  %1 = load %0
  %2 = add %1, 1
  %3 = getelemptr @arr, 0
  %4 = load %3
  br %4, %then_0, %else_0
%then_0:
  jump %end_0
%else_0:
  jump %end_0
%end_0:
  call @putint(%2)
  ret %2
}
`

func TestParseProgram(t *testing.T) {
	prog, err := Parse(sampleProgram)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(prog.Decls))
	}
	if len(prog.Globals) != 3 {
		t.Fatalf("expected 3 globals, got %d", len(prog.Globals))
	}
	arr := prog.Globals[1]
	if !arr.Init.IsAggregate() || len(arr.Init.Elements) != 3 {
		t.Fatalf("unexpected aggregate init: %+v", arr.Init)
	}
	zeroed := prog.Globals[2]
	if !zeroed.Init.Zero {
		t.Fatalf("expected zeroinit, got %+v", zeroed.Init)
	}

	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(prog.Funcs))
	}
	fn := prog.Funcs[0]
	if fn.RetType == nil || fn.RetType.Kind != TyI32 {
		t.Fatalf("expected i32 return type, got %+v", fn.RetType)
	}
	if len(fn.Blocks) != 4 {
		t.Fatalf("expected 4 basic blocks, got %d", len(fn.Blocks))
	}
	entry := fn.Blocks[0]
	if len(entry.Insts) != 7 {
		t.Fatalf("expected 7 instructions in entry, got %d", len(entry.Insts))
	}
	if entry.Insts[0].Kind != KAlloc || !entry.Insts[0].AllocTy.Equal(I32()) {
		t.Fatalf("unexpected first inst: %+v", entry.Insts[0])
	}
	br := entry.Insts[6]
	if br.Kind != KBranch || br.Then != "%then_0" || br.Else != "%else_0" {
		t.Fatalf("unexpected branch: %+v", br)
	}

	last := fn.Blocks[3]
	if last.Insts[0].Kind != KCall || last.Insts[0].Callee != "@putint" {
		t.Fatalf("unexpected call: %+v", last.Insts[0])
	}
	if last.Insts[1].Kind != KRet || !last.Insts[1].HasRetVal || last.Insts[1].RetVal != "%2" {
		t.Fatalf("unexpected ret: %+v", last.Insts[1])
	}
}

func TestParseTypeNested(t *testing.T) {
	p := &parser{}
	ty, rest := parseType(p, "[[i32, 3], 2]")
	if ty.Kind != TyArray || ty.Len != 2 || ty.Elem.Kind != TyArray || ty.Elem.Len != 3 {
		t.Fatalf("unexpected nested array type: %+v", ty)
	}
	if rest != "" {
		t.Fatalf("expected no remainder, got %q", rest)
	}
}
