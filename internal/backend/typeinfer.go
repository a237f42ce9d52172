package backend

import (
	"sysyc/internal/koopa"
	"sysyc/internal/sysyerr"
)

// inferTypes walks fn's instructions once, assigning every SSA name
// (including its formal parameters and any referenced globals) the
// Koopa type it carries. The emitted IR text does not repeat a type
// per instruction the way a type-annotated IR would, so getelemptr's
// and getptr's element-size scaling (§4.5) has to be recovered this
// way rather than read off the instruction directly.
func inferTypes(prog *koopa.Program, fn *koopa.Function) map[string]koopa.Type {
	types := map[string]koopa.Type{}
	for _, g := range prog.Globals {
		types[g.Name] = koopa.Ptr(g.Ty)
	}
	for _, p := range fn.Params {
		types[p.Name] = p.Ty
	}

	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			if inst.Result == "" {
				continue
			}
			switch inst.Kind {
			case koopa.KAlloc:
				types[inst.Result] = koopa.Ptr(inst.AllocTy)
			case koopa.KLoad:
				ptrTy := resolveType(types, inst.Ptr)
				types[inst.Result] = *ptrTy.Elem
			case koopa.KGetElemPtr:
				ptrTy := resolveType(types, inst.Ptr)
				types[inst.Result] = koopa.Ptr(*ptrTy.Elem.Elem)
			case koopa.KGetPtr:
				types[inst.Result] = resolveType(types, inst.Ptr)
			case koopa.KBinary, koopa.KCall:
				types[inst.Result] = koopa.I32()
			}
		}
	}
	return types
}

func resolveType(types map[string]koopa.Type, operand string) koopa.Type {
	ty, ok := types[operand]
	if !ok {
		sysyerr.Panic(sysyerr.Ir2RiscvError, "no inferred type for value %q", operand)
	}
	return ty
}
