package backend

import (
	"strconv"

	"sysyc/internal/koopa"
)

// FunctionScan is §4.5's "scan" phase result: every SSA value's slot
// plus enough frame bookkeeping for emit to compute prologue,
// epilogue, and the few ABI-dependent operand addresses.
type FunctionScan struct {
	locs map[string]Location
	// allocSlot marks names produced by alloc: their Location denotes
	// the variable's storage itself, so using the name as a pointer
	// value means taking that slot's address (moveAddressToReg), never
	// its content. Every other pointer-typed value (getelemptr,
	// getptr, a pointer parameter, a loaded pointer) already holds the
	// address as ordinary content.
	allocSlot map[string]bool
	types     map[string]koopa.Type

	frameSize int // already ceiled to 16
	hasCall   bool
	raOffset  int // valid iff hasCall
}

func (s *FunctionScan) location(name string) Location {
	if !koopa.IsRef(name) {
		return ImmLoc(name)
	}
	if loc, ok := s.locs[name]; ok {
		return loc
	}
	panic("no scan location for value " + name)
}

// addressOf resolves name (a pointer-typed SSA value) to the register
// lines that compute its address into dst, picking moveAddressToReg
// for alloc'd variables and moveContentToReg for everything else.
func (s *FunctionScan) addressOf(name string, dst string) []string {
	loc := s.location(name)
	if loc.Kind == LocGlobal || (loc.Kind == LocStack && s.allocSlot[name]) {
		return moveAddressToReg(loc, dst)
	}
	return moveContentToReg(loc, dst)
}

// scanFunction assigns a contiguous stack slot to every instruction
// that produces a storable result, in program order, exactly as §4.5
// describes: alloc reserves size(T)/4 slots, load/binary/getelemptr/
// getptr/call reserve one, everything else reserves none.
func scanFunction(prog *koopa.Program, fn *koopa.Function) *FunctionScan {
	types := inferTypes(prog, fn)

	s := &FunctionScan{
		locs:      map[string]Location{},
		allocSlot: map[string]bool{},
		types:     types,
	}
	for _, g := range prog.Globals {
		s.locs[g.Name] = GlobalLoc(asmSym(g.Name))
	}

	nLocalVar := 0
	nParamOnStack := 0
	hasCall := false

	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			switch inst.Kind {
			case koopa.KAlloc:
				slots := inst.AllocTy.Size() / 4
				if slots < 1 {
					slots = 1
				}
				s.reserve(inst.Result, &nLocalVar, slots)
				s.allocSlot[inst.Result] = true
			case koopa.KLoad, koopa.KBinary, koopa.KCall, koopa.KGetElemPtr, koopa.KGetPtr:
				s.reserve(inst.Result, &nLocalVar, 1)
			}
			if inst.Kind == koopa.KCall {
				hasCall = true
				if n := len(inst.Args) - 8; n > nParamOnStack {
					nParamOnStack = n
				}
			}
		}
	}
	s.hasCall = hasCall

	frameWords := nParamOnStack + nLocalVar
	if hasCall {
		frameWords++
	}
	s.frameSize = ceilTo16(4 * frameWords)
	if hasCall {
		s.raOffset = s.frameSize - 4
	}

	// Re-base every local slot now that n_param_on_stack (the low end
	// of the frame, reserved for this function's own outgoing calls)
	// is known: offset = 4*(slot + n_param_on_stack).
	for name, loc := range s.locs {
		if loc.Kind == LocStack {
			slot := loc.Off / 4
			s.locs[name] = StackLoc(4 * (slot + nParamOnStack))
		}
	}

	for i, p := range fn.Params {
		if i < 8 {
			s.locs[p.Name] = RegLoc(regName("a", i))
		} else {
			s.locs[p.Name] = StackLoc(4*(i-8) + s.frameSize)
		}
	}

	return s
}

// reserve assigns the next nSlots contiguous local-variable slots to
// name (by byte offset, pre-rebase) and advances the counter.
func (s *FunctionScan) reserve(name string, nLocalVar *int, nSlots int) {
	s.locs[name] = StackLoc(4 * *nLocalVar)
	*nLocalVar += nSlots
}

func ceilTo16(n int) int {
	return (n + 15) &^ 15
}

func regName(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}
