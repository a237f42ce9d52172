package irgen

import (
	"fmt"
	"strconv"
	"strings"

	"sysyc/internal/ast"
)

// backwardProduct builds the stride table S[k] = product(dims[j] for
// j>k), used both to decide where a nested aggregate's partial
// initializer realigns to and to turn a flat index back into
// per-dimension coordinates.
func backwardProduct(dims []int) []int {
	s := make([]int, len(dims))
	if len(dims) == 0 {
		return s
	}
	s[len(dims)-1] = 1
	for i := len(dims) - 2; i >= 0; i-- {
		s[i] = s[i+1] * dims[i+1]
	}
	return s
}

func flatLen(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// flattenGlobalInit walks a brace initializer per §4.3's partial-
// brace algorithm and returns one constant-folded text element per
// flat position (missing elements default to "0").
func (l *Lowerer) flattenGlobalInit(init *ast.InitVal, dims []int) []string {
	flat := make([]string, flatLen(dims))
	for i := range flat {
		flat[i] = "0"
	}
	strides := backwardProduct(dims)
	l.walkConstInit(init, flat, strides, 0, 0)
	return flat
}

func (l *Lowerer) walkConstInit(init *ast.InitVal, flat []string, strides []int, level, idx int) {
	if !init.IsAggregate() {
		flat[idx] = strconv.Itoa(int(l.mustFoldConst(init.Scalar)))
		return
	}
	cur := idx
	for _, sub := range init.Elements {
		l.walkConstInit(sub, flat, strides, level+1, cur)
		if sub.IsAggregate() {
			cur = realignIndex(cur, strides, level)
		} else {
			cur++
		}
	}
}

// flattenLocalInit is the variable-initializer counterpart: each
// scalar element is opportunistically constant-folded, falling back
// to emitting runtime IR and carrying the resulting handle.
func (l *Lowerer) flattenLocalInit(init *ast.InitVal, dims []int) []string {
	flat := make([]string, flatLen(dims))
	for i := range flat {
		flat[i] = "0"
	}
	strides := backwardProduct(dims)
	l.walkVarInit(init, flat, strides, 0, 0)
	return flat
}

func (l *Lowerer) walkVarInit(init *ast.InitVal, flat []string, strides []int, level, idx int) {
	if !init.IsAggregate() {
		if v, ok := l.foldConst(init.Scalar); ok {
			flat[idx] = strconv.Itoa(int(v))
		} else {
			flat[idx] = init.Scalar.Accept(l)
		}
		return
	}
	cur := idx
	for _, sub := range init.Elements {
		l.walkVarInit(sub, flat, strides, level+1, cur)
		if sub.IsAggregate() {
			cur = realignIndex(cur, strides, level)
		} else {
			cur++
		}
	}
}

// realignIndex advances cur by the largest stride S[k], k >= level,
// that cur is a multiple of, matching the C partial-brace rule: a
// closed nested aggregate fills the whole sub-array it starts, up to
// the next dimension boundary it implies, not just one element.
func realignIndex(cur int, strides []int, level int) int {
	for k := level; k < len(strides); k++ {
		if cur%strides[k] == 0 {
			return cur + strides[k]
		}
	}
	return cur
}

// nestAggregateText renders a flat constant array back into the
// brace-nested text a global's aggregate initializer requires.
func nestAggregateText(flat []string, dims []int) string {
	strides := backwardProduct(dims)
	idx := make([]int, len(dims))
	var walk func(level int) string
	walk = func(level int) string {
		if level == len(dims) {
			pos := 0
			for j, s := range strides {
				pos += idx[j] * s
			}
			return flat[pos]
		}
		var b strings.Builder
		b.WriteByte('{')
		for i := 0; i < dims[level]; i++ {
			idx[level] = i
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(walk(level + 1))
		}
		b.WriteByte('}')
		return b.String()
	}
	return walk(0)
}

// emitLocalArrayStores turns a flat initializer into one store per
// element via a chained getelemptr address, including the
// zero-filled slots flattenLocalInit already inserted for elisions.
func (l *Lowerer) emitLocalArrayStores(slot string, dims []int, flat []string) {
	strides := backwardProduct(dims)
	for i, handle := range flat {
		idx := make([]int, len(dims))
		rem := i
		for j := range dims {
			idx[j] = rem / strides[j]
			rem = rem % strides[j]
		}
		ptr := l.getPointerToElementIntIdx(slot, idx)
		l.emit(fmt.Sprintf("store %s, %s", handle, ptr))
	}
}

// getPointerToElementIntIdx chains getelemptr using literal integer
// indices. It is only ever called against a freshly-declared local
// array (never a parameter slot: parameters cannot carry a brace
// initializer), so every step is a plain getelemptr.
func (l *Lowerer) getPointerToElementIntIdx(base string, idx []int) string {
	ptr := base
	for _, i := range idx {
		np := l.newTemp()
		l.emit(fmt.Sprintf("%s = getelemptr %s, %d", np, ptr, i))
		ptr = np
	}
	return ptr
}
