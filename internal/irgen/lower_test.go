package irgen

import (
	"strings"
	"testing"

	"sysyc/internal/lexer"
	"sysyc/internal/parser"
)

func lower(t *testing.T, src string) string {
	t.Helper()
	cu, err := parser.Parse(lexer.NewScanner(src).ScanTokens())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	text, err := Lower(cu)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	return text
}

func lowerErr(t *testing.T, src string) error {
	t.Helper()
	cu, err := parser.Parse(lexer.NewScanner(src).ScanTokens())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = Lower(cu)
	return err
}

func TestLowerMinimalMain(t *testing.T) {
	text := lower(t, "int main() { return 0; }")
	if !strings.Contains(text, "fun @main(): i32 {") {
		t.Fatalf("missing function signature, got:\n%s", text)
	}
	if !strings.Contains(text, "ret 0") {
		t.Fatalf("missing return, got:\n%s", text)
	}
	if !strings.HasSuffix(strings.TrimRight(text, "\n"), "}") {
		t.Fatalf("expected body to close with }, got:\n%s", text)
	}
}

func TestLowerVoidFunctionFallsThroughToRet(t *testing.T) {
	text := lower(t, "void f() { int x = 1; } int main() { f(); return 0; }")
	if !strings.Contains(text, "fun @f() {") {
		t.Fatalf("missing void signature, got:\n%s", text)
	}
	lines := strings.Split(text, "\n")
	foundRet := false
	for i, l := range lines {
		if strings.TrimSpace(l) == "}" && i > 0 && strings.TrimSpace(lines[i-1]) == "ret" {
			foundRet = true
		}
	}
	if !foundRet {
		t.Fatalf("expected a bare ret right before the closing brace, got:\n%s", text)
	}
}

func TestLowerConstFolding(t *testing.T) {
	text := lower(t, "int main() { const int N = 2 + 3; return N * N; }")
	if strings.Contains(text, "mul") {
		t.Fatalf("expected constant folding to eliminate the multiply, got:\n%s", text)
	}
	if !strings.Contains(text, "ret 25") {
		t.Fatalf("expected folded return value 25, got:\n%s", text)
	}
}

func TestLowerGlobalArrayInitializer(t *testing.T) {
	text := lower(t, "int a[2][3] = {1, 2, {3, 4}}; int main() { return a[0][0]; }")
	if !strings.Contains(text, "global @a_0 = alloc [[i32, 3], 2], {{1, 2, 3}, {4, 0, 0}}") {
		t.Fatalf("unexpected global initializer, got:\n%s", text)
	}
}

func TestLowerLocalArrayPartialInitializer(t *testing.T) {
	text := lower(t, "int main() { int a[2][2] = {{1}, {2}}; return a[1][0]; }")
	if strings.Count(text, "store") < 2 {
		t.Fatalf("expected at least two element stores, got:\n%s", text)
	}
}

func TestLowerShortCircuitOr(t *testing.T) {
	text := lower(t, "int main() { int x = getint(); return x || getch(); }")
	if !strings.Contains(text, "br ") {
		t.Fatalf("expected a branch for short-circuit ||, got:\n%s", text)
	}
	if !strings.Contains(text, "call @getch()") {
		t.Fatalf("expected the rhs call to still be emitted, got:\n%s", text)
	}
}

func TestLowerIfElseBothBranchesReturn(t *testing.T) {
	text := lower(t, "int main() { int x = getint(); if (x) { return 1; } else { return 2; } return 0; }")
	if strings.Count(text, "ret 1") != 1 || strings.Count(text, "ret 2") != 1 {
		t.Fatalf("expected both branches to return, got:\n%s", text)
	}
}

func TestLowerWhileBreakContinue(t *testing.T) {
	text := lower(t, `
		int main() {
			int i = 0;
			while (i < 10) {
				i = i + 1;
				if (i == 5) { continue; }
				if (i == 8) { break; }
			}
			return i;
		}`)
	if strings.Count(text, "jump") < 3 {
		t.Fatalf("expected entry/continue/break jumps, got:\n%s", text)
	}
}

func TestLowerArrayParamDecaysThroughCall(t *testing.T) {
	text := lower(t, `
		void fill(int a[], int n) {
			a[0] = n;
		}
		int main() {
			int b[4];
			fill(b, 4);
			return b[0];
		}`)
	if !strings.Contains(text, "getptr") {
		t.Fatalf("expected a getptr on the parameter array's first subscript, got:\n%s", text)
	}
	if !strings.Contains(text, "getelemptr") {
		t.Fatalf("expected a getelemptr when materializing the owned array argument, got:\n%s", text)
	}
}

func TestLowerPartiallyIndexedArrayArgDecaysToElementPointer(t *testing.T) {
	text := lower(t, `
		void fillRow(int a[], int n) {
			a[0] = n;
		}
		int main() {
			int a[2][3];
			fillRow(a[1], 3);
			return a[1][0];
		}`)
	if strings.Count(text, "getelemptr") < 2 {
		t.Fatalf("expected both the a[1] index and the decaying getelemptr ..., 0, got:\n%s", text)
	}
}

func TestLowerAssignToConstIsError(t *testing.T) {
	err := lowerErr(t, "int main() { const int x = 1; x = 2; return x; }")
	if err == nil {
		t.Fatalf("expected an error assigning to a const")
	}
}

func TestLowerBreakOutsideLoopIsError(t *testing.T) {
	err := lowerErr(t, "int main() { break; return 0; }")
	if err == nil {
		t.Fatalf("expected an error for break outside a loop")
	}
}

func TestLowerUndefinedCallIsError(t *testing.T) {
	err := lowerErr(t, "int main() { return nope(); }")
	if err == nil {
		t.Fatalf("expected an error calling an undefined function")
	}
}
