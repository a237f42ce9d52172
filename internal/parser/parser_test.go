package parser

import (
	"testing"

	"sysyc/internal/ast"
	"sysyc/internal/lexer"
)

func parse(t *testing.T, src string) *ast.CompUnit {
	t.Helper()
	cu, err := Parse(lexer.NewScanner(src).ScanTokens())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return cu
}

func TestParseMinimalMain(t *testing.T) {
	cu := parse(t, "int main() { return 0; }")
	if len(cu.FuncDefs) != 1 {
		t.Fatalf("expected 1 func def, got %d", len(cu.FuncDefs))
	}
	fd := cu.FuncDefs[0]
	if fd.Name != "main" || fd.RetVoid {
		t.Fatalf("unexpected func def: %+v", fd)
	}
	if len(fd.Body.Items) != 1 {
		t.Fatalf("expected 1 body item, got %d", len(fd.Body.Items))
	}
	ret, ok := fd.Body.Items[0].Stmt.(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected ReturnStmt, got %T", fd.Body.Items[0].Stmt)
	}
	num, ok := ret.X.(*ast.NumberExpr)
	if !ok || num.Value != 0 {
		t.Fatalf("expected return 0, got %+v", ret.X)
	}
}

func TestParseGlobalConstAndArray(t *testing.T) {
	cu := parse(t, `
		const int N = 3;
		int a[2][3] = {{1,2,3},{4,5,6}};
		int main() { return a[1][2]; }
	`)
	if len(cu.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(cu.Decls))
	}
	if !cu.Decls[0].IsConst || cu.Decls[0].Defs[0].Name != "N" {
		t.Fatalf("unexpected first decl: %+v", cu.Decls[0])
	}
	arr := cu.Decls[1].Defs[0]
	if len(arr.Dims) != 2 || !arr.Init.IsAggregate() {
		t.Fatalf("unexpected array def: %+v", arr)
	}
}

func TestParseFunctionWithArrayParam(t *testing.T) {
	cu := parse(t, `
		int f(int a[], int n) { return a[n]; }
	`)
	fd := cu.FuncDefs[0]
	if len(fd.Params) != 2 || !fd.Params[0].IsArray || fd.Params[1].IsArray {
		t.Fatalf("unexpected params: %+v", fd.Params)
	}
}

func TestParseIfElseDanglingElse(t *testing.T) {
	cu := parse(t, `
		int main() {
			int x;
			if (1)
				if (0) x = 1; else x = 2;
			return x;
		}
	`)
	fd := cu.FuncDefs[0]
	outer := fd.Body.Items[1].Stmt.(*ast.IfStmt)
	inner, ok := outer.Then.(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected nested IfStmt, got %T", outer.Then)
	}
	if inner.Else == nil {
		t.Fatalf("dangling else should bind to the nearest if")
	}
	if outer.Else != nil {
		t.Fatalf("outer if should have no else clause")
	}
}

func TestParseWhileBreakContinue(t *testing.T) {
	cu := parse(t, `
		int main() {
			int i = 0; int s = 0;
			while (i < 10) {
				i = i + 1;
				if (i == 5) continue;
				if (i == 8) break;
				s = s + i;
			}
			return s;
		}
	`)
	fd := cu.FuncDefs[0]
	ws, ok := fd.Body.Items[2].Stmt.(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected WhileStmt, got %T", fd.Body.Items[2].Stmt)
	}
	body, ok := ws.Body.(*ast.BlockStmt)
	if !ok || len(body.Body.Items) != 4 {
		t.Fatalf("unexpected while body: %+v", ws.Body)
	}
}

func TestParseShortCircuitOperators(t *testing.T) {
	cu := parse(t, `int main() { return 1 || 0 && 1; }`)
	fd := cu.FuncDefs[0]
	ret := fd.Body.Items[0].Stmt.(*ast.ReturnStmt)
	or, ok := ret.X.(*ast.LogicalExpr)
	if !ok || or.And {
		t.Fatalf("expected top-level ||, got %+v", ret.X)
	}
	and, ok := or.R.(*ast.LogicalExpr)
	if !ok || !and.And {
		t.Fatalf("expected && to bind tighter than ||, got %+v", or.R)
	}
}

func TestParseRelBindsTighterThanEq(t *testing.T) {
	cu := parse(t, `int main() { return 3 == 2 < 1; }`)
	fd := cu.FuncDefs[0]
	ret := fd.Body.Items[0].Stmt.(*ast.ReturnStmt)
	eq, ok := ret.X.(*ast.BinaryExpr)
	if !ok || eq.Op != ast.OpEq {
		t.Fatalf("expected top-level ==, got %+v", ret.X)
	}
	if _, ok := eq.L.(*ast.NumberExpr); !ok {
		t.Fatalf("expected literal 3 on the left of ==, got %+v", eq.L)
	}
	lt, ok := eq.R.(*ast.BinaryExpr)
	if !ok || lt.Op != ast.OpLt {
		t.Fatalf("expected 2 < 1 nested on the right of ==, got %+v", eq.R)
	}
}

func TestParseCallExpr(t *testing.T) {
	cu := parse(t, `int main() { return f(1, 2, g(3)); }`)
	fd := cu.FuncDefs[0]
	ret := fd.Body.Items[0].Stmt.(*ast.ReturnStmt)
	call, ok := ret.X.(*ast.CallExpr)
	if !ok || call.Callee != "f" || len(call.Args) != 3 {
		t.Fatalf("unexpected call: %+v", ret.X)
	}
}

func TestParseOctalAndHexLiterals(t *testing.T) {
	cu := parse(t, `int main() { return 010 + 0x1A; }`)
	fd := cu.FuncDefs[0]
	ret := fd.Body.Items[0].Stmt.(*ast.ReturnStmt)
	bin := ret.X.(*ast.BinaryExpr)
	l := bin.L.(*ast.NumberExpr)
	r := bin.R.(*ast.NumberExpr)
	if l.Value != 8 || r.Value != 26 {
		t.Fatalf("expected 8 and 26, got %d and %d", l.Value, r.Value)
	}
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	_, err := Parse(lexer.NewScanner("int main() { return 0 }").ScanTokens())
	if err == nil {
		t.Fatal("expected parse error for missing ';'")
	}
}
