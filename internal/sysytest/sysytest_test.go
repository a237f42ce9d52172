package sysytest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCase(t *testing.T, dir, name, src, out string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".sy"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".out"), []byte(out), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSplitExpected(t *testing.T) {
	stdout, exit := splitExpected("hello\nworld\nEXIT 3")
	if stdout != "hello\nworld\n" || exit != 3 {
		t.Errorf("got (%q, %d), want (%q, 3)", stdout, exit, "hello\nworld\n")
	}

	stdout, exit = splitExpected("just stdout\n")
	if stdout != "just stdout\n" || exit != 0 {
		t.Errorf("got (%q, %d), want default exit 0", stdout, exit)
	}
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "return_zero", "int main(){return 0;}", "EXIT 0")

	cases, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if len(cases) != 1 || cases[0].Name != "return_zero" || cases[0].WantExitCode != 0 {
		t.Fatalf("unexpected cases: %+v", cases)
	}
}

func TestRunnerReportsCompileFailure(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "broken", "int main() { return x; }", "EXIT 0")
	cases, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}

	r := &Runner{Exec: func(ctx context.Context, asm, stdin string) (string, int, error) {
		t.Fatal("Exec should not run when compilation fails")
		return "", 0, nil
	}}
	results, stats, err := r.Run(context.Background(), cases, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 1 || results[0].Passed {
		t.Fatalf("expected compile failure, got %+v / %+v", results, stats)
	}
}

func TestRunnerPassesOnMatchingOutput(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "ok", "int main(){return 0;}", "EXIT 0")
	cases, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}

	r := &Runner{Exec: func(ctx context.Context, asm, stdin string) (string, int, error) {
		return "", 0, nil
	}}
	results, stats, err := r.Run(context.Background(), cases, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Passed != 1 || !results[0].Passed {
		t.Fatalf("expected pass, got %+v / %+v", results, stats)
	}
}
