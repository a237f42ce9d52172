package build

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewBuilderWritesDefaultManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.sy"), []byte("int main(){return 0;}"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := NewBuilder(dir)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Close()

	if _, err := os.Stat(filepath.Join(dir, "sysy.json")); err != nil {
		t.Errorf("expected sysy.json to be written, got %v", err)
	}
}

func TestBuildWritesAssemblyAndIR(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.sy"), []byte("int main(){return 7;}"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := NewBuilder(dir)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Close()

	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	outDir := b.Manifest().OutputDirPath()
	if _, err := os.Stat(filepath.Join(outDir, b.Manifest().Name+".s")); err != nil {
		t.Errorf("expected assembly output, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, b.Manifest().Name+".koopa")); err != nil {
		t.Errorf("expected IR output, got %v", err)
	}
}

func TestCleanRemovesOutputDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.sy"), []byte("int main(){return 0;}"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := NewBuilder(dir)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	defer b.Close()
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := b.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(b.Manifest().OutputDirPath()); !os.IsNotExist(err) {
		t.Errorf("expected output dir removed, stat err = %v", err)
	}
}
