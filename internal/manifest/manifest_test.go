package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "demo", "version": "0.1.0"}`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := m.EntryPointPath(), filepath.Join(dir, "main.sy"); got != want {
		t.Errorf("EntryPointPath = %q, want %q", got, want)
	}
	if got, want := m.OutputDirPath(), filepath.Join(dir, "build"); got != want {
		t.Errorf("OutputDirPath = %q, want %q", got, want)
	}
	if got, want := m.CacheDSN(), "sqlite:"+filepath.Join(dir, ".sysyc-cache.db"); got != want {
		t.Errorf("CacheDSN = %q, want %q", got, want)
	}
}

func TestLoadRejectsIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "demo", "version": "0.1.0", "sysyc": "^2.0.0"}`)

	if _, err := Load(dir); err == nil {
		t.Fatal("Load: expected incompatible-version error, got nil")
	}
}

func TestLoadAcceptsCompatibleCaretRange(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "demo", "version": "0.1.0", "sysyc": "^1.0.0"}`)

	if _, err := Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestDefaultThenWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := Default("demo")
	if err := m.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != m.Name || loaded.Version != m.Version {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, m)
	}
}

func TestTrimCaret(t *testing.T) {
	cases := map[string]string{"^1.2.3": "1.2.3", "1.2.3": "1.2.3", "": ""}
	for in, want := range cases {
		if got := trimCaret(in); got != want {
			t.Errorf("trimCaret(%q) = %q, want %q", in, got, want)
		}
	}
}
