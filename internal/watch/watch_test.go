package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sysyc/internal/buildcache"
	"sysyc/internal/manifest"
)

func TestRunCompilesOnceThenStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.sy")
	if err := os.WriteFile(entry, []byte("int main(){return 0;}"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := manifest.Default("demo")
	if err := m.Write(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	cache, err := buildcache.Open(context.Background(), loaded.CacheDSN())
	if err != nil {
		t.Fatalf("Open cache: %v", err)
	}
	defer cache.Close()

	w := New(loaded, cache)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("Run: %v", err)
	}

	key := buildcache.HashKey("int main(){return 0;}")
	if _, ok, err := cache.Get(context.Background(), key); err != nil || !ok {
		t.Errorf("expected entry point compiled into cache, ok=%v err=%v", ok, err)
	}
}
