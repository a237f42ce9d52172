// Package build implements the "sysyc build" subcommand: read a
// project's sysy.json, compile its entry point through internal/pipeline,
// consult internal/buildcache before re-running the pipeline, and write
// the resulting assembly and Koopa IR to the manifest's output
// directory.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sysyc/internal/buildcache"
	"sysyc/internal/diagnostics"
	"sysyc/internal/manifest"
	"sysyc/internal/pipeline"
)

// Builder drives one project's build: load its manifest, compile its
// entry point, cache the result.
type Builder struct {
	projectRoot string
	manifest    *manifest.Manifest
	cache       *buildcache.Cache
	reporter    *diagnostics.Reporter
}

// NewBuilder loads projectRoot's sysy.json (writing a default one if
// absent) and opens its build cache.
func NewBuilder(projectRoot string) (*Builder, error) {
	m, err := manifest.Load(projectRoot)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading manifest: %w", err)
		}
		m = manifest.Default(filepath.Base(projectRoot))
		if werr := m.Write(projectRoot); werr != nil {
			return nil, fmt.Errorf("writing default manifest: %w", werr)
		}
		m, err = manifest.Load(projectRoot)
		if err != nil {
			return nil, err
		}
	}

	cache, err := buildcache.Open(context.Background(), m.CacheDSN())
	if err != nil {
		return nil, fmt.Errorf("opening build cache: %w", err)
	}

	return &Builder{
		projectRoot: projectRoot,
		manifest:    m,
		cache:       cache,
		reporter:    diagnostics.NewReporter(os.Stderr, os.Stderr.Fd()),
	}, nil
}

// Build compiles the project's entry point to RV32 assembly, using
// the cache keyed by source text and build flags, and writes it under
// the manifest's output directory.
func (b *Builder) Build() error {
	start := time.Now()
	sessionID := uuid.New().String()

	src, err := pipeline.ReadSource(b.manifest.EntryPointPath())
	if err != nil {
		b.reporter.Error(err)
		return err
	}

	key := buildcache.HashKey(src, b.manifest.Build.BuildFlags...)
	art, err := b.cache.GetOrCompile(context.Background(), key, func() (buildcache.Artifact, error) {
		res, err := pipeline.Compile(src, pipeline.ModeRiscv)
		if err != nil {
			return buildcache.Artifact{}, err
		}
		return buildcache.Artifact{IRText: res.IRText, Asm: res.Output}, nil
	})
	if err != nil {
		b.reporter.Error(err)
		return err
	}

	outDir := b.manifest.OutputDirPath()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}
	asmPath := filepath.Join(outDir, b.manifest.Name+".s")
	irPath := filepath.Join(outDir, b.manifest.Name+".koopa")
	if err := pipeline.WriteOutput(asmPath, art.Asm); err != nil {
		b.reporter.Error(err)
		return err
	}
	if err := pipeline.WriteOutput(irPath, art.IRText); err != nil {
		b.reporter.Error(err)
		return err
	}

	b.reporter.Summary(true, 2, len(art.Asm)+len(art.IRText), time.Since(start))
	fmt.Fprintf(os.Stderr, "session %s: wrote %s\n", sessionID, asmPath)
	return nil
}

// Watch runs Build once and returns; it does not watch for further
// file changes. cmd/sysyc's watch subcommand calls internal/watch
// directly rather than through Builder, since the watcher needs the
// manifest and cache but not the one-shot reporting Build does.
func (b *Builder) Watch() error {
	return b.Build()
}

// Clean removes the manifest's output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.manifest.OutputDirPath())
}

// Close releases the build cache handle.
func (b *Builder) Close() error {
	return b.cache.Close()
}

// Manifest exposes the loaded manifest, for callers (internal/watch,
// cmd/sysyc) that need it without re-parsing sysy.json.
func (b *Builder) Manifest() *manifest.Manifest { return b.manifest }

// Cache exposes the opened build cache, for the same reason.
func (b *Builder) Cache() *buildcache.Cache { return b.cache }
