// Package manifest defines sysy.json, the project manifest the build
// and watch subcommands read. Its shape mirrors the teacher's
// ProjectManifest/BuildConfig split: a project-identity envelope around
// a nested build configuration.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/semver"
)

const fileName = "sysy.json"

// BuildConfig is the nested "build" object. Optimize is carried for
// shape-compatibility with the teacher's manifest but is always false:
// this compiler has no optimization passes beyond constant folding,
// which is not gated by any flag.
type BuildConfig struct {
	EntryPoint string   `json:"entry_point"`
	OutputDir  string   `json:"output_dir"`
	Optimize   bool     `json:"optimize"`
	RuntimeLib string   `json:"runtime_lib"`
	BuildFlags []string `json:"build_flags"`
}

// CacheConfig selects internal/buildcache's backing store. DSN scheme
// picks the driver: "sqlite:", "mysql:", "postgres:", "sqlserver:", or
// "sqlite3cgo:" for the cgo-backed driver.
type CacheConfig struct {
	DSN string `json:"dsn"`
}

// Manifest is the parsed sysy.json.
type Manifest struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Sysyc   string      `json:"sysyc"` // required compiler version range, e.g. "^1.0.0"
	Build   BuildConfig `json:"build"`
	Cache   CacheConfig `json:"cache"`

	dir string // directory the manifest was loaded from
}

// Dir is the project root the manifest was loaded from.
func (m *Manifest) Dir() string { return m.dir }

// EntryPointPath resolves Build.EntryPoint relative to the project
// root, defaulting to "main.sy".
func (m *Manifest) EntryPointPath() string {
	entry := m.Build.EntryPoint
	if entry == "" {
		entry = "main.sy"
	}
	return filepath.Join(m.dir, entry)
}

// OutputDirPath resolves Build.OutputDir relative to the project
// root, defaulting to "build".
func (m *Manifest) OutputDirPath() string {
	out := m.Build.OutputDir
	if out == "" {
		out = "build"
	}
	return filepath.Join(m.dir, out)
}

// CacheDSN returns the configured cache DSN, defaulting to a project-
// local sqlite file.
func (m *Manifest) CacheDSN() string {
	if m.Cache.DSN != "" {
		return m.Cache.DSN
	}
	return "sqlite:" + filepath.Join(m.dir, ".sysyc-cache.db")
}

// RequiredSysyc is the semver constraint the manifest was written
// against, e.g. "^1.0.0"; empty means no constraint was declared.
func (m *Manifest) RequiredSysyc() string { return m.Sysyc }

// Load reads and validates sysy.json from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.dir = dir
	if m.Sysyc != "" {
		if err := checkCompatible(m.Sysyc); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// compilerVersion is the running sysyc's own version, compared against
// a manifest's required range.
const compilerVersion = "v1.0.0"

// checkCompatible enforces a caret range "^x.y.z": same major version,
// at least the requested minor/patch.
func checkCompatible(want string) error {
	w := "v" + trimCaret(want)
	if !semver.IsValid(w) {
		return fmt.Errorf("invalid sysyc version constraint %q", want)
	}
	if semver.Major(w) != semver.Major(compilerVersion) {
		return fmt.Errorf("sysy.json requires sysyc %s, running %s", want, compilerVersion)
	}
	if semver.Compare(compilerVersion, w) < 0 {
		return fmt.Errorf("sysy.json requires sysyc >= %s, running %s", want, compilerVersion)
	}
	return nil
}

func trimCaret(v string) string {
	if len(v) > 0 && v[0] == '^' {
		return v[1:]
	}
	return v
}

// Default returns a minimal manifest named name, for "sysyc build" to
// bootstrap a project that has none yet; it writes nothing (see Write).
func Default(name string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: "0.1.0",
		Sysyc:   "^1.0.0",
		Build: BuildConfig{
			EntryPoint: "main.sy",
			OutputDir:  "build",
		},
	}
}

// Write serializes m back to dir/sysy.json.
func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fileName), data, 0o644)
}
