// Package sysytest runs a corpus of SysY programs end to end through
// internal/pipeline, checking each case's expected stdout/exit code
// against a runtime execution of its compiled output, the way the
// teacher's own test runner drives user scripts.
package sysytest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kr/pretty"
	"golang.org/x/sync/errgroup"

	"sysyc/internal/pipeline"
)

// Case is one corpus entry: a .sy source file plus its expected
// stdin/stdout/exit-code, read from sibling .in/.out files the way
// the original judge's test cases are laid out.
type Case struct {
	Name         string
	SourcePath   string
	Input        string
	WantStdout   string
	WantExitCode int
}

// Result is one case's outcome.
type Result struct {
	Case     Case
	Passed   bool
	Detail   string
	Duration time.Duration
}

// Stats summarizes a full corpus run.
type Stats struct {
	Total, Passed, Failed int
	Elapsed                time.Duration
}

// LoadCorpus discovers cases under dir: every "*.sy" file, paired with
// an optional sibling ".in" (stdin) and required ".out" (expected
// stdout, whose last line may be "EXIT n" naming a non-zero exit code
// per the judge convention).
func LoadCorpus(dir string) ([]Case, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.sy"))
	if err != nil {
		return nil, err
	}
	cases := make([]Case, 0, len(entries))
	for _, src := range entries {
		base := strings.TrimSuffix(src, ".sy")
		name := filepath.Base(base)

		outPath := base + ".out"
		wantBytes, err := os.ReadFile(outPath)
		if err != nil {
			return nil, fmt.Errorf("case %s: missing expected output %s: %w", name, outPath, err)
		}
		stdout, exitCode := splitExpected(string(wantBytes))

		var input string
		if data, err := os.ReadFile(base + ".in"); err == nil {
			input = string(data)
		}

		cases = append(cases, Case{
			Name:         name,
			SourcePath:   src,
			Input:        input,
			WantStdout:   stdout,
			WantExitCode: exitCode,
		})
	}
	return cases, nil
}

// splitExpected pulls a trailing "EXIT n" line off of want, per the
// judge's convention that a case's declared exit code rides along
// with its expected stdout rather than in a separate file.
func splitExpected(want string) (stdout string, exitCode int) {
	lines := strings.Split(strings.TrimRight(want, "\n"), "\n")
	if n := len(lines); n > 0 && strings.HasPrefix(lines[n-1], "EXIT ") {
		if code, err := strconv.Atoi(strings.TrimPrefix(lines[n-1], "EXIT ")); err == nil {
			if n == 1 {
				return "", code
			}
			return strings.Join(lines[:n-1], "\n") + "\n", code
		}
	}
	return want, 0
}

// Runner compiles and executes cases, comparing against their expected
// output. Exec is the hook that actually runs a case's RV32 assembly;
// tests supply a fake, and `sysyc test` supplies one that invokes an
// external RV32 runner.
type Runner struct {
	Exec func(ctx context.Context, asm, stdin string) (stdout string, exitCode int, err error)
}

// Run executes cases with up to concurrency workers in flight at
// once, bounded the way a CI corpus run must be to avoid starving the
// machine, and returns every Result plus aggregate Stats.
func (r *Runner) Run(ctx context.Context, cases []Case, concurrency int) ([]Result, Stats, error) {
	start := time.Now()
	results := make([]Result, len(cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			results[i] = r.runOne(ctx, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Total: len(results), Elapsed: time.Since(start)}
	for _, res := range results {
		if res.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return results, stats, nil
}

func (r *Runner) runOne(ctx context.Context, c Case) Result {
	start := time.Now()
	src, err := pipeline.ReadSource(c.SourcePath)
	if err != nil {
		return Result{Case: c, Detail: fmt.Sprintf("reading source: %v", err), Duration: time.Since(start)}
	}
	res, err := pipeline.Compile(src, pipeline.ModeRiscv)
	if err != nil {
		return Result{Case: c, Detail: fmt.Sprintf("compile: %v", err), Duration: time.Since(start)}
	}
	stdout, exitCode, err := r.Exec(ctx, res.Output, c.Input)
	if err != nil {
		return Result{Case: c, Detail: fmt.Sprintf("exec: %v", err), Duration: time.Since(start)}
	}
	if stdout != c.WantStdout || exitCode != c.WantExitCode {
		return Result{
			Case: c,
			Detail: fmt.Sprintf("mismatch:\n%s",
				diffSummary(c.WantStdout, stdout, c.WantExitCode, exitCode)),
			Duration: time.Since(start),
		}
	}
	return Result{Case: c, Passed: true, Duration: time.Since(start)}
}

// diffSummary renders a structural diff of the want/got pair using
// kr/pretty, rather than a bare string comparison, so a mismatch in a
// long stdout capture points at exactly which line diverged.
func diffSummary(wantOut, gotOut string, wantExit, gotExit int) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "exit: want %d got %d\n", wantExit, gotExit)
	for _, d := range pretty.Diff(strings.Split(wantOut, "\n"), strings.Split(gotOut, "\n")) {
		fmt.Fprintln(&b, d)
	}
	return b.String()
}
