// cmd/sysyc/commands/test.go
package commands

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"sysyc/internal/sysytest"
)

// TestCommand handles "sysyc test [dir]": runs every *.sy/*.out case
// under dir/tests through the pipeline and an external RV32 runner.
//
// The runner command is read from $SYSYC_RV32_RUNNER (a program that
// reads on its stdin the assembly text, a NUL byte, and then the stdin
// for the program under test, printing the program's stdout and
// exiting with its exit code); there is no RV32 emulator in this
// module's dependency set to embed one directly.
func TestCommand(args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	concurrency := fs.Int("j", 4, "number of cases to run concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	cases, err := sysytest.LoadCorpus(filepath.Join(root, "tests"))
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if len(cases) == 0 {
		fmt.Println("no test cases found under", filepath.Join(root, "tests"))
		return nil
	}

	runner := &sysytest.Runner{Exec: execRunner}
	results, stats, err := runner.Run(context.Background(), cases, *concurrency)
	if err != nil {
		return err
	}

	for _, r := range results {
		if !r.Passed {
			fmt.Printf("FAIL %s (%s)\n%s\n", r.Case.Name, r.Duration, r.Detail)
			continue
		}
		fmt.Printf("ok   %s (%s)\n", r.Case.Name, r.Duration)
	}
	fmt.Printf("\n%d/%d passed in %s\n", stats.Passed, stats.Total, stats.Elapsed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d case(s) failed", stats.Failed)
	}
	return nil
}

func execRunner(ctx context.Context, asm, stdin string) (stdout string, exitCode int, err error) {
	runner := os.Getenv("SYSYC_RV32_RUNNER")
	if runner == "" {
		return "", 0, fmt.Errorf("SYSYC_RV32_RUNNER is not set; cannot execute compiled output")
	}
	cmd := exec.CommandContext(ctx, runner)
	cmd.Stdin = bytes.NewBufferString(asm + "\x00" + stdin)
	var out bytes.Buffer
	cmd.Stdout = &out
	runErr := cmd.Run()
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return out.String(), exitErr.ExitCode(), nil
	}
	if runErr != nil {
		return "", 0, runErr
	}
	return out.String(), 0, nil
}
