// cmd/sysyc/commands/compile.go
package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/kr/pretty"

	"sysyc/internal/diagnostics"
	"sysyc/internal/pipeline"
)

// CompileCommand implements "sysyc compile MODE INPUT -o OUTPUT [-v]".
func CompileCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sysyc compile MODE INPUT -o OUTPUT")
	}
	mode := pipeline.Mode(args[0])
	rest := args[1:]

	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	out := fs.String("o", "", "output path")
	verbose := fs.Bool("v", false, "print the AST and Koopa IR to stderr")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: sysyc compile MODE INPUT -o OUTPUT")
	}
	input := fs.Arg(0)
	// Flags may also follow INPUT ("MODE INPUT -o OUTPUT").
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("missing required -o OUTPUT")
	}

	reporter := diagnostics.NewReporter(os.Stderr, os.Stderr.Fd())

	src, err := pipeline.ReadSource(input)
	if err != nil {
		reporter.Error(err)
		return err
	}
	res, err := pipeline.Compile(src, mode)
	if err != nil {
		reporter.Error(err)
		return err
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "--- AST ---\n%# v\n", pretty.Formatter(res.AST))
		fmt.Fprintf(os.Stderr, "--- Koopa IR ---\n%s\n", res.IRText)
	}

	return pipeline.WriteOutput(*out, res.Output)
}
