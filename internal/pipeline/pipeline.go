// Package pipeline wires the compiler's stages together: read source,
// lex+parse to an AST, lower to Koopa IR text, optionally re-parse and
// select RV32 assembly, write the result. The parse, lower, re-parse
// and select stages panic a *sysyerr.CompilerError on failure and each
// stage's entry point recovers it into a returned error; ReadSource
// and WriteOutput return theirs directly. Compile passes the first
// error on.
package pipeline

import (
	"os"

	"sysyc/internal/ast"
	"sysyc/internal/backend"
	"sysyc/internal/irgen"
	"sysyc/internal/koopa"
	"sysyc/internal/lexer"
	"sysyc/internal/parser"
	"sysyc/internal/sysyerr"
)

// Mode selects the pipeline's terminal artifact, matching spec.md §6's
// MODE flag. Perf behaves identically to Riscv: there is no separate
// optimization pass to gate on it.
type Mode string

const (
	ModeKoopa Mode = "-koopa"
	ModeRiscv Mode = "-riscv"
	ModePerf  Mode = "-perf"
)

func (m Mode) valid() bool {
	return m == ModeKoopa || m == ModeRiscv || m == ModePerf
}

// Result carries every intermediate artifact a stage produced, so
// callers that want verbose diagnostics (cmd/sysyc's -v flag) don't
// need to re-run stages to get at the AST or the IR text.
type Result struct {
	AST      *ast.CompUnit
	IRText   string
	Program  *koopa.Program
	Output   string
}

// ReadSource reads path, tagging any failure ReadFileError.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", sysyerr.Wrap(sysyerr.ReadFileError, err, "reading %s", path)
	}
	return string(data), nil
}

// WriteOutput writes text to path, tagging any failure WriteFileError.
func WriteOutput(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return sysyerr.Wrap(sysyerr.WriteFileError, err, "writing %s", path)
	}
	return nil
}

// Compile runs src through the pipeline for the given mode. For
// ModeKoopa, Result.Output is the lowered IR text; for Riscv/Perf it
// is the selected RV32 assembly, after an internal re-parse of that
// same IR text into the in-memory koopa.Program the backend consumes.
func Compile(src string, mode Mode) (res *Result, err error) {
	if !mode.valid() {
		return nil, sysyerr.New(sysyerr.Ast2IrError, "unknown mode %q", mode)
	}

	cu, err := lexAndParse(src)
	if err != nil {
		return nil, err
	}
	irText, err := lower(cu)
	if err != nil {
		return nil, err
	}
	res = &Result{AST: cu, IRText: irText, Output: irText}
	if mode == ModeKoopa {
		return res, nil
	}

	prog, err := koopa.Parse(irText)
	if err != nil {
		return nil, err
	}
	asm, err := backend.Emit(prog)
	if err != nil {
		return nil, err
	}
	res.Program = prog
	res.Output = asm
	return res, nil
}

func lexAndParse(src string) (cu *ast.CompUnit, err error) {
	defer sysyerr.Recover(sysyerr.Sysy2AstError, &err)
	tokens := lexer.NewScanner(src).ScanTokens()
	cu, err = parser.Parse(tokens)
	return cu, err
}

func lower(cu *ast.CompUnit) (string, error) {
	return irgen.Lower(cu)
}
