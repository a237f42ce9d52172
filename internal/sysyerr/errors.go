// Package sysyerr defines the compiler's single error taxonomy.
//
// Every stage of the pipeline (read, parse, lower, re-parse, select,
// write) reports failure as a *CompilerError carrying the stage's
// Kind. The parse, lower, re-parse and select stages panic it and
// recover it with Recover at their own exported entry point; read and
// write return it directly.
package sysyerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which pipeline stage produced the error.
type Kind string

const (
	ReadFileError       Kind = "ReadFileError"
	Sysy2AstError       Kind = "Sysy2AstError"
	Ast2IrError         Kind = "Ast2IrError"
	IrText2ProgramError Kind = "IrText2ProgramError"
	Ir2RiscvError       Kind = "Ir2RiscvError"
	WriteFileError      Kind = "WriteFileError"
)

// Pos is a location in the original SysY source.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// CompilerError is the single error type the pipeline produces.
type CompilerError struct {
	Kind    Kind
	Message string
	Pos     Pos
	cause   error
}

func (e *CompilerError) Error() string {
	if e.Pos.Line != 0 {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As see the underlying failure, if any,
// that was wrapped by this one.
func (e *CompilerError) Unwrap() error { return e.cause }

// New builds a CompilerError with no source position.
func New(kind Kind, format string, args ...interface{}) *CompilerError {
	return &CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At builds a CompilerError anchored to a source position.
func At(kind Kind, pos Pos, format string, args ...interface{}) *CompilerError {
	return &CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Wrap attaches an underlying cause, preserving it via pkg/errors so
// %+v formatting still shows a stack trace from the wrap site.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *CompilerError {
	return &CompilerError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.WithStack(cause),
	}
}

// Panic aborts the current pipeline stage immediately rather than
// threading an error return through every AST visitor method.
func Panic(kind Kind, format string, args ...interface{}) {
	panic(New(kind, format, args...))
}

// PanicAt is Panic with a source position attached.
func PanicAt(kind Kind, pos Pos, format string, args ...interface{}) {
	panic(At(kind, pos, format, args...))
}

// Recover turns a panicked *CompilerError back into a returned error.
// Any other panic value is re-raised: it indicates a real bug, not a
// taxonomized compiler failure, and should not be silently swallowed.
func Recover(kind Kind, errp *error) {
	if r := recover(); r != nil {
		if ce, ok := r.(*CompilerError); ok {
			*errp = ce
			return
		}
		panic(r)
	}
}
