// Package diagnostics formats compiler errors and build summaries for
// a terminal, generalizing the teacher's colorized CLI reporting to the
// sysyc driver: a single stderr line for a compile failure, a short
// summary line for build/watch/test runs.
package diagnostics

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"sysyc/internal/sysyerr"
)

const (
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// Reporter writes diagnostic lines to an output stream, colorizing
// only when that stream is an interactive terminal.
type Reporter struct {
	w      io.Writer
	color  bool
}

// NewReporter builds a Reporter over w. fd is the underlying file
// descriptor (os.Stderr.Fd(), typically) used to detect a real
// terminal; color is suppressed when output is redirected to a file
// or pipe.
func NewReporter(w io.Writer, fd uintptr) *Reporter {
	return &Reporter{w: w, color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + colorReset
}

// Error prints a single-line diagnostic for err, using the
// *sysyerr.CompilerError's kind and position when available.
func (r *Reporter) Error(err error) {
	if ce, ok := err.(*sysyerr.CompilerError); ok {
		prefix := string(ce.Kind)
		if ce.Pos.Line > 0 {
			prefix += " " + ce.Pos.String()
		}
		fmt.Fprintln(r.w, r.paint(colorRed, "error: "+prefix+": "+ce.Message))
		return
	}
	fmt.Fprintln(r.w, r.paint(colorRed, "error: "+err.Error()))
}

// Warn prints a single-line warning.
func (r *Reporter) Warn(format string, args ...interface{}) {
	fmt.Fprintln(r.w, r.paint(colorYellow, "warning: "+fmt.Sprintf(format, args...)))
}

// Summary prints a one-line build/test report: ok/fail status, file
// count, byte count, and elapsed time, formatted the way a human reads
// it rather than as raw numbers.
func (r *Reporter) Summary(ok bool, files, bytes int, elapsed time.Duration) {
	status := r.paint(colorGreen, "ok")
	if !ok {
		status = r.paint(colorRed, "FAIL")
	}
	fmt.Fprintf(r.w, "%s  %s in %s (%s written)\n",
		status,
		humanize.Comma(int64(files))+" file(s)",
		elapsed.Round(time.Millisecond),
		humanize.Bytes(uint64(bytes)))
}
