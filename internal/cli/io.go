// Package cli implements the command-line interface for itemstorectl.
package cli

import (
	"fmt"
	"io"
)

// IO bundles a command's output streams.
//
// Grounded on calvinalkan-agent-task/internal/cli's IO, trimmed to plain
// stdout/stderr writers — itemstorectl's operations are single local calls
// with no need for the teacher's deferred-warning-flush bookkeeping.
type IO struct {
	Out    io.Writer
	ErrOut io.Writer
}

// NewIO creates an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{Out: out, ErrOut: errOut}
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.Out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.Out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.ErrOut, a...)
}
