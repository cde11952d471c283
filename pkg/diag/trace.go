// Package diag prints sequencer traces for checking a build against
// the expected routine order.
package diag

import (
	"bufio"
	"fmt"
	"io"

	"github.com/robotalks/lockstep/pkg/sequencer"
)

// DefaultSteps is the trace length when none is given.
const DefaultSteps = 200

// Trace advances seq n times and writes the routine id after each
// advance, one per line.
func Trace(seq *sequencer.Sequencer, n int, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		seq.Advance()
		if _, err := fmt.Fprintln(bw, seq.Routine()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// TraceVerbose is Trace with cursor, routine and the traveling down tag
// in columns.
func TraceVerbose(seq *sequencer.Sequencer, n int, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-5s %-6s %-7s %s\n", "step", "cursor", "routine", "down")
	for i := 1; i <= n; i++ {
		seq.Advance()
		if _, err := fmt.Fprintf(bw, "%-5d %-6d %-7d %v\n", i, seq.Cursor(), seq.Routine(), seq.TravelingDown()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
