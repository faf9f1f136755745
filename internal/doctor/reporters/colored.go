package reporters

import (
	"fmt"
	"io"

	"github.com/smykla-skalski/launchkit/internal/color"
	"github.com/smykla-skalski/launchkit/internal/doctor"
)

// ColoredReporter outputs a static table. With an empty theme the table is
// plain text, which is what piped output gets.
type ColoredReporter struct {
	out   io.Writer
	theme color.Theme
	width func() int
}

// NewColoredReporter creates a ColoredReporter with the given theme.
func NewColoredReporter(out io.Writer, theme color.Theme) *ColoredReporter {
	return &ColoredReporter{out: out, theme: theme, width: termWidth}
}

// Report renders results as a table followed by a summary line.
func (r *ColoredReporter) Report(results []doctor.CheckResult, verbose bool) {
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out)

	tbl := RenderTable(results, verbose, r.theme, r.width())
	if tbl != "" {
		fmt.Fprintln(r.out, tbl)
		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out, RenderSummary(results, r.theme))
}
