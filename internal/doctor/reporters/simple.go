package reporters

import (
	"fmt"
	"io"

	"github.com/smykla-skalski/launchkit/internal/doctor"
)

// SimpleReporter prints a plain checklist grouped by category.
type SimpleReporter struct {
	out io.Writer
}

func NewSimpleReporter(out io.Writer) *SimpleReporter {
	return &SimpleReporter{out: out}
}

// Report implements doctor.Reporter.
func (r *SimpleReporter) Report(results []doctor.CheckResult, verbose bool) {
	fmt.Fprintf(r.out, "%s\n\n", header)

	for _, g := range groupByCategory(results) {
		fmt.Fprintf(r.out, "%s:\n", categoryLabel(g.Category))

		for _, result := range g.Results {
			r.line(result, verbose)
		}

		fmt.Fprintln(r.out)
	}

	tally := doctor.Count(results)

	fmt.Fprintf(r.out, "Summary: %d error(s), %d warning(s), %d passed\n",
		tally.Errors, tally.Warnings, tally.Passed)
}

func (r *SimpleReporter) line(result doctor.CheckResult, verbose bool) {
	text := StatusIcon(result) + " " + result.Name
	if result.Message != "" {
		text += " - " + result.Message
	}

	fmt.Fprintf(r.out, "  %s\n", text)

	if verbose {
		for _, detail := range result.Details {
			fmt.Fprintf(r.out, "     %s\n", detail)
		}
	}

	if result.HasFix() && result.Status == doctor.StatusFail {
		fmt.Fprintln(r.out, "     → Run: launchkit doctor --fix")
	}
}
