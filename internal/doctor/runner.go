package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/prompt"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// ErrChecksFailed is returned by Run when at least one error-level check fails.
var ErrChecksFailed = errors.New("health checks failed")

// Runner runs checks, reports them and applies fixes.
type Runner struct {
	registry *Registry
	reporter Reporter
	prompter prompt.Prompter
	logger   logger.Logger
	out      io.Writer
}

// RunOptions mirror the doctor command flags. AutoFix wins over
// Interactive; no Categories means every check.
type RunOptions struct {
	Verbose     bool
	AutoFix     bool
	Interactive bool
	Categories  []Category
}

// NewRunner creates a new Runner. Suggestions are printed to stdout.
func NewRunner(
	registry *Registry,
	reporter Reporter,
	prompter prompt.Prompter,
	log logger.Logger,
) *Runner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Runner{
		registry: registry,
		reporter: reporter,
		prompter: prompter,
		logger:   log,
		out:      os.Stdout,
	}
}

// SetOutput redirects fix suggestions.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// Run reports the checks of opts.Categories, then deals with failed checks
// that carry a fix: it lists the fixes, or applies them with --fix or after a
// confirmation each with --interactive. Fixed checks run again and the
// result is judged on their new outcome.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	r.logger.Info("doctor run", "verbose", opts.Verbose, "fix", opts.AutoFix, "interactive", opts.Interactive)

	results := r.registry.RunCategories(ctx, opts.Categories)
	r.reporter.Report(results, opts.Verbose)

	fixes := r.pendingFixes(results)

	switch {
	case len(fixes) == 0:
		return r.verdict(results)
	case !opts.AutoFix && !opts.Interactive:
		r.suggestFixes(fixes)

		return r.verdict(results)
	case !opts.AutoFix && r.prompter == nil:
		return errors.New("interactive fixes need a prompter")
	}

	if err := r.applyFixes(ctx, fixes, !opts.AutoFix); err != nil {
		return errors.Wrap(err, "failed to apply fixes")
	}

	rerun := r.rerun(ctx, fixes)
	r.reporter.Report(rerun, opts.Verbose)

	return r.verdict(replaceResults(results, rerun))
}

// pendingFix is a fixer named by failed results. checks lists every result
// naming it, first one first.
type pendingFix struct {
	checks []string
	fixer  Fixer
}

func (f *pendingFix) name() string { return f.checks[0] }

// pendingFixes groups failed results by the fixer they name, in result
// order. Unknown fix IDs are logged and dropped.
func (r *Runner) pendingFixes(results []CheckResult) []*pendingFix {
	var fixes []*pendingFix

	byID := make(map[string]*pendingFix)

	for _, res := range results {
		if res.Status != StatusFail || !res.HasFix() {
			continue
		}

		if f, ok := byID[res.FixID]; ok {
			f.checks = append(f.checks, res.Name)

			continue
		}

		fixer, ok := r.registry.GetFixer(res.FixID)
		if !ok {
			r.logger.Error("fixer not found", "fixID", res.FixID)

			continue
		}

		f := &pendingFix{checks: []string{res.Name}, fixer: fixer}
		byID[res.FixID] = f
		fixes = append(fixes, f)
	}

	return fixes
}

func (r *Runner) applyFixes(ctx context.Context, fixes []*pendingFix, confirm bool) error {
	for _, f := range fixes {
		if confirm {
			ok, err := r.prompter.Confirm(fmt.Sprintf("%s: %s?", f.name(), f.fixer.Description()), true)
			if err != nil {
				return errors.Wrap(err, "failed to get user confirmation")
			}

			if !ok {
				r.logger.Info("fix declined", "check", f.name())

				continue
			}
		}

		r.logger.Info("applying fix", "check", f.name(), "fixer", f.fixer.ID())

		if err := f.fixer.Fix(ctx, confirm); err != nil {
			return errors.Wrapf(err, "failed to fix %q", f.name())
		}
	}

	return nil
}

func (r *Runner) suggestFixes(fixes []*pendingFix) {
	fmt.Fprintln(r.out, "\nSuggested fixes:")

	for _, f := range fixes {
		fmt.Fprintf(r.out, "  - %s: %s\n", f.name(), f.fixer.Description())
	}

	fmt.Fprintln(r.out, "\nRun 'launchkit doctor --fix' to apply fixes automatically")
}

// rerun runs the checkers behind fixes again.
func (r *Runner) rerun(ctx context.Context, fixes []*pendingFix) []CheckResult {
	names := make(map[string]bool, len(fixes))
	for _, f := range fixes {
		for _, check := range f.checks {
			names[check] = true
		}
	}

	checkers := slices.DeleteFunc(r.registry.Checkers(), func(c HealthChecker) bool {
		return !names[c.Name()]
	})

	return Run(ctx, checkers)
}

// replaceResults swaps results for their rerun counterpart by check name.
func replaceResults(results, rerun []CheckResult) []CheckResult {
	byName := make(map[string]CheckResult, len(rerun))
	for _, res := range rerun {
		byName[res.Name] = res
	}

	out := slices.Clone(results)

	for i, res := range out {
		if updated, ok := byName[res.Name]; ok {
			out[i] = updated
		}
	}

	return out
}

func (r *Runner) verdict(results []CheckResult) error {
	tally := Count(results)

	r.logger.Info("doctor finished", "errors", tally.Errors, "warnings", tally.Warnings, "total", len(results))

	if tally.Errors > 0 {
		return errors.Wrapf(ErrChecksFailed, "%d error(s)", tally.Errors)
	}

	return nil
}
