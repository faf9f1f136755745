// Package doctor runs health checks against a launchkit installation and
// applies fixes for the problems it finds.
package doctor

//go:generate mockgen -source=types.go -destination=types_mock.go -package=doctor

import (
	"context"
	"slices"
)

// Severity grades a failed check.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Status is the outcome of a check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// Fix identifiers shared by checkers and fixers.
const (
	FixCreateDirs         = "create_dirs"
	FixCreateGlobalConfig = "create_global_config"
	FixConfigPermissions  = "fix_config_permissions"
	FixPruneCrashDumps    = "prune_crash_dumps"
)

// Category groups checks for filtering with --category and for display.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryPlugins  Category = "plugins"
	CategoryLauncher Category = "launcher"
	CategoryStorage  Category = "storage"
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{CategoryConfig, CategoryPlugins, CategoryLauncher, CategoryStorage}
}

// CheckResult is what a HealthChecker reports.
type CheckResult struct {
	Name string

	// Category is filled in by the registry.
	Category Category

	Severity Severity
	Status   Status
	Message  string
	Details  []string

	// FixID names the Fixer able to repair a failed check.
	FixID string
}

// HealthChecker inspects one aspect of the installation.
type HealthChecker interface {
	Name() string
	Category() Category
	Check(ctx context.Context) CheckResult
}

// Fixer repairs the problem behind every result carrying its ID.
type Fixer interface {
	ID() string

	// Description is printed when fixes are only suggested.
	Description() string

	// Fix applies the repair. Interactive fixers may prompt.
	Fix(ctx context.Context, interactive bool) error
}

// Reporter prints check results.
type Reporter interface {
	Report(results []CheckResult, verbose bool)
}

// NewCheckResult creates a result without details or fix.
func NewCheckResult(name string, severity Severity, status Status, message string) CheckResult {
	return CheckResult{
		Name:     name,
		Severity: severity,
		Status:   status,
		Message:  message,
		Details:  []string{},
	}
}

func Pass(name, message string) CheckResult {
	return NewCheckResult(name, SeverityInfo, StatusPass, message)
}

func FailError(name, message string) CheckResult {
	return NewCheckResult(name, SeverityError, StatusFail, message)
}

func FailWarning(name, message string) CheckResult {
	return NewCheckResult(name, SeverityWarning, StatusFail, message)
}

func Skip(name, message string) CheckResult {
	return NewCheckResult(name, SeverityInfo, StatusSkipped, message)
}

// WithDetails returns r with details appended.
func (r CheckResult) WithDetails(details ...string) CheckResult {
	r.Details = slices.Concat(r.Details, details)

	return r
}

// WithFixID returns r pointing at the fixer fixID.
func (r CheckResult) WithFixID(fixID string) CheckResult {
	r.FixID = fixID

	return r
}

func (r CheckResult) IsError() bool {
	return r.Status == StatusFail && r.Severity == SeverityError
}

func (r CheckResult) IsWarning() bool {
	return r.Status == StatusFail && r.Severity == SeverityWarning
}

func (r CheckResult) IsPassed() bool {
	return r.Status == StatusPass
}

func (r CheckResult) IsSkipped() bool {
	return r.Status == StatusSkipped
}

// HasFix reports whether a fixer is named.
func (r CheckResult) HasFix() bool {
	return r.FixID != ""
}

// Rank orders results for display: errors, warnings, other failures, passes,
// then skipped checks.
func (r CheckResult) Rank() int {
	switch {
	case r.IsError():
		return 0
	case r.IsWarning():
		return 1
	case r.IsPassed():
		return 3 //nolint:mnd // display order
	case r.IsSkipped():
		return 4 //nolint:mnd // display order
	default:
		return 2 //nolint:mnd // display order
	}
}

// Tally counts results by outcome. Failures of info severity count nowhere.
type Tally struct {
	Errors   int
	Warnings int
	Passed   int
	Skipped  int
}

// Count tallies results.
func Count(results []CheckResult) Tally {
	var t Tally

	for _, r := range results {
		switch {
		case r.IsError():
			t.Errors++
		case r.IsWarning():
			t.Warnings++
		case r.IsPassed():
			t.Passed++
		case r.IsSkipped():
			t.Skipped++
		}
	}

	return t
}
