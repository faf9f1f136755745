// Package reporters prints doctor results as a checklist or a table.
package reporters

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/smykla-skalski/launchkit/internal/color"
	"github.com/smykla-skalski/launchkit/internal/doctor"
)

const header = "Checking launchkit health..."

var categoryNames = map[doctor.Category]string{
	doctor.CategoryConfig:   "Configuration",
	doctor.CategoryPlugins:  "Plugins",
	doctor.CategoryLauncher: "Launcher",
	doctor.CategoryStorage:  "Storage",
}

func categoryLabel(c doctor.Category) string {
	if name, ok := categoryNames[c]; ok {
		return name
	}

	if c == "" {
		return "Other"
	}

	return cases.Title(language.English).String(string(c))
}

type categoryGroup struct {
	Category doctor.Category
	Results  []doctor.CheckResult
}

// groupByCategory buckets results, known categories first in display order
// and unknown ones after them alphabetically. Result order is kept inside a
// bucket.
func groupByCategory(results []doctor.CheckResult) []categoryGroup {
	order := doctor.Categories()

	position := func(c doctor.Category) int {
		if i := slices.Index(order, c); i >= 0 {
			return i
		}

		return len(order)
	}

	var groups []categoryGroup

	for _, r := range results {
		i := slices.IndexFunc(groups, func(g categoryGroup) bool { return g.Category == r.Category })
		if i < 0 {
			groups = append(groups, categoryGroup{Category: r.Category})
			i = len(groups) - 1
		}

		groups[i].Results = append(groups[i].Results, r)
	}

	slices.SortStableFunc(groups, func(a, b categoryGroup) int {
		return cmp.Or(cmp.Compare(position(a.Category), position(b.Category)), cmp.Compare(a.Category, b.Category))
	})

	return groups
}

// StatusIcon is a single-column marker for a result.
func StatusIcon(result doctor.CheckResult) string {
	switch {
	case result.IsPassed():
		return "✓"
	case result.IsError():
		return "✗"
	case result.IsWarning():
		return "!"
	case result.IsSkipped():
		return "-"
	case result.Status == doctor.StatusFail:
		return "i"
	default:
		return "?"
	}
}

func styledIcon(result doctor.CheckResult, theme color.Theme) string {
	icon := StatusIcon(result)

	switch {
	case result.IsPassed():
		return theme.Success.Render(icon)
	case result.IsError():
		return theme.Failure.Render(icon)
	case result.Status == doctor.StatusFail:
		return theme.Warning.Render(icon)
	case result.IsSkipped():
		return theme.Muted.Render(icon)
	default:
		return icon
	}
}
