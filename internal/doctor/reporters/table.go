package reporters

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/smykla-skalski/launchkit/internal/color"
	"github.com/smykla-skalski/launchkit/internal/doctor"
)

// Layout limits, in terminal columns.
const (
	minTableWidth   = 40
	minNameWidth    = len("Check")
	minMessageWidth = 20
	iconWidth       = 1

	// cellOverhead is the left border plus one space of padding per side.
	cellOverhead = 3
	cellPadding  = 2

	// messageShare is the percentage of free width the message column gets
	// when details are shown.
	messageShare = 60
)

var borderRunes = []string{"╭", "╮", "╰", "╯", "│", "─", "┬", "┴", "├", "┤", "┼"}

// tableLayout holds the content width of every column, icon first.
type tableLayout []int

// layoutFor sizes the columns to fill width. It returns nil when the
// terminal is unknown or too narrow, leaving sizing to tablewriter.
func layoutFor(width int, results []doctor.CheckResult, verbose bool) tableLayout {
	if width < minTableWidth {
		return nil
	}

	columns := 3
	if verbose {
		columns++
	}

	free := width - columns*cellOverhead - 1 - iconWidth
	if free < minMessageWidth+minNameWidth {
		return nil
	}

	name := minNameWidth
	for _, r := range results {
		name = max(name, runewidth.StringWidth(r.Name))
	}

	name = min(name, free-minMessageWidth)
	rest := free - name

	if !verbose {
		return tableLayout{iconWidth, name, rest}
	}

	message := rest * messageShare / 100

	return tableLayout{iconWidth, name, message, rest - message}
}

// cellWidths converts content widths to the padded widths tablewriter wraps at.
func (l tableLayout) cellWidths() tw.Mapper[int, int] {
	m := make(tw.Mapper[int, int], len(l))
	for col, w := range l {
		m[col] = w + cellPadding
	}

	return m
}

// pad right-pads each cell of row to its column width.
func (l tableLayout) pad(row []string) []string {
	if l == nil {
		return row
	}

	for i := range min(len(row), len(l)) {
		row[i] = padToWidth(row[i], l[i])
	}

	return row
}

// padToWidth right-pads s to display width w, ignoring ANSI sequences.
func padToWidth(s string, w int) string {
	if gap := w - runewidth.StringWidth(ansi.Strip(s)); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}

	return s
}

// RenderTable renders results grouped by category, worst first inside each
// category. A width of 0 lets tablewriter size the columns.
func RenderTable(results []doctor.CheckResult, verbose bool, theme color.Theme, width int) string {
	if len(results) == 0 {
		return ""
	}

	headers := []string{"", "Check", "Message"}
	if verbose {
		headers = append(headers, "Details")
	}

	layout := layoutFor(width, results, verbose)
	home, _ := os.UserHomeDir()

	var buf bytes.Buffer

	opts := []tablewriter.Option{
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols:  tw.NewSymbols(tw.StyleRounded),
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
		tablewriter.WithConfig(tablewriter.NewConfigBuilder().
			WithTrimSpace(tw.Off).
			Row().Merging().WithMode(tw.MergeHorizontal).Build().
			Formatting().WithAutoWrap(tw.WrapNormal).Build().
			Build().Build()),
	}

	if layout != nil {
		opts = append(opts, tablewriter.WithColumnWidths(layout.cellWidths()))
	}

	t := tablewriter.NewTable(&buf, opts...)
	t.Header(headers)

	for _, g := range groupByCategory(results) {
		// The label repeats across the text columns so MergeHorizontal
		// spans it over them.
		label := theme.Header.Render(categoryLabel(g.Category))
		_ = t.Append(append([]string{""}, slices.Repeat([]string{label}, len(headers)-1)...))

		sorted := slices.Clone(g.Results)
		slices.SortStableFunc(sorted, func(a, b doctor.CheckResult) int { return a.Rank() - b.Rank() })

		for _, r := range sorted {
			row := []string{styledIcon(r, theme), theme.Name.Render(r.Name), tildeHome(r.Message, home)}
			if verbose {
				row = append(row, tildeHome(strings.Join(r.Details, "; "), home))
			}

			_ = t.Append(layout.pad(row))
		}
	}

	_ = t.Render()

	out := strings.TrimRight(buf.String(), "\n")

	for _, ch := range borderRunes {
		out = strings.ReplaceAll(out, ch, theme.Muted.Render(ch))
	}

	return out
}

func tildeHome(s, home string) string {
	if home == "" {
		return s
	}

	return strings.ReplaceAll(s, home, "~")
}

// RenderSummary returns the summary line with non-zero counts highlighted.
func RenderSummary(results []doctor.CheckResult, theme color.Theme) string {
	tally := doctor.Count(results)

	highlight := func(n int, text string, style lipgloss.Style) string {
		if n == 0 {
			return text
		}

		return style.Render(text)
	}

	parts := []string{
		highlight(tally.Errors, fmt.Sprintf("%d error(s)", tally.Errors), theme.Failure),
		highlight(tally.Warnings, fmt.Sprintf("%d warning(s)", tally.Warnings), theme.Warning),
		theme.Success.Render(fmt.Sprintf("%d passed", tally.Passed)),
	}

	if tally.Skipped > 0 {
		parts = append(parts, theme.Muted.Render(fmt.Sprintf("%d skipped", tally.Skipped)))
	}

	return "Summary: " + strings.Join(parts, ", ")
}

// termWidth returns the width of whichever of stdout and stderr is a
// terminal, or 0.
func termWidth() int {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 { //nolint:gosec // fd fits int
			return w
		}
	}

	return 0
}
