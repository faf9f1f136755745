// Package color provides color detection and theming for CLI output.
package color

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Profile detects the current color profile based on environment variables and flags.
// Returns true if color output should be enabled.
//
// Color is disabled when any of:
//   - NO_COLOR env is set (any value, per https://no-color.org)
//   - CLICOLOR=0
//   - TERM=dumb
//   - noColor is true (--no-color flag or global.no_color)
func Profile(noColor bool) bool {
	if noColor {
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	if os.Getenv("CLICOLOR") == "0" {
		return false
	}

	return os.Getenv("TERM") != "dumb"
}

// IsTerminal returns true if f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// Enabled combines Profile with a terminal check on out. CLICOLOR_FORCE set to
// anything but "0" keeps color on for pipes.
func Enabled(noColor bool, out *os.File) bool {
	if !Profile(noColor) {
		return false
	}

	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}

	return IsTerminal(out)
}

// Theme holds lipgloss styles for CLI output.
type Theme struct {
	Success   lipgloss.Style
	Failure   lipgloss.Style
	Warning   lipgloss.Style
	Inactive  lipgloss.Style
	Header    lipgloss.Style
	Name      lipgloss.Style
	Extension lipgloss.Style
	Path      lipgloss.Style
	Muted     lipgloss.Style
}

// NewTheme creates a Theme. When color is false, all styles are empty (no ANSI codes).
func NewTheme(color bool) Theme {
	if !color {
		return Theme{}
	}

	return Theme{
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")), // bright green
		Failure:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")), // bright yellow
		Inactive:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true),
		Header:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Name:      lipgloss.NewStyle().Bold(true),
		Extension: lipgloss.NewStyle().Foreground(lipgloss.Color("13")), // magenta
		Path:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Status renders ok with Success or Failure.
func (t Theme) Status(ok bool, text string) string {
	if ok {
		return t.Success.Render(text)
	}

	return t.Failure.Render(text)
}
