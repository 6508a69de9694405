// Package style renders CLI output with Lipgloss.
package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPass = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorDim  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorInfo = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✖"
)

var (
	Success = newSuccess()
	Warning = newWarning()
	Error   = newError()
	Info    = newInfo()
	Dim     = newDim()
	Bold    = lipgloss.NewStyle().Bold(true)
)

func newSuccess() lipgloss.Style { return lipgloss.NewStyle().Foreground(colorPass).Bold(true) }
func newWarning() lipgloss.Style { return lipgloss.NewStyle().Foreground(colorWarn).Bold(true) }
func newError() lipgloss.Style   { return lipgloss.NewStyle().Foreground(colorFail).Bold(true) }
func newInfo() lipgloss.Style    { return lipgloss.NewStyle().Foreground(colorInfo) }
func newDim() lipgloss.Style     { return lipgloss.NewStyle().Foreground(colorDim) }

// SetColorMode applies the --color flag: "always", "never", or "auto".
func SetColorMode(mode string) error {
	switch mode {
	case "auto":
	case "never":
		_ = os.Setenv("NO_COLOR", "1")
		plain := lipgloss.NewStyle()
		Success, Warning, Error, Info, Dim, Bold = plain, plain, plain, plain, plain, plain
	case "always":
		_ = os.Unsetenv("NO_COLOR")
		_ = os.Setenv("CLICOLOR_FORCE", "1")
		Success, Warning, Error, Info, Dim = newSuccess(), newWarning(), newError(), newInfo(), newDim()
		Bold = lipgloss.NewStyle().Bold(true)
	default:
		return fmt.Errorf("invalid --color value %q: must be always, auto, or never", mode)
	}
	return nil
}

// Probability renders p as a percentage, colored by how confident it is.
func Probability(p float64) string {
	s := fmt.Sprintf("%.4f (%.1f%%)", p, p*100)
	switch {
	case p >= 0.8 || p <= 0.2:
		return Success.Render(s)
	case p >= 0.6 || p <= 0.4:
		return Info.Render(s)
	default:
		return Warning.Render(s)
	}
}

// ModelState renders a TF Serving version state.
func ModelState(state string) string {
	switch state {
	case "AVAILABLE":
		return Success.Render(state)
	case "START", "LOADING":
		return Warning.Render(state)
	default:
		return Error.Render(state)
	}
}
