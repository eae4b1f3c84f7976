// Package output renders the end-of-run summary.
package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Label     *color.Color
	Value     *color.Color
	Step      *color.Color
	Success   *color.Color
	Warn      *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Label:     color.New(color.Bold),
		Value:     color.New(color.FgCyan),
		Step:      color.New(color.FgBlue),
		Success:   color.New(color.FgGreen),
		Warn:      color.New(color.FgYellow),
		Error:     color.New(color.FgRed),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range []*color.Color{
		scheme.Title, scheme.Label, scheme.Value, scheme.Step,
		scheme.Success, scheme.Warn, scheme.Error, scheme.Highlight,
	} {
		c.DisableColor()
	}
	return scheme
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}
