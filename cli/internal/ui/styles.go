// Package ui holds the lipgloss styles and helpers for the status lines the
// loop prints on stderr. Lipgloss downgrades to plain text when the output is
// not a terminal, so these are safe in CI logs.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorSuccess = lipgloss.Color("#00D787")
	colorError   = lipgloss.Color("#FF5F87")
	colorWarning = lipgloss.Color("#FFAF00")
	colorInfo    = lipgloss.Color("#5FAFFF")
)

// Text styles
var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(colorInfo)
)

// Noticef writes an informational line to w.
func Noticef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, styleInfo.Render(fmt.Sprintf(format, args...)))
}

// Warnf writes a warning line to w.
func Warnf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, styleWarning.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf writes an error line to w.
func Errorf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, styleError.Render(fmt.Sprintf(format, args...)))
}

// Successf writes a success line to w.
func Successf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, styleSuccess.Render(fmt.Sprintf(format, args...)))
}
