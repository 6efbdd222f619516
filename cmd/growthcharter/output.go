package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#2d6a4f"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffc107"))
	styleStep    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196f3"))
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a948f"))
	styleBarFull = lipgloss.NewStyle().Foreground(lipgloss.Color("#40916c"))
)

func colorize(style lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(styleSuccess, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(styleError, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(styleWarning, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(styleBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(styleStep, "→ "+msg))
}

// scoreBar renders score (0-100) as a bar width cells wide.
func scoreBar(score, width int) string {
	score = max(0, min(100, score))
	filled := score * width / 100
	return colorize(styleBarFull, strings.Repeat("█", filled)) +
		colorize(styleMuted, strings.Repeat("░", width-filled))
}
