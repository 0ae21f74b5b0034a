package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives the human-readable command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle is used for headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	// StyleDim is used for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	styleValue       = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning     = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCached      = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed    = lipgloss.NewStyle().Foreground(colorGray)
)

// statusIcons maps a status line kind to its icon.
var statusIcons = map[string]string{
	"success": lipgloss.NewStyle().Foreground(colorGreen).Render("✓"),
	"error":   lipgloss.NewStyle().Foreground(colorRed).Render("✗"),
	"warning": lipgloss.NewStyle().Foreground(colorYellow).Render("!"),
	"info":    lipgloss.NewStyle().Foreground(colorGray).Render("›"),
}

func status(kind, msg string) {
	fmt.Fprintln(stdout, statusIcons[kind]+" "+msg)
}

func printSuccess(format string, args ...any) { status("success", fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { status("error", fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { status("info", fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	status("warning", styleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written file path.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+styleValue.Render(path))
}

// printStats prints one line like "5 genres · 12 nodes · cached".
func printStats(parts []string, cached bool) {
	state := styleComputed.Render("fresh")
	if cached {
		state = styleCached.Render("cached")
	}
	items := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		items = append(items, StyleDim.Render(p))
	}
	items = append(items, state)
	fmt.Fprintln(stdout, "  "+strings.Join(items, StyleDim.Render(" · ")))
}
