// Package ui renders Toolbox output: coloured status lines, package
// listings, download progress and prompts.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ANSI palette. The 16 base colours follow the user's terminal scheme, so
// status lines look the same as the rest of their shell.
var (
	Green   = lipgloss.Color("2")
	Red     = lipgloss.Color("1")
	Yellow  = lipgloss.Color("3")
	White   = lipgloss.Color("7")
	Cyan    = lipgloss.Color("6")
	Magenta = lipgloss.Color("5")
	Grey    = lipgloss.Color("8")
	Black   = lipgloss.Color("0")
)

// DividerWidth is the width of the line printed between listed packages.
const DividerWidth = 40

// Theme holds the colours that change with the terminal background.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light background theme
func LightTheme() Theme {
	return Theme{Foreground: Black, Muted: Grey}
}

// DarkTheme returns the dark background theme
func DarkTheme() Theme {
	return Theme{Foreground: White, Muted: Grey, IsDark: true}
}

// DetectTheme picks a theme from COLORFGBG, or TOOLBOX_DARK_MODE=1.
// Terminals are assumed dark otherwise.
func DetectTheme() Theme {
	if v := os.Getenv("TOOLBOX_DARK_MODE"); v != "" {
		if v == "0" {
			return LightTheme()
		}
		return DarkTheme()
	}

	// Format is "foreground;background"; 0-6 and 8 are dark backgrounds.
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil {
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return DarkTheme()
			}
			return LightTheme()
		}
	}
	return DarkTheme()
}

// Styles holds every style Toolbox prints with.
type Styles struct {
	Theme Theme

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Notice  lipgloss.Style

	Name    lipgloss.Style
	Divider lipgloss.Style
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Prompt  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Success: lipgloss.NewStyle().Foreground(Green),
		Error:   lipgloss.NewStyle().Foreground(Red),
		Warning: lipgloss.NewStyle().Foreground(Yellow),
		Info:    lipgloss.NewStyle().Foreground(theme.Foreground),
		Notice:  lipgloss.NewStyle().Foreground(Cyan),

		Name:    lipgloss.NewStyle().Foreground(Cyan),
		Divider: lipgloss.NewStyle().Foreground(Magenta),
		Title: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),
		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),
		Body:   lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:  lipgloss.NewStyle().Foreground(theme.Muted),
		Prompt: lipgloss.NewStyle().Foreground(theme.Foreground),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns the magenta line used between packages.
func (s Styles) RenderDivider() string {
	return s.Divider.Render(strings.Repeat("-", DividerWidth))
}
