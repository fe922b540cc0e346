// Package ui renders query results and plans for the terminal.
package ui

import "github.com/charmbracelet/lipgloss"

// Palette is the color scheme of the rendered output.
type Palette struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
}

var DefaultPalette = Palette{
	Primary:   lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C3AED"},
	Secondary: lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#06B6D4"},
	Success:   lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#10B981"},
	Error:     lipgloss.AdaptiveColor{Light: "#FF5F56", Dark: "#EF4444"},
	Muted:     lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#94A3B8"},
}

// Styles groups the lipgloss styles used by the renderers.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Null   lipgloss.Style
	Border lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Plan   lipgloss.Style
}

func NewStyles(p Palette) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(p.Primary).
			Bold(true).
			Padding(0, 2),
		Header: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true).
			Padding(0, 1),
		Cell: lipgloss.NewStyle().Padding(0, 1),
		Null: lipgloss.NewStyle().Padding(0, 1).Foreground(p.Muted).Italic(true),
		Border: lipgloss.NewStyle().
			Foreground(p.Muted),
		Status: lipgloss.NewStyle().Foreground(p.Success),
		Error: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		Plan: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),
	}
}
