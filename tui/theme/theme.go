// Package theme holds the lipgloss styles shared by hermes' terminal output.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/hermes/pkg/models"
)

const defaultThemeName = "kanagawa"

// Colors encapsulates the palette used by a theme.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Orange    lipgloss.TerminalColor
	Blue      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	LightText lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Selected  lipgloss.TerminalColor
}

// Theme holds the pre-configured styles.
type Theme struct {
	Colors Colors

	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Italic  lipgloss.Style
	Accent  lipgloss.Style

	SelectedRow lipgloss.Style
}

// DefaultTheme is chosen from HERMES_THEME at startup.
var DefaultTheme = NewThemeWithName(os.Getenv("HERMES_THEME"))

// NewThemeWithName constructs a theme from a palette name. Unknown names
// fall back to the default palette.
func NewThemeWithName(name string) *Theme {
	var c Colors
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "terminal":
		c = Colors{
			Green:     lipgloss.Color("2"),
			Yellow:    lipgloss.Color("3"),
			Red:       lipgloss.Color("1"),
			Orange:    lipgloss.Color("208"),
			Blue:      lipgloss.Color("4"),
			Violet:    lipgloss.Color("5"),
			LightText: lipgloss.Color("7"),
			MutedText: lipgloss.Color("8"),
			Selected:  lipgloss.Color("8"),
		}
	default:
		c = Colors{
			Green:     lipgloss.AdaptiveColor{Light: "#4E7C5A", Dark: "#98BB6C"},
			Yellow:    lipgloss.AdaptiveColor{Light: "#A68A64", Dark: "#FF9E3B"},
			Red:       lipgloss.AdaptiveColor{Light: "#C34043", Dark: "#FF5D62"},
			Orange:    lipgloss.AdaptiveColor{Light: "#CC6B4E", Dark: "#FFA066"},
			Blue:      lipgloss.AdaptiveColor{Light: "#4F7CAC", Dark: "#7FB4CA"},
			Violet:    lipgloss.AdaptiveColor{Light: "#674D7A", Dark: "#957FB8"},
			LightText: lipgloss.AdaptiveColor{Light: "#2B2F42", Dark: "#DCD7BA"},
			MutedText: lipgloss.AdaptiveColor{Light: "#6C7086", Dark: "#727169"},
			Selected:  lipgloss.AdaptiveColor{Light: "#E2E6F3", Dark: "#223249"},
		}
	}

	return &Theme{
		Colors:      c,
		Header:      lipgloss.NewStyle().Bold(true).Foreground(c.Orange),
		Success:     lipgloss.NewStyle().Bold(true).Foreground(c.Green),
		Error:       lipgloss.NewStyle().Bold(true).Foreground(c.Red),
		Warning:     lipgloss.NewStyle().Bold(true).Foreground(c.Yellow),
		Info:        lipgloss.NewStyle().Foreground(c.Blue),
		Muted:       lipgloss.NewStyle().Foreground(c.MutedText),
		Italic:      lipgloss.NewStyle().Italic(true),
		Accent:      lipgloss.NewStyle().Bold(true).Foreground(c.Violet),
		SelectedRow: lipgloss.NewStyle().Bold(true).Background(c.Selected),
	}
}

// Status returns the style for a ticket status.
func (t *Theme) Status(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusResolved:
		return t.Success
	case models.StatusEscalated:
		return t.Error
	case models.StatusAnalyzing, models.StatusDiagnosed:
		return t.Info
	default:
		return t.Warning
	}
}

// Connection returns the style for a connection state.
func (t *Theme) Connection(c models.ConnectionStatus) lipgloss.Style {
	switch {
	case c.State == models.Connected:
		return t.Success
	case c.Exhausted:
		return t.Error
	default:
		return t.Warning
	}
}
