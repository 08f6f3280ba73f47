// Package styles provides the colour palette shared by the TUI and the
// coloured CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// Theme defines the colour palette.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color

	// Risk colours, one per risk level.
	RiskLow      lipgloss.Color
	RiskMedium   lipgloss.Color
	RiskHigh     lipgloss.Color
	RiskCritical lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:      lipgloss.Color("#7C3AED"), // Purple
		Secondary:    lipgloss.Color("#06B6D4"), // Cyan
		Foreground:   lipgloss.Color("#CDD6F4"), // Light gray
		Muted:        lipgloss.Color("#6C7086"), // Medium gray
		Border:       lipgloss.Color("#45475A"), // Border gray
		RiskLow:      lipgloss.Color("#A6E3A1"), // Green
		RiskMedium:   lipgloss.Color("#F9E2AF"), // Yellow
		RiskHigh:     lipgloss.Color("#FAB387"), // Orange
		RiskCritical: lipgloss.Color("#F38BA8"), // Red
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style

	// Question renders the user's side of the conversation.
	Question lipgloss.Style

	// Answer renders the assistant's side of the conversation.
	Answer lipgloss.Style

	// Citation renders a source reference.
	Citation lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	risk map[domain.RiskLevel]lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Error: lipgloss.NewStyle().
			Foreground(theme.RiskCritical),

		Question: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Answer: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		Citation: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true).
			PaddingLeft(4),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#181825")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		risk: map[domain.RiskLevel]lipgloss.Style{
			domain.RiskLow:      lipgloss.NewStyle().Foreground(theme.RiskLow),
			domain.RiskMedium:   lipgloss.NewStyle().Foreground(theme.RiskMedium),
			domain.RiskHigh:     lipgloss.NewStyle().Bold(true).Foreground(theme.RiskHigh),
			domain.RiskCritical: lipgloss.NewStyle().Bold(true).Foreground(theme.RiskCritical),
		},
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Risk returns the style for a risk level. Unknown levels render as Normal.
func (s *Styles) Risk(level domain.RiskLevel) lipgloss.Style {
	if style, ok := s.risk[level]; ok {
		return style
	}
	return s.Normal
}
