package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

func TestDefaultTheme_RiskColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.RiskLow, theme.RiskMedium, theme.RiskHigh, theme.RiskCritical} {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestNewStyles(t *testing.T) {
	t.Run("with theme", func(t *testing.T) {
		theme := DefaultTheme()
		styles := NewStyles(theme)

		require.NotNil(t, styles)
		assert.Equal(t, theme, styles.Theme())
	})

	t.Run("nil theme uses default", func(t *testing.T) {
		styles := NewStyles(nil)

		require.NotNil(t, styles)
		assert.Equal(t, DefaultTheme(), styles.Theme())
	})
}

func TestStyles_Risk(t *testing.T) {
	styles := DefaultStyles()
	theme := styles.Theme()

	tests := []struct {
		level domain.RiskLevel
		want  lipgloss.TerminalColor
	}{
		{domain.RiskLow, theme.RiskLow},
		{domain.RiskMedium, theme.RiskMedium},
		{domain.RiskHigh, theme.RiskHigh},
		{domain.RiskCritical, theme.RiskCritical},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, styles.Risk(tt.level).GetForeground())
		})
	}

	t.Run("unknown level renders as normal", func(t *testing.T) {
		assert.Equal(t, styles.Normal.GetForeground(), styles.Risk(domain.RiskLevel(42)).GetForeground())
	})
}

func TestStyles_CanRenderText(t *testing.T) {
	styles := DefaultStyles()

	testCases := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Title", styles.Title},
		{"Question", styles.Question},
		{"Answer", styles.Answer},
		{"Citation", styles.Citation},
		{"Error", styles.Error},
		{"Help", styles.Help},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, tc.style.Render("test text"), "test text")
		})
	}
}
