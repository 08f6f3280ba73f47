// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
	StateHelp     State = "help"
)

// Bar displays application status and keybinding hints.
type Bar struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	state      State
	message    string
	guardrails bool
	index      *domain.IndexStats
	width      int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:     s,
		keymap:     km,
		state:      StateReady,
		guardrails: true,
		width:      80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var state string
	switch s.state {
	case StateThinking:
		state = s.styles.Muted.Render("Thinking...")
	case StateError:
		if s.message != "" {
			state = s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		} else {
			state = s.styles.Error.Render("Error")
		}
	case StateHelp:
		state = s.styles.Normal.Render("Help")
	default:
		state = s.styles.Muted.Render("Ready")
	}

	parts := []string{state}
	if s.guardrails {
		parts = append(parts, s.styles.Normal.Render("guardrails on"))
	} else {
		parts = append(parts, s.styles.Risk(domain.RiskHigh).Render("guardrails off"))
	}
	if s.index != nil {
		if s.index.Ready() {
			parts = append(parts, s.styles.Muted.Render(fmt.Sprintf("%d chunks", s.index.TotalChunks)))
		} else {
			parts = append(parts, s.styles.Error.Render("no index"))
		}
	}
	return strings.Join(parts, s.styles.Muted.Render(" · "))
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetGuardrails records whether guardrails are enabled.
func (s *Bar) SetGuardrails(enabled bool) {
	s.guardrails = enabled
}

// Guardrails reports whether guardrails are shown as enabled.
func (s *Bar) Guardrails() bool {
	return s.guardrails
}

// SetIndexStats records the published index statistics.
func (s *Bar) SetIndexStats(stats domain.IndexStats) {
	s.index = &stats
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the state and message. Guardrail and index indicators are kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
