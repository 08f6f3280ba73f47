// Package transcript renders the scrollable conversation history.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// Exchange is one question and, once it arrives, its answer.
type Exchange struct {
	Question string
	Response *domain.ProcessResponse
	Err      error
}

// Pending reports whether the exchange is still waiting for an answer.
func (e Exchange) Pending() bool {
	return e.Response == nil && e.Err == nil
}

// Transcript is a scrollable list of exchanges.
type Transcript struct {
	styles     *styles.Styles
	viewport   viewport.Model
	exchanges  []Exchange
	showTraces bool
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	t := &Transcript{
		styles:   s,
		viewport: viewport.New(80, 20),
	}
	t.refresh()
	return t
}

// Update forwards mouse and key scrolling to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the transcript.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// Ask appends a pending exchange for question.
func (t *Transcript) Ask(question string) {
	t.exchanges = append(t.exchanges, Exchange{Question: question})
	t.refresh()
}

// Answer completes the most recent pending exchange for question.
// If none is pending a completed exchange is appended.
func (t *Transcript) Answer(question string, resp *domain.ProcessResponse, err error) {
	for i := len(t.exchanges) - 1; i >= 0; i-- {
		if t.exchanges[i].Pending() && t.exchanges[i].Question == question {
			t.exchanges[i].Response = resp
			t.exchanges[i].Err = err
			t.refresh()
			return
		}
	}
	t.exchanges = append(t.exchanges, Exchange{Question: question, Response: resp, Err: err})
	t.refresh()
}

// Exchanges returns the conversation so far.
func (t *Transcript) Exchanges() []Exchange {
	return t.exchanges
}

// Clear removes all exchanges.
func (t *Transcript) Clear() {
	t.exchanges = nil
	t.refresh()
}

// SetShowTraces toggles rendering of stage traces.
func (t *Transcript) SetShowTraces(show bool) {
	t.showTraces = show
	t.refresh()
}

// ShowTraces reports whether stage traces are rendered.
func (t *Transcript) ShowTraces() bool {
	return t.showTraces
}

// SetSize resizes the visible area.
func (t *Transcript) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

// ScrollUp scrolls up half a page.
func (t *Transcript) ScrollUp() {
	t.viewport.HalfViewUp()
}

// ScrollDown scrolls down half a page.
func (t *Transcript) ScrollDown() {
	t.viewport.HalfViewDown()
}

// AtBottom reports whether the newest content is visible.
func (t *Transcript) AtBottom() bool {
	return t.viewport.AtBottom()
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.render())
	t.viewport.GotoBottom()
}

func (t *Transcript) render() string {
	if len(t.exchanges) == 0 {
		return t.styles.Muted.Render("Ask a question about your policy documents.")
	}

	width := t.viewport.Width - 4
	blocks := make([]string, 0, len(t.exchanges))
	for _, ex := range t.exchanges {
		blocks = append(blocks, t.renderExchange(ex, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) renderExchange(ex Exchange, width int) string {
	var b strings.Builder
	b.WriteString(t.styles.Question.Render("> " + ex.Question))
	b.WriteString("\n")

	switch {
	case ex.Err != nil:
		b.WriteString(t.styles.Error.Render("Error: " + ex.Err.Error()))
		return b.String()
	case ex.Pending():
		b.WriteString(t.styles.Muted.Render("  thinking..."))
		return b.String()
	}

	resp := ex.Response
	b.WriteString(t.styles.Answer.Width(width).Render(resp.Answer))
	b.WriteString("\n")

	meta := fmt.Sprintf("  Risk: %s  Confidence: %.2f  %s",
		t.styles.Risk(resp.RiskLevel).Render(resp.RiskLevel.String()),
		resp.Confidence, resp.ProcessingTime.Round(time.Millisecond))
	if resp.TimedOut {
		meta += "  " + t.styles.Error.Render("timed out")
	}
	b.WriteString(t.styles.Muted.Render(meta))

	for _, v := range resp.Violations {
		b.WriteString("\n")
		b.WriteString(t.styles.Risk(v.Severity).Render(fmt.Sprintf("  ! %s: %s", v.Kind, v.Description)))
	}

	for i, c := range resp.Citations {
		b.WriteString("\n")
		b.WriteString(t.styles.Citation.Render(fmt.Sprintf("[%d] %s (%.2f)", i+1, c.DocumentName, c.RelevanceScore)))
	}

	if t.showTraces {
		for _, tr := range resp.Traces {
			b.WriteString("\n")
			line := fmt.Sprintf("  %-12s %-9s %s", tr.Stage, tr.Status, tr.Duration.Round(time.Microsecond))
			if tr.Error != "" {
				line += " " + tr.Error
			}
			b.WriteString(t.styles.Muted.Render(line))
		}
	}
	return b.String()
}
