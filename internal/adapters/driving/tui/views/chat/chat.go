// Package chat provides the conversation view of the TUI.
package chat

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
)

// chromeHeight is the number of lines used by the title, input and status bar.
const chromeHeight = 6

// View is a question/answer conversation backed by the pipeline.
type View struct {
	ctx        context.Context
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	pipeline   driving.PipelineService
	index      driving.IndexAdmin
	input      *input.QuestionInput
	transcript *transcript.Transcript
	statusBar  *status.Bar

	sessionID  string
	guardrails bool
	thinking   bool
	width      int
	height     int
}

// NewView creates a chat view. index may be nil.
func NewView(s *styles.Styles, km *keymap.KeyMap, pipeline driving.PipelineService, index driving.IndexAdmin) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		pipeline:   pipeline,
		index:      index,
		input:      input.NewQuestionInput(s),
		transcript: transcript.New(s),
		statusBar:  status.NewBar(s, km),
		guardrails: true,
	}
}

// SetContext sets the context used for pipeline requests.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init starts the cursor blink and loads index statistics.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadIndexStats())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.AskRequested:
		return v, v.ask(msg.Question)

	case messages.AnswerReceived:
		v.thinking = false
		v.transcript.Answer(msg.Question, msg.Response, msg.Err)
		if msg.Err != nil {
			v.statusBar.SetState(status.StateError)
			v.statusBar.SetMessage(msg.Err.Error())
			return v, nil
		}
		v.statusBar.Clear()
		if v.sessionID == "" && msg.Response != nil {
			v.sessionID = msg.Response.SessionID
		}
		return v, nil

	case messages.IndexStatsLoaded:
		v.statusBar.SetIndexStats(msg.Stats)
		return v, nil

	case messages.ErrorOccurred:
		v.statusBar.SetState(status.StateError)
		v.statusBar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.transcript, cmd = v.transcript.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Ask):
		question := strings.TrimSpace(v.input.Value())
		if question == "" || v.thinking {
			return v, nil
		}
		v.input.Reset()
		return v, v.ask(question)

	case keymap.Matches(key, v.keymap.ToggleGuardrails):
		v.SetGuardrails(!v.guardrails)
		return v, nil

	case keymap.Matches(key, v.keymap.ToggleTraces):
		v.transcript.SetShowTraces(!v.transcript.ShowTraces())
		return v, nil

	case keymap.Matches(key, v.keymap.NewSession):
		v.sessionID = ""
		v.transcript.Clear()
		v.statusBar.Clear()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp):
		v.transcript.ScrollUp()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollDown):
		v.transcript.ScrollDown()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask records the question and returns a command running it through the pipeline.
func (v *View) ask(question string) tea.Cmd {
	v.thinking = true
	v.transcript.Ask(question)
	v.statusBar.SetState(status.StateThinking)

	ctx := v.ctx
	pipeline := v.pipeline
	req := domain.ProcessRequest{
		Query:            question,
		SessionID:        v.sessionID,
		EnableGuardrails: v.guardrails,
		WantTraces:       true,
	}
	return func() tea.Msg {
		resp, err := pipeline.Process(ctx, req)
		return messages.AnswerReceived{Question: question, Response: resp, Err: err}
	}
}

func (v *View) loadIndexStats() tea.Cmd {
	if v.index == nil {
		return nil
	}
	index := v.index
	return func() tea.Msg {
		return messages.IndexStatsLoaded{Stats: index.Stats()}
	}
}

// View renders the chat view.
func (v *View) View() string {
	title := v.styles.Title.Render("riskpilot") + v.styles.Muted.Render("  policy assistant")
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		v.transcript.View(),
		v.input.View(),
		v.statusBar.View(),
	)
}

// SetDimensions sets the terminal dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusBar.SetWidth(width)
	v.transcript.SetSize(width, height-chromeHeight)
}

// SessionID returns the conversation session, empty before the first answer.
func (v *View) SessionID() string {
	return v.sessionID
}

// SetGuardrails sets whether new questions run through the guardrails.
func (v *View) SetGuardrails(enabled bool) {
	v.guardrails = enabled
	v.statusBar.SetGuardrails(enabled)
}

// Guardrails reports whether new questions are sent with guardrails enabled.
func (v *View) Guardrails() bool {
	return v.guardrails
}

// Thinking reports whether a question is in flight.
func (v *View) Thinking() bool {
	return v.thinking
}

// Transcript returns the conversation transcript.
func (v *View) Transcript() *transcript.Transcript {
	return v.transcript
}

// StatusBar returns the status bar.
func (v *View) StatusBar() *status.Bar {
	return v.statusBar
}
