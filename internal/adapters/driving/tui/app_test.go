package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(NewPorts(&MockPipelineService{}, &MockIndexAdmin{StatsValue: domain.NotInitializedStats()}))
	require.NoError(t, err)
	return app
}

func TestNewApp_Success(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.False(t, app.Ready())
	assert.NotNil(t, app.Chat())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingPipelineService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	assert.NotNil(t, newTestApp(t).Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app := newTestApp(t)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Equal(t, 100, app.width)
	assert.Equal(t, 30, app.height)
}

func TestApp_View_NotReady(t *testing.T) {
	assert.Equal(t, "Initialising...", newTestApp(t).View())
}

func TestApp_View_Chat(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(120, 30)

	assert.Contains(t, app.View(), "policy assistant")
}

func TestApp_Update_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"quit message", messages.Quit{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)

			_, cmd := app.Update(tt.msg)

			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestApp_Update_HelpToggle(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(120, 30)

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	view := app.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "guardrails")
	assert.Contains(t, view, "back to chat")

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_Update_HelpEscape(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	require.Equal(t, messages.ViewHelp, app.CurrentView())

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Empty(t, app.Chat().Transcript().Exchanges())

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_Update_AskRoundTrip(t *testing.T) {
	var got domain.ProcessRequest
	pipeline := &MockPipelineService{
		ProcessFunc: func(_ context.Context, req domain.ProcessRequest) (*domain.ProcessResponse, error) {
			got = req
			return &domain.ProcessResponse{SessionID: "sess-9", Answer: "Quarterly."}, nil
		},
	}
	app, err := NewApp(NewPorts(pipeline, nil))
	require.NoError(t, err)
	app.SetDimensions(120, 30)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("review cadence?")})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	app.Update(cmd())

	assert.Equal(t, "review cadence?", got.Query)
	assert.True(t, got.EnableGuardrails)
	assert.Equal(t, "sess-9", app.Chat().SessionID())
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "Quarterly.")
}

func TestApp_Update_AnswerWhileInHelp(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(120, 30)
	app.Update(messages.AskRequested{Question: "q"})
	app.Update(messages.ViewChanged{View: messages.ViewHelp})

	app.Update(messages.AnswerReceived{Question: "q", Response: &domain.ProcessResponse{SessionID: "s"}})

	assert.False(t, app.Chat().Thinking())
	assert.Equal(t, "s", app.Chat().SessionID())
}

func TestApp_Update_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)
	boom := errors.New("boom")

	app.Update(messages.ErrorOccurred{Err: boom})

	assert.Equal(t, boom, app.Err())
}

func TestApp_Update_AnswerError(t *testing.T) {
	app := newTestApp(t)
	boom := errors.New("generation failed")

	app.Update(messages.AnswerReceived{Question: "q", Err: boom})

	assert.Equal(t, boom, app.Err())
}

func TestNewApp_GuardrailsOff(t *testing.T) {
	ports := NewPorts(&MockPipelineService{}, nil)
	ports.GuardrailsOff = true

	app, err := NewApp(ports)
	require.NoError(t, err)

	assert.False(t, app.Chat().Guardrails())
	assert.False(t, app.Chat().StatusBar().Guardrails())
}
