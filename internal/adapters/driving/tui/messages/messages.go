// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// AskRequested is a command to send a question through the pipeline.
type AskRequested struct {
	Question string
}

// AnswerReceived carries the pipeline response back to the model.
type AnswerReceived struct {
	Question string
	Response *domain.ProcessResponse
	Err      error
}

// IndexStatsLoaded carries the published index statistics.
type IndexStatsLoaded struct {
	Stats domain.IndexStats
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the conversation view.
	ViewChat ViewType = iota
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred reports an error outside a pipeline request.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
