// Package tui provides an interactive terminal chat for asking policy questions.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Pipeline answers questions. Required.
	Pipeline driving.PipelineService

	// Index reports index status in the status bar. Optional.
	Index driving.IndexAdmin

	// GuardrailsOff starts the chat with guardrails disabled.
	GuardrailsOff bool
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(pipeline driving.PipelineService, index driving.IndexAdmin) *Ports {
	return &Ports{
		Pipeline: pipeline,
		Index:    index,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
