package mcp

import (
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Pipeline answers questions through the guardrails.
	Pipeline driving.PipelineService

	// Retrieval searches the policy corpus. Optional.
	Retrieval driving.RetrievalService

	// Index reports index statistics. Optional.
	Index driving.IndexAdmin

	// Audit exposes the audit trail. Optional.
	Audit driving.AuditQuery

	// Topics lists the topics SearchByTopic knows canned queries for.
	Topics []string

	// GuardrailsOff makes ask skip guardrails unless a call enables them.
	GuardrailsOff bool
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
