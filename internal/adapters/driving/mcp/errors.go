// Package mcp provides an MCP (Model Context Protocol) server adapter for riskpilot.
// It lets AI assistants ask guarded policy questions and search the policy corpus.
package mcp

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("mcp: pipeline service is required")

// ErrInvalidPorts is returned when no ports are provided.
var ErrInvalidPorts = errors.New("mcp: ports are required")
