// Package driving defines what the CLI, MCP server and TUI call into.
//
//   - PipelineService: guarded question answering, one audit record per call
//   - RetrievalService: passage search, citations and LLM context
//   - IndexAdmin: index status, load and rebuild
//   - AuditQuery: audit trail listing and aggregation
//   - SettingsService: persisted settings and provider checks
//
// internal/core/services implements all of them.
package driving
