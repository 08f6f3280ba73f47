// Package domain defines the core business entities for riskpilot.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A policy document loaded from the corpus
//   - Chunk: A searchable unit within a document
//   - Citation: A user-facing reference to a retrieved passage
//   - Violation: A guardrail finding with a RiskLevel
//   - RequestState: The mutable state of one pipeline request
//   - AuditRecord: The compliance record written for every request
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
