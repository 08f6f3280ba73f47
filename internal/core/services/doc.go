// Package services implements the driving ports on top of the driven ones.
//
// The request path is PipelineService, which threads a RequestState through
// GuardrailService and RetrievalService. IndexService rebuilds the vector
// index and publishes it through an IndexHandle shared with retrieval.
package services
