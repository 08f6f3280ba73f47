package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Returned for missing corpus directories, documents and index files.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Index creation with no embeddings or misaligned vectors and chunks fails with it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMalformedIndex indicates the persisted index layout could not be decoded.
	// The index is left empty when this is returned.
	ErrMalformedIndex = errors.New("malformed index")

	// ErrIndexNotInitialized indicates no index is loaded.
	// Retrieval treats this as degraded state and returns no results.
	ErrIndexNotInitialized = errors.New("index not initialized")

	// ErrRebuildInProgress indicates a rebuild is already running.
	ErrRebuildInProgress = errors.New("rebuild in progress")

	// ErrGuardrailBlock marks a request blocked by a CRITICAL violation.
	// It is a designed outcome recorded on the request, never returned to callers.
	ErrGuardrailBlock = errors.New("blocked by guardrails")

	// ErrGenerationFailed indicates the answer generator failed.
	// The pipeline replaces the answer with an apology.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrAuditFailed indicates the audit sink rejected a record.
	// Audit failures are logged and never reach the caller.
	ErrAuditFailed = errors.New("audit failed")

	// ErrTimeout indicates the per-request time budget was exhausted.
	ErrTimeout = errors.New("request timed out")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the request rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
