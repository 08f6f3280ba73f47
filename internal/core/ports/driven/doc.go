// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CorpusReader: Loads policy documents from a directory
//   - PostProcessorPipeline: Splits documents into chunks
//   - VectorIndex: Exact vector storage and similarity search
//   - AuditSink: Receives one record per processed request
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, retrieval is disabled.
//   - AnswerGenerator: Produces answers. Without it, generation fails into an apology.
//   - ProcessedStore: Keeps raw embeddings so the index can be rebuilt without re-embedding.
//   - PromptStore: User-customisable prompt templates for the LLM generator.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
