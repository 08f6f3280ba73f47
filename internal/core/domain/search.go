package domain

// Retrieval defaults.
const (
	// DefaultTopK is the number of passages retrieved per query.
	DefaultTopK = 5

	// DefaultScoreThreshold is the minimum similarity for a retrieval hit.
	DefaultScoreThreshold = 0.5

	// DefaultCitationMinScore is the minimum similarity for a hit to be cited.
	// It is deliberately stricter than DefaultScoreThreshold.
	DefaultCitationMinScore = 0.6

	// DefaultMaxContextLength bounds the context handed to the generator, in characters.
	DefaultMaxContextLength = 3000

	// ExcerptLength is the maximum citation excerpt length in characters.
	ExcerptLength = 200
)

// SearchResult represents a single vector index hit.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the raw inner-product similarity in [-1, 1].
	Score float64

	// Chunk is the matched chunk.
	Chunk Chunk

	// Document is the chunk's parent document metadata.
	// Name is "Unknown" when the document is missing from the index.
	Document Document
}

// ChunkFilter is a metadata predicate applied to search candidates.
type ChunkFilter func(SearchResult) bool

// DocumentNameFilter matches results whose document name equals name.
func DocumentNameFilter(name string) ChunkFilter {
	return func(r SearchResult) bool {
		return r.Document.Name == name
	}
}

// RetrieveOptions configures a retrieval.
type RetrieveOptions struct {
	// K is the maximum number of results.
	K int

	// ScoreThreshold drops results scoring below it.
	ScoreThreshold float64

	// FilterDocument restricts results to a single document name.
	// Filtered retrieval over-fetches 3*K candidates and is not exhaustive.
	FilterDocument string
}

// DefaultRetrieveOptions returns the standard retrieval options.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		K:              DefaultTopK,
		ScoreThreshold: DefaultScoreThreshold,
	}
}

// Citation is a user-facing reference to a source passage.
// Citations are derived per request and never persisted.
type Citation struct {
	SourceID       string  `json:"source_id"`
	DocumentName   string  `json:"document_name"`
	Section        string  `json:"section,omitempty"`
	ChunkIndex     *int    `json:"page_number,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
}

// RetrievalContext is the packed context handed to the answer generator.
type RetrievalContext struct {
	// Context is the concatenated passages, empty when nothing was retrieved.
	Context string

	// Citations are derived from the passages included in Context only.
	Citations []Citation

	// Sources lists the document name of each included passage.
	Sources []string
}

// IsEmpty reports whether no passage was packed.
func (r RetrievalContext) IsEmpty() bool {
	return r.Context == ""
}

// IndexStatus describes whether an index can be queried.
type IndexStatus string

// Index statuses.
const (
	IndexStatusReady          IndexStatus = "ready"
	IndexStatusNotInitialized IndexStatus = "not_initialized"
)

// IndexStats summarises a vector index.
// Callers treat IndexStatusNotInitialized as "no retrieval", not as an error.
type IndexStats struct {
	Status         IndexStatus `json:"status"`
	TotalVectors   int         `json:"total_vectors"`
	TotalChunks    int         `json:"total_chunks"`
	TotalDocuments int         `json:"total_documents"`
	EmbeddingDim   int         `json:"embedding_dim"`
	IndexSizeBytes int64       `json:"index_size_bytes"`
}

// Ready reports whether the index is queryable.
func (s IndexStats) Ready() bool {
	return s.Status == IndexStatusReady
}

// NotInitializedStats is returned when no index is loaded.
func NotInitializedStats() IndexStats {
	return IndexStats{Status: IndexStatusNotInitialized}
}

// CorpusStats summarises a processed corpus.
type CorpusStats struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
	EmbeddingDim   int `json:"embedding_dim"`
	ChunkSize      int `json:"chunk_size"`
	ChunkOverlap   int `json:"chunk_overlap"`
}

// ProcessedCorpus is the intermediate output of a rebuild: raw embeddings
// aligned with chunks, plus document metadata.
type ProcessedCorpus struct {
	// Embeddings are the raw vectors before normalisation.
	Embeddings [][]float32

	// Chunks are aligned 1:1 with Embeddings.
	Chunks []Chunk

	// Documents maps document ID to metadata.
	Documents map[string]Document

	// Stats summarises the corpus.
	Stats CorpusStats
}

// RebuildReport summarises a completed rebuild.
type RebuildReport struct {
	Documents        int
	Chunks           int
	SkippedDocuments []string
	Stats            IndexStats
}
