package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
	"github.com/custodia-labs/riskpilot/internal/logger"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

const (
	// contextSeparator joins passages in the packed context.
	contextSeparator = "\n---\n"

	// topicResultsPerQuery is the k used for each canned topic query.
	topicResultsPerQuery = 3

	// topicMaxResults bounds SearchByTopic.
	topicMaxResults = 5
)

// topicQueries expands known policy topics into canned queries.
// Unknown topics are searched as given.
var topicQueries = map[string][]string{
	"model_risk": {
		"model risk management",
		"model validation requirements",
		"model governance framework",
	},
	"ai_ethics": {
		"AI ethics principles",
		"ethical AI development",
		"bias and fairness in AI",
	},
	"llm": {
		"large language models",
		"LLM governance",
		"prompt engineering",
		"hallucination risks",
	},
	"compliance": {
		"regulatory compliance",
		"EU AI Act",
		"Basel requirements",
		"audit requirements",
	},
}

// RetrievalService finds policy passages relevant to a query.
// It reads the index through the handle, so it follows rebuilds.
type RetrievalService struct {
	handle   *IndexHandle
	embedder driven.EmbeddingService
	settings domain.RetrievalSettings
}

// NewRetrievalService creates a new retrieval service.
// The embedder is optional; without it every retrieval is empty.
func NewRetrievalService(handle *IndexHandle, embedder driven.EmbeddingService, settings domain.RetrievalSettings) *RetrievalService {
	return &RetrievalService{
		handle:   handle,
		embedder: embedder,
		settings: settings,
	}
}

// Retrieve returns the passages most similar to query.
// Any failure is logged and yields no results.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) []domain.SearchResult {
	results, err := s.retrieve(ctx, query, opts)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotInitialized) || errors.Is(err, domain.ErrEmbeddingUnavailable) {
			logger.Debug("retrieval disabled: %v", err)
		} else {
			logger.Warn("retrieval failed: %v", err)
		}
		return []domain.SearchResult{}
	}
	logger.Debug("retrieved %d passages for %q", len(results), truncateRunes(query, 50))
	return results
}

func (s *RetrievalService) retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (results []domain.SearchResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.retrieve",
		attribute.Int("k", opts.K),
		attribute.Bool("filtered", opts.FilterDocument != ""))
	defer func() { telemetry.EndSpan(span, err) }()

	idx := s.handle.Current()
	if idx == nil || !idx.Stats().Ready() {
		return nil, domain.ErrIndexNotInitialized
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if opts.K <= 0 {
		opts.K = s.settings.K
	}
	if opts.K <= 0 {
		opts.K = domain.DefaultTopK
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if opts.FilterDocument != "" {
		return idx.SearchWithFilter(ctx, vec, domain.DocumentNameFilter(opts.FilterDocument), opts.K, opts.ScoreThreshold)
	}
	return idx.Search(ctx, vec, opts.K, opts.ScoreThreshold)
}

// GenerateCitations converts results scoring at least minScore into citations,
// keeping the first occurrence of each chunk.
func (s *RetrievalService) GenerateCitations(results []domain.SearchResult, minScore float64) []domain.Citation {
	citations := make([]domain.Citation, 0, len(results))
	seen := make(map[string]struct{}, len(results))

	for _, r := range results {
		if r.Score < minScore {
			continue
		}
		if _, dup := seen[r.ChunkID]; dup {
			continue
		}
		seen[r.ChunkID] = struct{}{}

		chunkIndex := r.Chunk.Index
		citations = append(citations, domain.Citation{
			SourceID:       r.Chunk.DocumentID,
			DocumentName:   r.Document.Name,
			Section:        r.Chunk.Section,
			ChunkIndex:     &chunkIndex,
			RelevanceScore: clamp01(r.Score),
			Excerpt:        excerpt(r.Chunk.Content),
		})
	}
	return citations
}

// ContextForLLM retrieves passages and packs them greedily, best first, into a
// context of at most maxLength characters. Packing stops at the first passage
// that does not fit.
func (s *RetrievalService) ContextForLLM(ctx context.Context, query string, opts domain.RetrieveOptions, maxLength int) domain.RetrievalContext {
	opts.ScoreThreshold = s.settings.ScoreThreshold
	results := s.Retrieve(ctx, query, opts)

	var (
		parts    []string
		included []domain.SearchResult
		sources  []string
		total    int
	)
	for _, r := range results {
		passage := fmt.Sprintf("[Source: %s]\n%s\n", r.Document.Name, r.Chunk.Content)
		size := utf8.RuneCountInString(passage)
		if len(parts) > 0 {
			size += utf8.RuneCountInString(contextSeparator)
		}
		if total+size > maxLength {
			break
		}
		parts = append(parts, passage)
		included = append(included, r)
		sources = append(sources, r.Document.Name)
		total += size
	}

	if len(parts) < len(results) {
		logger.Debug("packed %d of %d passages into %d characters", len(parts), len(results), total)
	}

	return domain.RetrievalContext{
		Context:   strings.Join(parts, contextSeparator),
		Citations: s.GenerateCitations(included, s.settings.CitationMinScore),
		Sources:   sources,
	}
}

// SearchByTopic retrieves passages for a known policy topic, merging the
// results of its canned queries.
func (s *RetrievalService) SearchByTopic(ctx context.Context, topic string) ([]domain.SearchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: empty topic", domain.ErrInvalidInput)
	}

	queries, ok := topicQueries[strings.ToLower(topic)]
	if !ok {
		queries = []string{topic}
	}

	var merged []domain.SearchResult
	seen := make(map[string]struct{})
	for _, q := range queries {
		results := s.Retrieve(ctx, q, domain.RetrieveOptions{
			K:              topicResultsPerQuery,
			ScoreThreshold: s.settings.ScoreThreshold,
		})
		for _, r := range results {
			if _, dup := seen[r.ChunkID]; dup {
				continue
			}
			seen[r.ChunkID] = struct{}{}
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topicMaxResults {
		merged = merged[:topicMaxResults]
	}
	return merged, nil
}

// Topics returns the topics with canned queries, sorted.
func Topics() []string {
	topics := make([]string, 0, len(topicQueries))
	for t := range topicQueries {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func excerpt(content string) string {
	if utf8.RuneCountInString(content) <= domain.ExcerptLength {
		return content
	}
	return truncateRunes(content, domain.ExcerptLength) + "..."
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
