package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
	"github.com/custodia-labs/riskpilot/internal/logger"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

// Ensure IndexService implements the interface.
var _ driving.IndexAdmin = (*IndexService)(nil)

const (
	// embedBatchSize is the number of chunks sent per EmbedBatch call.
	embedBatchSize = 32

	// embedParallelism bounds the documents embedded concurrently.
	embedParallelism = 4
)

// Rebuild sources, used as metric labels.
const (
	rebuildSourceCorpus    = "corpus"
	rebuildSourceProcessed = "processed"
)

// IndexService builds, persists and publishes the vector index.
type IndexService struct {
	handle     *IndexHandle
	reader     driven.CorpusReader
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	factory    driven.VectorIndexFactory
	processed  driven.ProcessedStore
	chunking   domain.ChunkingSettings
	dimensions int

	rebuilding atomic.Bool
}

// NewIndexService creates a new index service.
// The embedder is optional; without it Rebuild fails and Load accepts any dimension.
func NewIndexService(
	handle *IndexHandle,
	reader driven.CorpusReader,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	factory driven.VectorIndexFactory,
	chunking domain.ChunkingSettings,
	dimensions int,
) *IndexService {
	return &IndexService{
		handle:     handle,
		reader:     reader,
		pipeline:   pipeline,
		embedder:   embedder,
		factory:    factory,
		chunking:   chunking,
		dimensions: dimensions,
	}
}

// SetProcessedStore enables saving and rebuilding from the processed corpus.
func (s *IndexService) SetProcessedStore(store driven.ProcessedStore) {
	s.processed = store
}

// Stats summarises the published index.
func (s *IndexService) Stats() domain.IndexStats {
	return s.handle.Stats()
}

// Load publishes the persisted index. On failure nothing is published and
// retrieval stays disabled.
func (s *IndexService) Load(ctx context.Context) error {
	idx, err := s.factory(s.queryDimensions())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := idx.Load(ctx); err != nil {
		logger.Warn("index not loaded, retrieval disabled: %v", err)
		return fmt.Errorf("load index: %w", err)
	}
	if s.embedder != nil && idx.Dimensions() != s.embedder.Dimensions() {
		idx.Clear()
		return fmt.Errorf("%w: index dimension %d does not match embedding dimension %d",
			domain.ErrInvalidInput, idx.Dimensions(), s.embedder.Dimensions())
	}

	s.publish(idx)
	return nil
}

// Rebuild reads, chunks and embeds sourceDir, then saves and publishes a new index.
func (s *IndexService) Rebuild(ctx context.Context, sourceDir string) (report *domain.RebuildReport, err error) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return nil, domain.ErrRebuildInProgress
	}
	defer s.rebuilding.Store(false)

	ctx, span := telemetry.StartSpan(ctx, "index.rebuild", attribute.String("source_dir", sourceDir))
	defer func() {
		telemetry.RecordRebuild(rebuildSourceCorpus, err)
		telemetry.EndSpan(span, err)
	}()

	logger.Section("Index Rebuild")

	if s.embedder == nil {
		return nil, fmt.Errorf("rebuild: %w", domain.ErrEmbeddingUnavailable)
	}

	docs, skipped, err := s.reader.ReadDir(ctx, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	logger.Info("read %d documents from %s", len(docs), sourceDir)

	prepared, failed, err := s.prepare(ctx, docs)
	if err != nil {
		return nil, err
	}
	skipped = append(skipped, failed...)
	if len(prepared) == 0 {
		return nil, fmt.Errorf("%w: no usable documents in %s", domain.ErrInvalidInput, sourceDir)
	}

	corpus := s.assemble(prepared)

	// Saved before build, which normalises the embeddings in place.
	if s.processed != nil {
		if err := s.processed.Save(ctx, corpus); err != nil {
			logger.Warn("processed corpus not saved: %v", err)
		}
	}

	stats, err := s.build(ctx, corpus)
	if err != nil {
		return nil, err
	}

	return &domain.RebuildReport{
		Documents:        len(corpus.Documents),
		Chunks:           len(corpus.Chunks),
		SkippedDocuments: skipped,
		Stats:            stats,
	}, nil
}

// RebuildFromProcessed rebuilds the index from the stored processed corpus.
func (s *IndexService) RebuildFromProcessed(ctx context.Context) (report *domain.RebuildReport, err error) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return nil, domain.ErrRebuildInProgress
	}
	defer s.rebuilding.Store(false)

	ctx, span := telemetry.StartSpan(ctx, "index.rebuild_from_processed")
	defer func() {
		telemetry.RecordRebuild(rebuildSourceProcessed, err)
		telemetry.EndSpan(span, err)
	}()

	logger.Section("Index Rebuild (processed corpus)")

	if s.processed == nil {
		return nil, fmt.Errorf("%w: no processed corpus store configured", domain.ErrNotFound)
	}
	corpus, err := s.processed.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load processed corpus: %w", err)
	}
	if s.embedder != nil && corpusDimensions(corpus) != s.embedder.Dimensions() {
		return nil, fmt.Errorf("%w: processed corpus has dimension %d, embedding service produces %d",
			domain.ErrInvalidInput, corpusDimensions(corpus), s.embedder.Dimensions())
	}

	stats, err := s.build(ctx, corpus)
	if err != nil {
		return nil, err
	}

	return &domain.RebuildReport{
		Documents: len(corpus.Documents),
		Chunks:    len(corpus.Chunks),
		Stats:     stats,
	}, nil
}

// preparedDocument is a document with its chunks and their embeddings.
type preparedDocument struct {
	doc        domain.Document
	chunks     []domain.Chunk
	embeddings [][]float32
}

// prepare chunks and embeds documents concurrently. Documents that fail are
// skipped and returned by path; only cancellation aborts the whole run.
// Output keeps the input order.
func (s *IndexService) prepare(ctx context.Context, docs []domain.Document) ([]preparedDocument, []string, error) {
	slots := make([]*preparedDocument, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedParallelism)
	for i := range docs {
		doc := docs[i]
		g.Go(func() error {
			p, err := s.prepareDocument(gctx, doc)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("skipping %s: %v", doc.Name, err)
				return nil
			}
			slots[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("prepare documents: %w", err)
	}

	prepared := make([]preparedDocument, 0, len(docs))
	var skipped []string
	seen := make(map[string]string, len(docs))
	for i, p := range slots {
		if p == nil {
			skipped = append(skipped, docs[i].Path)
			continue
		}
		if first, dup := seen[p.doc.ID]; dup {
			logger.Warn("skipping %s: same content as %s", p.doc.Name, first)
			skipped = append(skipped, p.doc.Path)
			continue
		}
		seen[p.doc.ID] = p.doc.Name
		prepared = append(prepared, *p)
	}
	return prepared, skipped, nil
}

func (s *IndexService) prepareDocument(ctx context.Context, doc domain.Document) (*preparedDocument, error) {
	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no content", domain.ErrInvalidInput)
	}

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(vectors))
		}
		embeddings = append(embeddings, vectors...)
	}

	logger.Debug("prepared %s: %d chunks", doc.Name, len(chunks))
	return &preparedDocument{doc: doc, chunks: chunks, embeddings: embeddings}, nil
}

// assemble flattens prepared documents into a processed corpus.
func (s *IndexService) assemble(prepared []preparedDocument) *domain.ProcessedCorpus {
	corpus := &domain.ProcessedCorpus{
		Documents: make(map[string]domain.Document, len(prepared)),
	}
	for _, p := range prepared {
		corpus.Embeddings = append(corpus.Embeddings, p.embeddings...)
		corpus.Chunks = append(corpus.Chunks, p.chunks...)
		corpus.Documents[p.doc.ID] = p.doc.Metadata()
	}
	corpus.Stats = domain.CorpusStats{
		TotalDocuments: len(corpus.Documents),
		TotalChunks:    len(corpus.Chunks),
		EmbeddingDim:   s.embedder.Dimensions(),
		ChunkSize:      s.chunking.ChunkSize,
		ChunkOverlap:   s.chunking.ChunkOverlap,
	}
	return corpus
}

// build creates a fresh index from corpus, saves it and publishes it.
func (s *IndexService) build(ctx context.Context, corpus *domain.ProcessedCorpus) (domain.IndexStats, error) {
	idx, err := s.factory(corpusDimensions(corpus))
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Create(ctx, corpus.Embeddings, corpus.Chunks, corpus.Documents); err != nil {
		return domain.IndexStats{}, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Save(ctx); err != nil {
		return domain.IndexStats{}, fmt.Errorf("save index: %w", err)
	}

	s.publish(idx)

	stats := idx.Stats()
	logger.Info("published index: %d vectors from %d documents", stats.TotalVectors, stats.TotalDocuments)
	return stats, nil
}

// publish swaps idx in. The previous index is left to in-flight readers.
func (s *IndexService) publish(idx driven.VectorIndex) {
	s.handle.Publish(idx)
	telemetry.SetIndexVectors(idx.Stats().TotalVectors)
}

func (s *IndexService) queryDimensions() int {
	if s.embedder != nil {
		return s.embedder.Dimensions()
	}
	return s.dimensions
}

func corpusDimensions(corpus *domain.ProcessedCorpus) int {
	if corpus.Stats.EmbeddingDim > 0 {
		return corpus.Stats.EmbeddingDim
	}
	if len(corpus.Embeddings) > 0 {
		return len(corpus.Embeddings[0])
	}
	return 0
}
