package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

const testDims = 4

// keywordEmbedder maps each keyword found in the text onto its own axis.
// Text with no keyword lands on the last axis.
type keywordEmbedder struct {
	mu    sync.Mutex
	err   error
	fail  string // texts containing this substring fail
	dims  int    // reported dimension, testDims when zero
	calls int
}

var embedderAxes = []string{"model", "ethics", "compliance"}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("embedding rejected")
	}

	vec := make([]float32, testDims)
	lower := strings.ToLower(text)
	found := false
	for i, kw := range embedderAxes {
		if strings.Contains(lower, kw) {
			vec[i] = 1
			found = true
		}
	}
	if !found {
		vec[testDims-1] = 1
	}
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int {
	if e.dims > 0 {
		return e.dims
	}
	return testDims
}

func (e *keywordEmbedder) ModelName() string          { return "keyword" }
func (e *keywordEmbedder) Ping(context.Context) error { return nil }
func (e *keywordEmbedder) Close() error               { return nil }

// stubGenerator returns fixed answers and records what it was asked.
type stubGenerator struct {
	answer       string
	fallback     string
	err          error
	delay        time.Duration
	panicMessage string

	gotQuery    string
	gotContext  string
	usedContext bool
}

func (g *stubGenerator) GenerateWithContext(ctx context.Context, query, retrieved string, _ []domain.Citation) (string, error) {
	g.gotQuery, g.gotContext, g.usedContext = query, retrieved, true
	return g.respond(ctx, g.answer)
}

func (g *stubGenerator) GenerateFallback(ctx context.Context, query string) (string, error) {
	g.gotQuery = query
	return g.respond(ctx, g.fallback)
}

func (g *stubGenerator) respond(ctx context.Context, answer string) (string, error) {
	if g.panicMessage != "" {
		panic(g.panicMessage)
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return answer, nil
}

func (g *stubGenerator) ModelName() string { return "stub" }

// recordingSink keeps audit records in memory, optionally failing.
type recordingSink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	err     error
	ctxErr  error
}

func (s *recordingSink) Record(ctx context.Context, r domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

// stubReader returns fixed documents.
type stubReader struct {
	docs    []domain.Document
	skipped []string
	err     error
}

func (r *stubReader) ReadDir(_ context.Context, _ string) ([]domain.Document, []string, error) {
	return r.docs, r.skipped, r.err
}

// blockingReader holds ReadDir until release is closed.
type blockingReader struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{started: make(chan struct{}), release: make(chan struct{})}
}

func (r *blockingReader) ReadDir(ctx context.Context, _ string) ([]domain.Document, []string, error) {
	close(r.started)
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return nil, nil, nil
}

// testPassage is one indexed chunk.
type testPassage struct {
	doc     string
	content string
	section string
}

// newTestIndex builds a flat index whose vectors come from keywordEmbedder.
func newTestIndex(t *testing.T, passages ...testPassage) *flat.Index {
	t.Helper()
	ctx := context.Background()
	embedder := &keywordEmbedder{}

	idx := flat.New(t.TempDir(), testDims)
	if len(passages) == 0 {
		return idx
	}

	var (
		embeddings [][]float32
		chunks     []domain.Chunk
	)
	docs := make(map[string]domain.Document)
	for i, p := range passages {
		vec, err := embedder.Embed(ctx, p.content)
		require.NoError(t, err)
		docID := "doc-" + p.doc
		docs[docID] = domain.Document{ID: docID, Name: p.doc}
		embeddings = append(embeddings, vec)
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s_chunk_%d", docID, i),
			DocumentID: docID,
			Index:      i,
			Content:    p.content,
			CharLength: len([]rune(p.content)),
			Section:    p.section,
		})
	}
	require.NoError(t, idx.Create(ctx, embeddings, chunks, docs))
	return idx
}

// publishedHandle returns a handle with idx published.
func publishedHandle(idx driven.VectorIndex) *IndexHandle {
	h := NewIndexHandle()
	h.Publish(idx)
	return h
}

func testRetrievalSettings() domain.RetrievalSettings {
	return domain.DefaultAppSettings().Retrieval
}

func testGuardrails(t *testing.T) *GuardrailService {
	t.Helper()
	g, err := NewGuardrailService(domain.DefaultGuardrailCatalog())
	require.NoError(t, err)
	return g
}
