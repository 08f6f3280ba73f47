package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

func policyPassages() []testPassage {
	return []testPassage{
		{doc: "model_risk.md", content: "Model validation is performed annually.", section: "Validation"},
		{doc: "ethics.md", content: "Ethics reviews cover fairness."},
		{doc: "compliance.md", content: "Compliance teams report quarterly."},
		{doc: "model_risk.md", content: "Model and compliance owners sign off."},
	}
}

func TestRetrievalService_Retrieve(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, testRetrievalSettings())

	results := svc.Retrieve(context.Background(), "model governance", domain.RetrieveOptions{K: 5, ScoreThreshold: 0.5})

	require.Len(t, results, 2)
	assert.Equal(t, "Model validation is performed annually.", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "model_risk.md", results[0].Document.Name)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
}

func TestRetrievalService_Retrieve_Threshold(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, testRetrievalSettings())

	results := svc.Retrieve(context.Background(), "model governance", domain.RetrieveOptions{K: 5, ScoreThreshold: 0.9})

	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestRetrievalService_Retrieve_DefaultK(t *testing.T) {
	settings := testRetrievalSettings()
	settings.K = 1
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, settings)

	results := svc.Retrieve(context.Background(), "model", domain.RetrieveOptions{})

	assert.Len(t, results, 1)
}

func TestRetrievalService_Retrieve_FilterDocument(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, testRetrievalSettings())

	results := svc.Retrieve(context.Background(), "compliance", domain.RetrieveOptions{
		K:              5,
		ScoreThreshold: 0.5,
		FilterDocument: "compliance.md",
	})

	require.Len(t, results, 1)
	assert.Equal(t, "compliance.md", results[0].Document.Name)
}

func TestRetrievalService_Retrieve_Degraded(t *testing.T) {
	tests := []struct {
		name     string
		handle   *IndexHandle
		embedder *keywordEmbedder
	}{
		{
			name:     "no index published",
			handle:   NewIndexHandle(),
			embedder: &keywordEmbedder{},
		},
		{
			name:     "empty index",
			handle:   publishedHandle(newTestIndex(t)),
			embedder: &keywordEmbedder{},
		},
		{
			name:     "embedding fails",
			handle:   publishedHandle(newTestIndex(t, policyPassages()...)),
			embedder: &keywordEmbedder{err: errors.New("upstream down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRetrievalService(tt.handle, tt.embedder, testRetrievalSettings())

			results := svc.Retrieve(context.Background(), "model", domain.DefaultRetrieveOptions())

			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestRetrievalService_Retrieve_NoEmbedder(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), nil, testRetrievalSettings())

	results := svc.Retrieve(context.Background(), "model", domain.DefaultRetrieveOptions())

	assert.Empty(t, results)
}

func TestRetrievalService_Retrieve_FollowsPublish(t *testing.T) {
	handle := NewIndexHandle()
	svc := NewRetrievalService(handle, &keywordEmbedder{}, testRetrievalSettings())
	ctx := context.Background()

	assert.Empty(t, svc.Retrieve(ctx, "ethics", domain.DefaultRetrieveOptions()))

	handle.Publish(newTestIndex(t, policyPassages()...))

	assert.Len(t, svc.Retrieve(ctx, "ethics", domain.DefaultRetrieveOptions()), 1)
}

func TestRetrievalService_GenerateCitations(t *testing.T) {
	long := strings.Repeat("é", 250)
	results := []domain.SearchResult{
		{
			ChunkID:  "d1_chunk_0",
			Score:    1.2,
			Chunk:    domain.Chunk{ID: "d1_chunk_0", DocumentID: "d1", Index: 0, Content: "short", Section: "Scope"},
			Document: domain.Document{Name: "a.md"},
		},
		{
			ChunkID:  "d1_chunk_0",
			Score:    0.9,
			Chunk:    domain.Chunk{ID: "d1_chunk_0", DocumentID: "d1", Index: 0, Content: "short"},
			Document: domain.Document{Name: "a.md"},
		},
		{
			ChunkID:  "d2_chunk_3",
			Score:    0.7,
			Chunk:    domain.Chunk{ID: "d2_chunk_3", DocumentID: "d2", Index: 3, Content: long},
			Document: domain.Document{Name: "b.md"},
		},
		{
			ChunkID:  "d3_chunk_1",
			Score:    0.55,
			Chunk:    domain.Chunk{ID: "d3_chunk_1", DocumentID: "d3", Index: 1, Content: "low"},
			Document: domain.Document{Name: "c.md"},
		},
	}

	svc := NewRetrievalService(NewIndexHandle(), nil, testRetrievalSettings())
	citations := svc.GenerateCitations(results, 0.6)

	require.Len(t, citations, 2)

	first := citations[0]
	assert.Equal(t, "d1", first.SourceID)
	assert.Equal(t, "a.md", first.DocumentName)
	assert.Equal(t, "Scope", first.Section)
	require.NotNil(t, first.ChunkIndex)
	assert.Equal(t, 0, *first.ChunkIndex)
	assert.Equal(t, 1.0, first.RelevanceScore)
	assert.Equal(t, "short", first.Excerpt)

	second := citations[1]
	require.NotNil(t, second.ChunkIndex)
	assert.Equal(t, 3, *second.ChunkIndex)
	assert.Equal(t, 203, utf8.RuneCountInString(second.Excerpt))
	assert.True(t, strings.HasSuffix(second.Excerpt, "..."))
}

func TestRetrievalService_GenerateCitations_Empty(t *testing.T) {
	svc := NewRetrievalService(NewIndexHandle(), nil, testRetrievalSettings())

	citations := svc.GenerateCitations(nil, 0.6)

	assert.NotNil(t, citations)
	assert.Empty(t, citations)
}

func TestRetrievalService_ContextForLLM(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, testRetrievalSettings())

	rc := svc.ContextForLLM(context.Background(), "model", domain.RetrieveOptions{K: 5}, 3000)

	want := "[Source: model_risk.md]\nModel validation is performed annually.\n" +
		"\n---\n" +
		"[Source: model_risk.md]\nModel and compliance owners sign off.\n"
	assert.Equal(t, want, rc.Context)
	assert.Equal(t, []string{"model_risk.md", "model_risk.md"}, rc.Sources)
	require.Len(t, rc.Citations, 2)
	assert.Equal(t, "Validation", rc.Citations[0].Section)
	assert.False(t, rc.IsEmpty())
}

func TestRetrievalService_ContextForLLM_MaxLength(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, testRetrievalSettings())
	first := "[Source: model_risk.md]\nModel validation is performed annually.\n"
	ctx := context.Background()

	tests := []struct {
		name      string
		maxLength int
		passages  int
	}{
		{name: "nothing fits", maxLength: 10, passages: 0},
		{name: "exactly the first passage", maxLength: utf8.RuneCountInString(first), passages: 1},
		{name: "second passage needs room for the separator", maxLength: utf8.RuneCountInString(first) + 4, passages: 1},
		{name: "both fit", maxLength: 3000, passages: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := svc.ContextForLLM(ctx, "model", domain.RetrieveOptions{K: 5}, tt.maxLength)

			assert.LessOrEqual(t, utf8.RuneCountInString(rc.Context), tt.maxLength)
			assert.Len(t, rc.Sources, tt.passages)
			assert.Len(t, rc.Citations, tt.passages)
		})
	}
}

func TestRetrievalService_ContextForLLM_CitationsStricterThanContext(t *testing.T) {
	settings := testRetrievalSettings()
	settings.CitationMinScore = 0.8
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, settings)

	rc := svc.ContextForLLM(context.Background(), "model", domain.RetrieveOptions{K: 5}, 3000)

	assert.Len(t, rc.Sources, 2)
	assert.Len(t, rc.Citations, 1)
}

// Scenario: nothing indexed yields an empty context without failing.
func TestRetrievalService_ContextForLLM_EmptyIndex(t *testing.T) {
	svc := NewRetrievalService(NewIndexHandle(), &keywordEmbedder{}, testRetrievalSettings())

	rc := svc.ContextForLLM(context.Background(), "anything", domain.RetrieveOptions{}, 3000)

	assert.True(t, rc.IsEmpty())
	assert.Empty(t, rc.Context)
	assert.Empty(t, rc.Citations)
	assert.Empty(t, rc.Sources)
}

func TestRetrievalService_SearchByTopic(t *testing.T) {
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, policyPassages()...)), &keywordEmbedder{}, testRetrievalSettings())
	ctx := context.Background()

	t.Run("known topic merges canned queries", func(t *testing.T) {
		results, err := svc.SearchByTopic(ctx, "model_risk")
		require.NoError(t, err)

		require.Len(t, results, 2)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
		assert.NotEqual(t, results[0].ChunkID, results[1].ChunkID)
	})

	t.Run("topic is case insensitive", func(t *testing.T) {
		results, err := svc.SearchByTopic(ctx, "AI_Ethics")
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, "ethics.md", results[0].Document.Name)
	})

	t.Run("unknown topic searched as given", func(t *testing.T) {
		results, err := svc.SearchByTopic(ctx, "compliance reporting")
		require.NoError(t, err)

		require.NotEmpty(t, results)
		assert.Equal(t, "compliance.md", results[0].Document.Name)
	})

	t.Run("blank topic", func(t *testing.T) {
		_, err := svc.SearchByTopic(ctx, "  ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRetrievalService_SearchByTopic_CapsResults(t *testing.T) {
	// "large language models" hits the model passages, the other llm
	// queries hit the neutral ones: six distinct chunks before the cap.
	var passages []testPassage
	for i := 0; i < 4; i++ {
		passages = append(passages,
			testPassage{doc: "models.md", content: fmt.Sprintf("Model inventory entry %d.", i)},
			testPassage{doc: "general.md", content: fmt.Sprintf("General guidance %d.", i)},
		)
	}
	svc := NewRetrievalService(publishedHandle(newTestIndex(t, passages...)), &keywordEmbedder{}, testRetrievalSettings())

	results, err := svc.SearchByTopic(context.Background(), "llm")
	require.NoError(t, err)

	assert.Len(t, results, 5)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{"ai_ethics", "compliance", "llm", "model_risk"}, Topics())
}
