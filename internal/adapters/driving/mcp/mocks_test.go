package mcp

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	resp  *domain.ProcessResponse
	err   error
	got   domain.ProcessRequest
	calls int
}

func (m *mockPipelineService) Process(_ context.Context, req domain.ProcessRequest) (*domain.ProcessResponse, error) {
	m.calls++
	m.got = req
	return m.resp, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results  []domain.SearchResult
	err      error
	gotQuery string
	gotOpts  domain.RetrieveOptions
	gotTopic string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) []domain.SearchResult {
	m.gotQuery = query
	m.gotOpts = opts
	return m.results
}

func (m *mockRetrievalService) GenerateCitations(_ []domain.SearchResult, _ float64) []domain.Citation {
	return nil
}

func (m *mockRetrievalService) ContextForLLM(
	_ context.Context,
	_ string,
	_ domain.RetrieveOptions,
	_ int,
) domain.RetrievalContext {
	return domain.RetrievalContext{}
}

func (m *mockRetrievalService) SearchByTopic(_ context.Context, topic string) ([]domain.SearchResult, error) {
	m.gotTopic = topic
	return m.results, m.err
}

// mockIndexAdmin is a mock implementation of driving.IndexAdmin.
type mockIndexAdmin struct {
	stats domain.IndexStats
}

func (m *mockIndexAdmin) Stats() domain.IndexStats {
	return m.stats
}

func (m *mockIndexAdmin) Load(_ context.Context) error {
	return nil
}

func (m *mockIndexAdmin) Rebuild(_ context.Context, _ string) (*domain.RebuildReport, error) {
	return &domain.RebuildReport{}, nil
}

func (m *mockIndexAdmin) RebuildFromProcessed(_ context.Context) (*domain.RebuildReport, error) {
	return &domain.RebuildReport{}, nil
}

// mockAuditQuery is a mock implementation of driving.AuditQuery.
type mockAuditQuery struct {
	stats domain.AuditStats
	err   error
}

func (m *mockAuditQuery) List(_ context.Context, _ domain.AuditFilter) ([]domain.AuditRecord, error) {
	return nil, m.err
}

func (m *mockAuditQuery) Stats(_ context.Context, _ domain.AuditFilter) (domain.AuditStats, error) {
	return m.stats, m.err
}

func policyResult(name, section, content string, index int, score float64) domain.SearchResult {
	return domain.SearchResult{
		ChunkID:  name + "_chunk",
		Score:    score,
		Chunk:    domain.Chunk{Index: index, Content: content, Section: section},
		Document: domain.Document{Name: name},
	}
}
