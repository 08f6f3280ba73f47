package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question         string `json:"question" jsonschema:"the policy question to answer"`
	SessionID        string `json:"session_id,omitempty" jsonschema:"conversation id; a new session is started when empty"`
	EnableGuardrails *bool  `json:"enable_guardrails,omitempty" jsonschema:"run input and output guardrails (defaults to the server setting)"`
	FilterDocument   string `json:"filter_document,omitempty" jsonschema:"restrict retrieval to one document name"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	MessageID        string            `json:"message_id"`
	SessionID        string            `json:"session_id"`
	Answer           string            `json:"answer"`
	RiskLevel        string            `json:"risk_level"`
	Confidence       float64           `json:"confidence"`
	Blocked          bool              `json:"blocked"`
	TimedOut         bool              `json:"timed_out"`
	Citations        []CitationOutput  `json:"citations"`
	Violations       []ViolationOutput `json:"guardrail_violations"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
}

// CitationOutput represents a single citation.
type CitationOutput struct {
	SourceID       string  `json:"source_id"`
	DocumentName   string  `json:"document_name"`
	Section        string  `json:"section,omitempty"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
}

// ViolationOutput represents a single guardrail violation.
type ViolationOutput struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// SearchInput is the input schema for the search_policies tool.
type SearchInput struct {
	Query          string `json:"query,omitempty" jsonschema:"free-text query; ignored when topic is set"`
	Topic          string `json:"topic,omitempty" jsonschema:"a known policy topic such as model_risk or compliance"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of passages (default 5)"`
	FilterDocument string `json:"filter_document,omitempty" jsonschema:"restrict results to one document name"`
}

// SearchOutput is the output schema for the search_policies tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentName string  `json:"document_name"`
	Section      string  `json:"section,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// IndexStatsInput is the (empty) input schema for the index_stats tool.
type IndexStatsInput struct{}

// IndexStatsOutput is the output schema for the index_stats tool.
type IndexStatsOutput struct {
	Status         string `json:"status"`
	TotalVectors   int    `json:"total_vectors"`
	TotalChunks    int    `json:"total_chunks"`
	TotalDocuments int    `json:"total_documents"`
	EmbeddingDim   int    `json:"embedding_dim"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the policy documents through the compliance guardrails",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_policies",
		Description: "Find policy passages by query or topic without generating an answer",
	}, s.handleSearchPolicies)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Report the status and size of the policy vector index",
	}, s.handleIndexStats)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		telemetry.RecordRateLimited()
		return nil, AskOutput{}, fmt.Errorf("%w: try again shortly", domain.ErrRateLimited)
	}

	guardrails := !s.ports.GuardrailsOff
	if input.EnableGuardrails != nil {
		guardrails = *input.EnableGuardrails
	}

	resp, err := s.ports.Pipeline.Process(ctx, domain.ProcessRequest{
		Query:            input.Question,
		SessionID:        input.SessionID,
		EnableGuardrails: guardrails,
		FilterDocument:   input.FilterDocument,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, toAskOutput(resp), nil
}

func toAskOutput(resp *domain.ProcessResponse) AskOutput {
	out := AskOutput{
		MessageID:        resp.MessageID,
		SessionID:        resp.SessionID,
		Answer:           resp.Answer,
		RiskLevel:        resp.RiskLevel.String(),
		Confidence:       resp.Confidence,
		Blocked:          resp.Blocked(),
		TimedOut:         resp.TimedOut,
		Citations:        make([]CitationOutput, len(resp.Citations)),
		Violations:       make([]ViolationOutput, len(resp.Violations)),
		ProcessingTimeMS: resp.ProcessingTime.Milliseconds(),
	}

	for i, c := range resp.Citations {
		out.Citations[i] = CitationOutput{
			SourceID:       c.SourceID,
			DocumentName:   c.DocumentName,
			Section:        c.Section,
			RelevanceScore: c.RelevanceScore,
			Excerpt:        c.Excerpt,
		}
		if c.ChunkIndex != nil {
			out.Citations[i].ChunkIndex = *c.ChunkIndex
		}
	}
	for i, v := range resp.Violations {
		out.Violations[i] = ViolationOutput{
			Type:        string(v.Kind),
			Severity:    v.Severity.String(),
			Description: v.Description,
		}
	}
	return out
}

// handleSearchPolicies handles the search_policies tool invocation.
func (s *Server) handleSearchPolicies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, SearchOutput{}, errors.New("retrieval service not configured")
	}

	var results []domain.SearchResult
	switch {
	case strings.TrimSpace(input.Topic) != "":
		found, err := s.ports.Retrieval.SearchByTopic(ctx, input.Topic)
		if err != nil {
			return nil, SearchOutput{}, err
		}
		results = found
	case strings.TrimSpace(input.Query) != "":
		opts := domain.DefaultRetrieveOptions()
		if input.Limit > 0 {
			opts.K = input.Limit
		}
		opts.FilterDocument = input.FilterDocument
		results = s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	default:
		return nil, SearchOutput{}, fmt.Errorf("%w: query or topic is required", domain.ErrInvalidInput)
	}

	if input.Limit > 0 && len(results) > input.Limit {
		results = results[:input.Limit]
	}

	output := SearchOutput{
		Results: make([]PassageOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = PassageOutput{
			ChunkID:      results[i].ChunkID,
			DocumentName: results[i].Document.Name,
			Section:      results[i].Chunk.Section,
			ChunkIndex:   results[i].Chunk.Index,
			Score:        results[i].Score,
			Content:      results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleIndexStats handles the index_stats tool invocation.
func (s *Server) handleIndexStats(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ IndexStatsInput,
) (*mcp.CallToolResult, IndexStatsOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexStatsOutput{}, errors.New("index service not configured")
	}

	stats := s.ports.Index.Stats()
	return nil, IndexStatsOutput{
		Status:         string(stats.Status),
		TotalVectors:   stats.TotalVectors,
		TotalChunks:    stats.TotalChunks,
		TotalDocuments: stats.TotalDocuments,
		EmbeddingDim:   stats.EmbeddingDim,
		IndexSizeBytes: stats.IndexSizeBytes,
	}, nil
}
