package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for riskpilot resources.
	uriScheme = "riskpilot://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "topics",
		Name:        "topics",
		Description: "Policy topics with curated search queries",
		MIMEType:    "application/json",
	}, s.handleTopicsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "audit/stats",
		Name:        "audit-stats",
		Description: "Aggregate statistics over the audit trail",
		MIMEType:    "application/json",
	}, s.handleAuditStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "topics/{topic}",
		Name:        "topic-passages",
		Description: "Policy passages for a specific topic",
		MIMEType:    "application/json",
	}, s.handleTopicResource)
}

// handleTopicsResource returns the known topics.
func (s *Server) handleTopicsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	topics := s.ports.Topics
	if topics == nil {
		topics = []string{}
	}
	return jsonResource(req.Params.URI, topics)
}

// handleAuditStatsResource returns audit statistics over all records.
func (s *Server) handleAuditStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Audit == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Audit.Stats(ctx, domain.AuditFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading audit stats: %w", err)
	}

	byRisk := make(map[string]int, len(stats.ByRiskLevel))
	for level, n := range stats.ByRiskLevel {
		byRisk[level.String()] = n
	}

	return jsonResource(req.Params.URI, struct {
		domain.AuditStats
		ByRiskLevel map[string]int `json:"by_risk_level"`
	}{stats, byRisk})
}

// handleTopicResource returns the passages for one topic.
func (s *Server) handleTopicResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Retrieval == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract topic from URI: riskpilot://topics/{topic}
	topic := extractTopic(req.Params.URI)
	if topic == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	results, err := s.ports.Retrieval.SearchByTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("searching topic: %w", err)
	}

	type passageInfo struct {
		DocumentName string  `json:"document_name"`
		Section      string  `json:"section,omitempty"`
		Score        float64 `json:"score"`
		Content      string  `json:"content"`
	}

	infos := make([]passageInfo, len(results))
	for i := range results {
		infos[i] = passageInfo{
			DocumentName: results[i].Document.Name,
			Section:      results[i].Chunk.Section,
			Score:        results[i].Score,
			Content:      results[i].Chunk.Content,
		}
	}

	return jsonResource(req.Params.URI, infos)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTopic extracts the topic from a URI like riskpilot://topics/{topic}.
func extractTopic(uri string) string {
	const prefix = uriScheme + "topics/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	topic, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil || strings.Contains(topic, "/") {
		return ""
	}
	return topic
}
