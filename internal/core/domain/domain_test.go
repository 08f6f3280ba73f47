package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID_ContentAddressed(t *testing.T) {
	a := DocumentID("model risk policy")
	b := DocumentID("model risk policy")
	c := DocumentID("ai governance policy")

	assert.Len(t, a, 12)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestChunk_HasSection(t *testing.T) {
	assert.False(t, Chunk{}.HasSection())
	assert.True(t, Chunk{Section: "Scope"}.HasSection())
}

func TestDocumentNameFilter(t *testing.T) {
	filter := DocumentNameFilter("mrm.md")

	assert.True(t, filter(SearchResult{Document: Document{Name: "mrm.md"}}))
	assert.False(t, filter(SearchResult{Document: Document{Name: "ai.md"}}))
}

func TestIndexStats_Ready(t *testing.T) {
	assert.False(t, NotInitializedStats().Ready())
	assert.True(t, IndexStats{Status: IndexStatusReady}.Ready())
}

func TestProcessRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, ProcessRequest{Query: "   "}.Validate(), ErrInvalidInput)
	assert.NoError(t, ProcessRequest{Query: "What is model risk?"}.Validate())
}

func TestRequestState_RiskIsMonotonic(t *testing.T) {
	state := NewRequestState("m", "s", "q", time.Now())
	assert.Equal(t, RiskLow, state.RiskLevel)

	state.AddViolations(Violation{Kind: ViolationToxic, Severity: RiskHigh})
	assert.Equal(t, RiskHigh, state.RiskLevel)

	state.AddViolations(Violation{Kind: ViolationBannedTopic, Severity: RiskMedium})
	assert.Equal(t, RiskHigh, state.RiskLevel)

	state.RaiseRisk(RiskLow)
	assert.Equal(t, RiskHigh, state.RiskLevel)

	state.RaiseRisk(RiskCritical)
	assert.Equal(t, RiskCritical, state.RiskLevel)
	assert.Len(t, state.Violations, 2)
}

func TestRequestState_EffectiveQuery(t *testing.T) {
	state := NewRequestState("m", "s", "raw", time.Now())
	assert.Equal(t, "raw", state.EffectiveQuery())

	state.SanitizedQuery = "clean"
	assert.Equal(t, "clean", state.EffectiveQuery())
}

func TestRequestState_Response(t *testing.T) {
	state := NewRequestState("m1", "s1", "q", time.Now())
	state.Traces = []StageTrace{{Stage: StageSanitize, Status: StageSuccess}}
	state.Err = errors.Join(ErrTimeout)

	withTraces := state.Response(true)
	withoutTraces := state.Response(false)

	assert.Len(t, withTraces.Traces, 1)
	assert.Nil(t, withoutTraces.Traces)
	assert.True(t, withTraces.TimedOut)
	assert.Equal(t, "m1", withTraces.MessageID)
	assert.Equal(t, "s1", withTraces.SessionID)
}

func TestAuditFilter_Normalize(t *testing.T) {
	assert.Equal(t, DefaultAuditLimit, AuditFilter{}.Normalize().Limit)
	assert.Equal(t, MaxAuditLimit, AuditFilter{Limit: 5000}.Normalize().Limit)
	assert.Equal(t, 10, AuditFilter{Limit: 10}.Normalize().Limit)
}

func TestAuditFilter_Matches(t *testing.T) {
	now := time.Now()
	high := RiskHigh
	record := AuditRecord{SessionID: "s1", RiskLevel: RiskMedium, Timestamp: now}

	assert.True(t, AuditFilter{}.Matches(record))
	assert.True(t, AuditFilter{SessionID: "s1"}.Matches(record))
	assert.False(t, AuditFilter{SessionID: "s2"}.Matches(record))
	assert.False(t, AuditFilter{MinRisk: &high}.Matches(record))
	assert.False(t, AuditFilter{Since: now.Add(time.Minute)}.Matches(record))
}

func TestAuditStats_Add(t *testing.T) {
	stats := NewAuditStats()
	stats.Add(AuditRecord{RiskLevel: RiskCritical, ViolationsCount: 2, PIIDetected: true, InjectionAttempted: true})
	stats.Add(AuditRecord{RiskLevel: RiskLow, TimedOut: true})

	assert.Equal(t, 2, stats.TotalRequests)
	assert.Equal(t, 1, stats.ByRiskLevel[RiskCritical])
	assert.Equal(t, 1, stats.ByRiskLevel[RiskLow])
	assert.Equal(t, 0, stats.ByRiskLevel[RiskHigh])
	assert.Equal(t, 1, stats.PIIDetected)
	assert.Equal(t, 1, stats.InjectionAttempted)
	assert.Equal(t, 1, stats.TimedOut)
	assert.Equal(t, 2, stats.TotalViolations)
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 500, s.Chunking.ChunkSize)
	assert.Equal(t, 50, s.Chunking.ChunkOverlap)
	assert.Equal(t, 5, s.Retrieval.K)
	assert.InDelta(t, 0.5, s.Retrieval.ScoreThreshold, 1e-9)
	assert.InDelta(t, 0.6, s.Retrieval.CitationMinScore, 1e-9)
	assert.Equal(t, 3000, s.Retrieval.MaxContextLength)
	assert.Equal(t, 30*time.Second, s.Pipeline.Timeout())
	assert.True(t, s.Guardrails.Enabled)
	assert.True(t, s.Embedding.IsConfigured())
	assert.True(t, s.LLM.IsConfigured())
}

func TestAIProvider(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderLocal.RequiresAPIKey())
	assert.True(t, AIProviderTemplate.IsLocal())
	assert.False(t, AIProvider("ollama").IsValid())

	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI, Dimensions: 384}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderLocal}.IsConfigured())
}
