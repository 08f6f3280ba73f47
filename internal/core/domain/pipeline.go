package domain

import (
	"errors"
	"strings"
	"time"
)

// Canned answers substituted by the pipeline.
const (
	// BlockedAnswer replaces the answer when the input is blocked.
	BlockedAnswer = "Your request contains content that violates our safety guidelines."

	// WithheldAnswer replaces an answer that failed output validation.
	WithheldAnswer = "I cannot provide this response as it may contain sensitive information."

	// ApologyAnswer replaces the answer when generation fails.
	ApologyAnswer = "I apologize, but I encountered an error processing your request. Please try again."
)

// Pipeline confidence values.
const (
	ConfidenceBlocked     = 1.0
	ConfidenceWithContext = 0.85
	ConfidenceNoContext   = 0.3
)

// DefaultRequestTimeout is the per-request time budget.
const DefaultRequestTimeout = 30 * time.Second

// Stage names a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StageSanitize Stage = "sanitizer"
	StageRetrieve Stage = "retriever"
	StageEvaluate Stage = "risk_evaluator"
	StageGenerate Stage = "generator"
	StageValidate Stage = "validator"
	StageAudit    Stage = "audit"
)

// StageStatus is the outcome of a single stage.
type StageStatus string

// Stage outcomes.
const (
	StageSuccess  StageStatus = "success"
	StageDegraded StageStatus = "degraded"
	StageSkipped  StageStatus = "skipped"
	StageFailure  StageStatus = "failure"
)

// StageTrace is an observational record of one stage execution.
// Traces never influence the pipeline outcome.
type StageTrace struct {
	Stage     Stage          `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Status    StageStatus    `json:"status"`
	Error     string         `json:"error,omitempty"`
}

// ProcessRequest is the input of the guarded pipeline.
type ProcessRequest struct {
	// Query is the user question. It must not be blank.
	Query string

	// SessionID groups requests from one conversation.
	// A new session is started when empty.
	SessionID string

	// EnableGuardrails turns input sanitization and output validation on.
	EnableGuardrails bool

	// WantTraces requests per-stage traces in the response.
	WantTraces bool

	// FilterDocument restricts retrieval to a single document name.
	FilterDocument string
}

// Validate checks the request.
func (r ProcessRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrInvalidInput
	}
	return nil
}

// ProcessResponse is the result of the guarded pipeline.
type ProcessResponse struct {
	MessageID      string        `json:"message_id"`
	SessionID      string        `json:"session_id"`
	Question       string        `json:"question"`
	Answer         string        `json:"answer"`
	RiskLevel      RiskLevel     `json:"risk_level"`
	Confidence     float64       `json:"confidence"`
	Citations      []Citation    `json:"citations"`
	Violations     []Violation   `json:"guardrail_violations"`
	Traces         []StageTrace  `json:"agent_traces,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	Timestamp      time.Time     `json:"timestamp"`
	TimedOut       bool          `json:"timed_out,omitempty"`
}

// Blocked reports whether the request was refused at input or output.
func (r ProcessResponse) Blocked() bool {
	return r.RiskLevel == RiskCritical
}

// RequestState is the mutable state of a single request.
// It is owned by one request and never shared.
type RequestState struct {
	MessageID      string
	SessionID      string
	Query          string
	SanitizedQuery string
	Violations     []Violation
	RiskLevel      RiskLevel
	Context        string
	Citations      []Citation
	Sources        []string
	Answer         string
	Confidence     float64
	Traces         []StageTrace
	StartedAt      time.Time
	ProcessingTime time.Duration

	// Err records a designed failure outcome such as ErrGuardrailBlock or ErrTimeout.
	Err error
}

// NewRequestState returns the initial state for a request.
func NewRequestState(messageID, sessionID, query string, now time.Time) *RequestState {
	return &RequestState{
		MessageID:  messageID,
		SessionID:  sessionID,
		Query:      query,
		RiskLevel:  RiskLow,
		Violations: []Violation{},
		Citations:  []Citation{},
		StartedAt:  now,
	}
}

// AddViolations appends violations and raises the risk level to their maximum severity.
// The risk level never decreases.
func (s *RequestState) AddViolations(violations ...Violation) {
	for _, v := range violations {
		s.Violations = append(s.Violations, v)
		s.RiskLevel = s.RiskLevel.Max(v.Severity)
	}
}

// RaiseRisk merges level into the current risk level.
func (s *RequestState) RaiseRisk(level RiskLevel) {
	s.RiskLevel = s.RiskLevel.Max(level)
}

// EffectiveQuery returns the sanitized query when present, otherwise the raw query.
func (s *RequestState) EffectiveQuery() string {
	if s.SanitizedQuery != "" {
		return s.SanitizedQuery
	}
	return s.Query
}

// Response converts the final state into a response.
func (s *RequestState) Response(withTraces bool) *ProcessResponse {
	resp := &ProcessResponse{
		MessageID:      s.MessageID,
		SessionID:      s.SessionID,
		Question:       s.Query,
		Answer:         s.Answer,
		RiskLevel:      s.RiskLevel,
		Confidence:     s.Confidence,
		Citations:      s.Citations,
		Violations:     s.Violations,
		ProcessingTime: s.ProcessingTime,
		Timestamp:      s.StartedAt,
		TimedOut:       errors.Is(s.Err, ErrTimeout),
	}
	if withTraces {
		resp.Traces = s.Traces
	}
	return resp
}
