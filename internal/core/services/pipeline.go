package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
	"github.com/custodia-labs/riskpilot/internal/logger"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// Keywords escalating risk during Evaluate.
var (
	highRiskKeywords   = []string{"compliance", "violation", "breach", "penalty", "regulatory"}
	mediumRiskKeywords = []string{"validation", "audit", "review", "assessment"}
)

// traceQueryLength bounds queries copied into traces.
const traceQueryLength = 100

// stageResult is the outcome of one stage. A stage never returns an error
// to the orchestrator; failures are reported here and the request continues.
type stageResult struct {
	Status domain.StageStatus
	Err    error
	Input  map[string]any
	Output map[string]any
}

// requestRun is what stages operate on: the request and its owned state.
type requestRun struct {
	req   domain.ProcessRequest
	state *domain.RequestState
}

// stage is one step of the pipeline.
type stage struct {
	name domain.Stage

	// gated stages are skipped once the guard fires.
	gated bool

	run func(ctx context.Context, r *requestRun) stageResult

	// recover restores a usable state after the stage panicked. Optional.
	recover func(r *requestRun)
}

// PipelineService answers questions through the guarded pipeline:
// Sanitize, Retrieve, Evaluate, Generate, Validate and Audit, with a single
// guard after Sanitize that skips to Audit when the request is critical.
type PipelineService struct {
	guardrails *GuardrailService
	retrieval  driving.RetrievalService
	generator  driven.AnswerGenerator
	audit      driven.AuditSink

	topK             int
	maxContextLength int
	timeout          time.Duration

	stages []stage
}

// NewPipelineService creates the pipeline. The generator and audit sink are
// optional: without a generator every answer is the apology text, without a
// sink audit records are only logged.
func NewPipelineService(
	guardrails *GuardrailService,
	retrieval driving.RetrievalService,
	generator driven.AnswerGenerator,
	audit driven.AuditSink,
	settings domain.AppSettings,
) *PipelineService {
	p := &PipelineService{
		guardrails:       guardrails,
		retrieval:        retrieval,
		generator:        generator,
		audit:            audit,
		topK:             settings.Retrieval.K,
		maxContextLength: settings.Retrieval.MaxContextLength,
		timeout:          settings.Pipeline.Timeout(),
	}
	if p.topK <= 0 {
		p.topK = domain.DefaultTopK
	}
	if p.maxContextLength <= 0 {
		p.maxContextLength = domain.DefaultMaxContextLength
	}

	p.stages = []stage{
		{name: domain.StageSanitize, run: p.sanitize, recover: func(r *requestRun) {
			r.state.SanitizedQuery = r.state.Query
		}},
		{name: domain.StageRetrieve, gated: true, run: p.retrieve, recover: func(r *requestRun) {
			r.state.Context = ""
			r.state.Confidence = domain.ConfidenceNoContext
		}},
		{name: domain.StageEvaluate, gated: true, run: p.evaluate},
		{name: domain.StageGenerate, gated: true, run: p.generate, recover: func(r *requestRun) {
			r.state.Answer = domain.ApologyAnswer
		}},
		{name: domain.StageValidate, gated: true, run: p.validate},
		{name: domain.StageAudit, run: p.auditRecord},
	}
	return p
}

// SetTimeout overrides the per-request time budget.
func (p *PipelineService) SetTimeout(d time.Duration) {
	p.timeout = d
}

// Process runs the pipeline. Only a blank query is an error.
func (p *PipelineService) Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("process: query must not be blank: %w", err)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	state := domain.NewRequestState(uuid.NewString(), sessionID, req.Query, time.Now())
	run := &requestRun{req: req, state: state}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.process",
		attribute.String("message_id", state.MessageID),
		attribute.String("session_id", state.SessionID),
		attribute.Bool("guardrails", req.EnableGuardrails))

	logger.Section("Pipeline")
	logger.Debug("message %s, session %s", state.MessageID, state.SessionID)

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	blocked := false
	for _, st := range p.stages {
		if st.gated && blocked {
			p.observe(run, st.name, time.Now(), stageResult{
				Status: domain.StageSkipped,
				Output: map[string]any{"reason": "blocked by guardrails"},
			})
			continue
		}

		stageCtx := reqCtx
		if st.name == domain.StageAudit {
			// Audit outlives both the budget and caller cancellation.
			stageCtx = context.WithoutCancel(ctx)
		}
		p.runStage(stageCtx, st, run)

		if st.name == domain.StageSanitize && p.guard(state) {
			blocked = true
			state.Err = domain.ErrGuardrailBlock
			state.Answer = domain.BlockedAnswer
			state.Confidence = domain.ConfidenceBlocked
			logger.Warn("request blocked: %s", violationKinds(state.Violations))
		}
	}

	resp := state.Response(req.WantTraces)
	telemetry.RecordRequest(resp.RiskLevel.String(), outcome(state), state.ProcessingTime)
	telemetry.EndSpan(span, designedOutcomeFree(state.Err))
	return resp, nil
}

// guard reports whether the remaining stages must be skipped.
func (p *PipelineService) guard(state *domain.RequestState) bool {
	return state.RiskLevel == domain.RiskCritical
}

// runStage executes one stage, containing panics, and records its outcome.
func (p *PipelineService) runStage(ctx context.Context, st stage, run *requestRun) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+string(st.name))

	res := func() (res stageResult) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Warn("stage %s panicked: %v", st.name, rec)
				if st.recover != nil {
					st.recover(run)
				}
				res = stageResult{
					Status: domain.StageFailure,
					Err:    fmt.Errorf("stage %s panicked: %v", st.name, rec),
				}
			}
		}()
		return st.run(ctx, run)
	}()

	telemetry.EndSpan(span, res.Err)
	p.observe(run, st.name, start, res)
}

// observe records metrics and, when requested, a trace. It never changes
// the state beyond appending the trace.
func (p *PipelineService) observe(run *requestRun, name domain.Stage, start time.Time, res stageResult) {
	d := time.Since(start)
	telemetry.RecordStage(string(name), string(res.Status), d)
	if res.Err != nil && res.Status != domain.StageSuccess {
		logger.Debug("stage %s %s: %v", name, res.Status, res.Err)
	}
	if !run.req.WantTraces {
		return
	}

	trace := domain.StageTrace{
		Stage:     name,
		Timestamp: start,
		Input:     res.Input,
		Output:    res.Output,
		Duration:  d,
		Status:    res.Status,
	}
	if res.Err != nil {
		trace.Error = res.Err.Error()
	}
	run.state.Traces = append(run.state.Traces, trace)
}

func (p *PipelineService) sanitize(_ context.Context, r *requestRun) stageResult {
	state := r.state
	input := map[string]any{"query": truncateRunes(state.Query, traceQueryLength)}

	if !r.req.EnableGuardrails {
		state.SanitizedQuery = state.Query
		return stageResult{
			Status: domain.StageSuccess,
			Input:  input,
			Output: map[string]any{"sanitized": false, "violations": 0},
		}
	}

	sanitized, violations := p.guardrails.SanitizeInput(state.Query)
	state.SanitizedQuery = sanitized
	state.AddViolations(violations...)
	state.RaiseRisk(p.guardrails.CalculateRiskLevel(violations))

	return stageResult{
		Status: domain.StageSuccess,
		Input:  input,
		Output: map[string]any{
			"sanitized":  sanitized != state.Query,
			"violations": len(violations),
			"risk_level": state.RiskLevel.String(),
		},
	}
}

func (p *PipelineService) retrieve(ctx context.Context, r *requestRun) stageResult {
	state := r.state
	query := state.EffectiveQuery()
	input := map[string]any{"query": truncateRunes(query, traceQueryLength)}

	if err := ctx.Err(); err != nil {
		state.Confidence = domain.ConfidenceNoContext
		return p.interrupted(state, err, input)
	}

	rc := p.retrieval.ContextForLLM(ctx, query, domain.RetrieveOptions{
		K:              p.topK,
		FilterDocument: r.req.FilterDocument,
	}, p.maxContextLength)

	state.Context = rc.Context
	state.Citations = rc.Citations
	state.Sources = rc.Sources
	if state.Citations == nil {
		state.Citations = []domain.Citation{}
	}
	if rc.IsEmpty() {
		state.Confidence = domain.ConfidenceNoContext
	} else {
		state.Confidence = domain.ConfidenceWithContext
	}

	output := map[string]any{
		"found_context":   !rc.IsEmpty(),
		"citations_count": len(state.Citations),
	}
	if err := ctx.Err(); err != nil {
		res := p.interrupted(state, err, input)
		res.Output = output
		return res
	}
	return stageResult{Status: domain.StageSuccess, Input: input, Output: output}
}

func (p *PipelineService) evaluate(_ context.Context, r *requestRun) stageResult {
	state := r.state
	before := state.RiskLevel
	query := strings.ToLower(state.Query)

	if containsAny(query, highRiskKeywords) {
		state.RaiseRisk(domain.RiskHigh)
	}
	if containsAny(query, mediumRiskKeywords) {
		state.RaiseRisk(domain.RiskMedium)
	}

	return stageResult{
		Status: domain.StageSuccess,
		Input:  map[string]any{"current_risk": before.String()},
		Output: map[string]any{"evaluated_risk": state.RiskLevel.String()},
	}
}

func (p *PipelineService) generate(ctx context.Context, r *requestRun) stageResult {
	state := r.state
	hasContext := state.Context != ""
	input := map[string]any{"has_context": hasContext}

	if err := ctx.Err(); err != nil {
		state.Answer = domain.ApologyAnswer
		return p.interrupted(state, err, input)
	}
	if p.generator == nil {
		state.Answer = domain.ApologyAnswer
		return stageResult{Status: domain.StageDegraded, Err: domain.ErrLLMUnavailable, Input: input}
	}

	var (
		answer string
		err    error
	)
	query := state.EffectiveQuery()
	if hasContext {
		answer, err = p.generator.GenerateWithContext(ctx, query, state.Context, state.Citations)
	} else {
		answer, err = p.generator.GenerateFallback(ctx, query)
	}

	if err != nil {
		state.Answer = domain.ApologyAnswer
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, domain.ErrTimeout) {
			if ctxErr == nil {
				ctxErr = context.DeadlineExceeded
			}
			return p.interrupted(state, ctxErr, input)
		}
		return stageResult{
			Status: domain.StageDegraded,
			Err:    fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err),
			Input:  input,
		}
	}

	state.Answer = answer
	return stageResult{
		Status: domain.StageSuccess,
		Input:  input,
		Output: map[string]any{"response_length": len([]rune(answer))},
	}
}

func (p *PipelineService) validate(_ context.Context, r *requestRun) stageResult {
	state := r.state
	input := map[string]any{"response_length": len([]rune(state.Answer))}

	if !r.req.EnableGuardrails || state.Answer == "" {
		return stageResult{
			Status: domain.StageSuccess,
			Input:  input,
			Output: map[string]any{"validated": false, "blocked": false},
		}
	}

	violations := p.guardrails.ValidateOutput(state.Answer)
	state.AddViolations(violations...)

	withheld := p.guardrails.CalculateRiskLevel(violations) == domain.RiskCritical
	if withheld {
		state.Answer = domain.WithheldAnswer
		state.RaiseRisk(domain.RiskCritical)
		state.Err = domain.ErrGuardrailBlock
	}

	return stageResult{
		Status: domain.StageSuccess,
		Input:  input,
		Output: map[string]any{"validated": true, "blocked": withheld, "violations": len(violations)},
	}
}

func (p *PipelineService) auditRecord(ctx context.Context, r *requestRun) stageResult {
	state := r.state
	state.ProcessingTime = time.Since(state.StartedAt)

	record := p.guardrails.AuditEntry(state.Query, state.Answer, state.Violations, state.RiskLevel)
	record.ID = uuid.NewString()
	record.SessionID = state.SessionID
	record.MessageID = state.MessageID
	record.Timestamp = state.StartedAt
	record.TimedOut = errors.Is(state.Err, domain.ErrTimeout)
	record.ProcessingTime = state.ProcessingTime

	logger.Event("audit_log",
		"session_id", record.SessionID,
		"message_id", record.MessageID,
		"risk_level", record.RiskLevel,
		"input_length", record.InputLength,
		"output_length", record.OutputLength,
		"violations_count", record.ViolationsCount,
		"violation_types", strings.Join(record.ViolationTypes, ","),
		"pii_detected", record.PIIDetected,
		"injection_attempted", record.InjectionAttempted,
		"timed_out", record.TimedOut,
		"processing_time", record.ProcessingTime)

	input := map[string]any{"risk_level": state.RiskLevel.String()}
	if p.audit == nil {
		return stageResult{
			Status: domain.StageSuccess,
			Input:  input,
			Output: map[string]any{"logged": true, "stored": false, "total_time_ms": state.ProcessingTime.Milliseconds()},
		}
	}

	if err := p.audit.Record(ctx, record); err != nil {
		telemetry.RecordAuditFailure()
		logger.Warn("audit record %s not stored: %v", record.ID, err)
		return stageResult{
			Status: domain.StageFailure,
			Err:    fmt.Errorf("%w: %v", domain.ErrAuditFailed, err),
			Input:  input,
			Output: map[string]any{"logged": true, "stored": false},
		}
	}

	return stageResult{
		Status: domain.StageSuccess,
		Input:  input,
		Output: map[string]any{"logged": true, "stored": true, "total_time_ms": state.ProcessingTime.Milliseconds()},
	}
}

// interrupted records an exhausted budget or cancelled request on the state
// and reports the stage as degraded.
func (p *PipelineService) interrupted(state *domain.RequestState, err error, input map[string]any) stageResult {
	if errors.Is(err, context.DeadlineExceeded) {
		err = domain.ErrTimeout
	}
	if state.Err == nil {
		state.Err = err
	}
	return stageResult{Status: domain.StageDegraded, Err: err, Input: input}
}

// outcome labels a finished request for metrics.
func outcome(state *domain.RequestState) string {
	switch {
	case errors.Is(state.Err, domain.ErrTimeout):
		return "timeout"
	case state.Answer == domain.BlockedAnswer:
		return "blocked"
	case state.Answer == domain.WithheldAnswer:
		return "withheld"
	default:
		return "answered"
	}
}

// designedOutcomeFree drops errors that are designed outcomes rather than failures.
func designedOutcomeFree(err error) error {
	if errors.Is(err, domain.ErrGuardrailBlock) {
		return nil
	}
	return err
}

func violationKinds(violations []domain.Violation) string {
	kinds := make([]string, 0, len(violations))
	for _, v := range violations {
		kinds = append(kinds, string(v.Kind))
	}
	return strings.Join(kinds, ",")
}
