// Package refine sequences the goal-refinement pipeline: input guard,
// prompt construction, gateway call, output validation, confidence
// guardrail, and telemetry emission.
package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"goalforge/internal/gateway"
	"goalforge/internal/prompt"
	"goalforge/internal/schema"
	"goalforge/internal/telemetry"
)

// GuardrailThreshold is the minimum confidence score accepted as a
// genuine goal. Stricter than the schema's own minimum of 1: scores 1-3
// are schema-valid but rejected as business-logic negatives.
const GuardrailThreshold = 4

// RejectionMessage is the fixed guardrail rejection text.
const RejectionMessage = "Input does not appear to be a valid goal."

// Gateway is the slice of the AI gateway the orchestrator needs.
type Gateway interface {
	Refine(ctx context.Context, p prompt.Prompt) (*gateway.Completion, error)
	Model() string
}

// Result is the caller-facing outcome. Exactly one of Goal or Error is
// set: a valid goal means Accepted, a bare Error means the guardrail
// rejected the input. Pipeline failures are returned as Go errors, never
// as a partially populated Result.
type Result struct {
	Goal  *schema.RefinedGoal `json:"goal,omitempty"`
	Error string              `json:"error,omitempty"`
}

// Rejected reports whether the guardrail turned the input away.
func (r *Result) Rejected() bool {
	return r != nil && r.Goal == nil && r.Error != ""
}

// Pipeline is the refinement orchestrator. Each Refine invocation is
// independent; instances are safe for concurrent use.
type Pipeline struct {
	gw     Gateway
	sink   telemetry.Sink
	logger *zap.Logger
}

// New creates a pipeline. A nil sink disables telemetry; a nil logger
// falls back to a no-op.
func New(gw Gateway, sink telemetry.Sink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		gw:     gw,
		sink:   sink,
		logger: logger,
	}
}

// Refine runs the full pipeline on one input.
//
// Empty or whitespace-only input short-circuits to the sentinel result
// without calling the model and without a telemetry record. Every other
// invocation emits exactly one record, success=true when a usable result
// was obtained (accepted or rejected), success=false on failure.
func (p *Pipeline) Refine(ctx context.Context, input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		p.logger.Debug("empty input, returning sentinel without model call")
		return &Result{Goal: schema.Sentinel()}, nil
	}

	start := time.Now()
	completion, err := p.gw.Refine(ctx, prompt.BuildRefinement(input))
	latency := time.Since(start).Milliseconds()

	if err != nil {
		p.emit(ctx, input, latency, nil, nil, err)
		return nil, fmt.Errorf("refinement call failed: %w", err)
	}

	if err := schema.Validate(completion.Candidate); err != nil {
		// Contract violation by the model, not a legitimate low-confidence
		// input. Distinct from the guardrail rejection below.
		p.emit(ctx, input, latency, &completion.Usage, nil, err)
		return nil, fmt.Errorf("model output violated contract: %w", err)
	}

	goal := completion.Candidate

	if goal.ConfidenceScore < GuardrailThreshold {
		p.logger.Info("guardrail rejected input",
			zap.Int("confidence", goal.ConfidenceScore),
			zap.Int("threshold", GuardrailThreshold))
		// The call itself succeeded; telemetry records it as a success.
		p.emit(ctx, input, latency, &completion.Usage, goal, nil)
		return &Result{Error: RejectionMessage}, nil
	}

	p.emit(ctx, input, latency, &completion.Usage, goal, nil)
	return &Result{Goal: goal}, nil
}

// emit writes one telemetry record. A sink failure is logged and
// swallowed: observability plumbing must not take down the primary
// operation.
func (p *Pipeline) emit(ctx context.Context, input string, latencyMS int64, usage *gateway.TokenUsage, goal *schema.RefinedGoal, callErr error) {
	if p.sink == nil {
		return
	}

	rec := &telemetry.Record{
		Timestamp: time.Now().UTC(),
		Model:     p.gw.Model(),
		Success:   callErr == nil,
		LatencyMS: latencyMS,
		Input:     input,
	}
	if usage != nil {
		rec.PromptTokens = usage.PromptTokens
		rec.CompletionTokens = usage.CompletionTokens
		rec.TotalTokens = usage.TotalTokens
		rec.InputCostUSD, rec.OutputCostUSD, rec.TotalCostUSD =
			telemetry.EstimateCost(rec.Model, usage.PromptTokens, usage.CompletionTokens)
	}
	if goal != nil {
		if data, err := json.Marshal(goal); err == nil {
			rec.OutputJSON = data
		}
	}
	if callErr != nil {
		rec.ErrorMessage = callErr.Error()
	}

	if err := p.sink.Emit(ctx, rec); err != nil {
		p.logger.Warn("telemetry emission failed", zap.Error(err))
	}
}
