package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"goalforge/internal/gateway"
	"goalforge/internal/prompt"
	"goalforge/internal/schema"
	"goalforge/internal/telemetry"
)

// =============================================================================
// MOCKS
// =============================================================================

type mockGateway struct {
	completion *gateway.Completion
	err        error
	calls      int
}

func (m *mockGateway) Refine(_ context.Context, _ prompt.Prompt) (*gateway.Completion, error) {
	m.calls++
	return m.completion, m.err
}

func (m *mockGateway) Model() string { return "gemini-2.0-flash" }

type recordingSink struct {
	records []*telemetry.Record
	err     error
}

func (s *recordingSink) Emit(_ context.Context, rec *telemetry.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func completionWithScore(score int) *gateway.Completion {
	return &gateway.Completion{
		Candidate: &schema.RefinedGoal{
			RefinedGoal: "Run a 10k race in under 55 minutes by October",
			KeyResults: []string{
				"Run three times a week starting now",
				"Complete a 5k under 27 minutes by July",
				"Finish a practice 10k by September",
			},
			ConfidenceScore: score,
		},
		Usage: gateway.TokenUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
	}
}

// =============================================================================
// SHORT-CIRCUIT PATH
// =============================================================================

func TestRefine_EmptyInputShortCircuits(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\n\t "} {
		gw := &mockGateway{}
		sink := &recordingSink{}
		p := New(gw, sink, nil)

		result, err := p.Refine(context.Background(), input)
		if err != nil {
			t.Fatalf("input %q: %v", input, err)
		}

		if result.Goal == nil || result.Goal.RefinedGoal != "No goal provided" {
			t.Errorf("input %q: expected sentinel goal, got %+v", input, result)
		}
		if result.Goal.ConfidenceScore != 0 || len(result.Goal.KeyResults) != 0 {
			t.Errorf("input %q: sentinel shape wrong: %+v", input, result.Goal)
		}
		if gw.calls != 0 {
			t.Errorf("input %q: gateway must not be invoked", input)
		}
		if len(sink.records) != 0 {
			t.Errorf("input %q: short-circuit must not emit telemetry", input)
		}
	}
}

// =============================================================================
// GUARDRAIL
// =============================================================================

func TestRefine_GuardrailBoundary(t *testing.T) {
	t.Parallel()

	// confidence 3 → rejected, confidence 4 → accepted.
	rejected, err := New(&mockGateway{completion: completionWithScore(3)}, nil, nil).
		Refine(context.Background(), "maybe do a thing?")
	if err != nil {
		t.Fatalf("score 3: %v", err)
	}
	if !rejected.Rejected() {
		t.Fatalf("score 3 should be rejected, got %+v", rejected)
	}
	if rejected.Error != RejectionMessage {
		t.Errorf("rejection message = %q, want %q", rejected.Error, RejectionMessage)
	}
	if rejected.Goal != nil {
		t.Error("rejection must carry no goal payload")
	}

	accepted, err := New(&mockGateway{completion: completionWithScore(4)}, nil, nil).
		Refine(context.Background(), "run a 10k")
	if err != nil {
		t.Fatalf("score 4: %v", err)
	}
	if accepted.Rejected() || accepted.Goal == nil {
		t.Fatalf("score 4 should be accepted, got %+v", accepted)
	}
}

func TestRefine_RejectionEmitsSuccessTelemetry(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := New(&mockGateway{completion: completionWithScore(2)}, sink, nil)

	if _, err := p.Refine(context.Background(), "asdf qwerty"); err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("records = %d, want exactly 1", len(sink.records))
	}
	rec := sink.records[0]
	if !rec.Success {
		t.Error("guardrail rejection is a successful call; telemetry success should be true")
	}
	if rec.TotalTokens != 200 {
		t.Errorf("token counts not recorded: %+v", rec)
	}
	if rec.TotalCostUSD <= 0 {
		t.Error("cost breakdown not recorded")
	}
}

// =============================================================================
// FAILURE PATHS
// =============================================================================

func TestRefine_GatewayFailure(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	gwErr := &gateway.TransportError{Err: errors.New("connection refused")}
	p := New(&mockGateway{err: gwErr}, sink, nil)

	_, err := p.Refine(context.Background(), "learn Go")
	if err == nil {
		t.Fatal("expected pipeline failure")
	}
	if !errors.As(err, new(*gateway.TransportError)) {
		t.Errorf("expected wrapped TransportError, got %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("records = %d, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Success {
		t.Error("failed call must record success=false")
	}
	if !strings.Contains(rec.ErrorMessage, "connection refused") {
		t.Errorf("error message not recorded: %q", rec.ErrorMessage)
	}
	if rec.OutputJSON != nil {
		t.Error("failed call must record null output")
	}
	if rec.Input != "learn Go" {
		t.Errorf("raw input not recorded: %q", rec.Input)
	}
}

func TestRefine_ContractViolation(t *testing.T) {
	t.Parallel()

	// Schema-valid JSON with only 2 key results: decodes fine, fails bounds.
	completion := &gateway.Completion{
		Candidate: &schema.RefinedGoal{
			RefinedGoal:     "Do the thing",
			KeyResults:      []string{"a", "b"},
			ConfidenceScore: 8,
		},
	}
	sink := &recordingSink{}
	p := New(&mockGateway{completion: completion}, sink, nil)

	_, err := p.Refine(context.Background(), "do the thing")
	if err == nil {
		t.Fatal("expected contract-violation failure")
	}

	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected wrapped ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "key_results must contain") {
		t.Errorf("failure should enumerate the violated constraint: %v", err)
	}

	if len(sink.records) != 1 || sink.records[0].Success {
		t.Fatalf("expected one success=false record, got %+v", sink.records)
	}
}

// =============================================================================
// TELEMETRY BEHAVIOR
// =============================================================================

func TestRefine_ExactlyOneRecordPerInvocation(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p := New(&mockGateway{completion: completionWithScore(9)}, sink, nil)

	for i := 0; i < 3; i++ {
		if _, err := p.Refine(context.Background(), "ship the feature"); err != nil {
			t.Fatalf("Refine: %v", err)
		}
	}
	if len(sink.records) != 3 {
		t.Fatalf("records = %d, want 3 (one per invocation)", len(sink.records))
	}
	for _, rec := range sink.records {
		if !rec.Success || rec.OutputJSON == nil {
			t.Errorf("accepted call record wrong: %+v", rec)
		}
	}
}

func TestRefine_SinkFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{err: errors.New("disk full")}
	p := New(&mockGateway{completion: completionWithScore(8)}, sink, nil)

	result, err := p.Refine(context.Background(), "learn Go")
	if err != nil {
		t.Fatalf("telemetry failure must not fail the operation: %v", err)
	}
	if result.Goal == nil {
		t.Fatal("expected accepted goal despite sink failure")
	}
}

func TestRefine_NilSink(t *testing.T) {
	t.Parallel()

	p := New(&mockGateway{completion: completionWithScore(8)}, nil, nil)
	if _, err := p.Refine(context.Background(), "learn Go"); err != nil {
		t.Fatalf("nil sink should be tolerated: %v", err)
	}
}

// =============================================================================
// ACCEPTED RESULTS HONOR THE CONTRACT
// =============================================================================

func TestRefine_AcceptedResultsAlwaysValid(t *testing.T) {
	t.Parallel()

	for score := GuardrailThreshold; score <= schema.MaxConfidence; score++ {
		p := New(&mockGateway{completion: completionWithScore(score)}, nil, nil)
		result, err := p.Refine(context.Background(), "train for a race")
		if err != nil {
			t.Fatalf("score %d: %v", score, err)
		}
		if err := schema.Validate(result.Goal); err != nil {
			t.Errorf("score %d: accepted goal failed validation: %v", score, err)
		}
	}
}
