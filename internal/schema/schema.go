// Package schema defines the refined-goal shape and its validator.
// The validator is the single source of truth for the output contract:
// the prompt builder's machine schema is generated from the same bounds,
// so the constraints sent to the model cannot drift from the ones
// enforced here.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Contract bounds for a refined goal.
const (
	MinKeyResults = 3
	MaxKeyResults = 5
	MinConfidence = 1
	MaxConfidence = 10
)

// RefinedGoal is the structured output of the refinement pipeline.
type RefinedGoal struct {
	RefinedGoal     string   `json:"refined_goal"`
	KeyResults      []string `json:"key_results"`
	ConfidenceScore int      `json:"confidence_score"`
}

// ValidationError carries every violated constraint, not just the first.
// Enumerating all violations matters for diagnosing model drift: a model
// that returns two key results AND a score of 0 should report both.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("refined goal failed validation: %s", strings.Join(e.Violations, "; "))
}

// Validate checks field presence and bounds on a decoded candidate.
// It is pure and total: any input yields either nil or a ValidationError
// listing all violations.
func Validate(g *RefinedGoal) error {
	var violations []string

	if g == nil {
		return &ValidationError{Violations: []string{"goal is nil"}}
	}

	if strings.TrimSpace(g.RefinedGoal) == "" {
		violations = append(violations, "refined_goal must be a non-empty string")
	}

	n := len(g.KeyResults)
	if n < MinKeyResults || n > MaxKeyResults {
		violations = append(violations, fmt.Sprintf("key_results must contain %d-%d items, got %d", MinKeyResults, MaxKeyResults, n))
	}
	for i, kr := range g.KeyResults {
		if strings.TrimSpace(kr) == "" {
			violations = append(violations, fmt.Sprintf("key_results[%d] must be a non-empty string", i))
		}
	}

	if g.ConfidenceScore < MinConfidence || g.ConfidenceScore > MaxConfidence {
		violations = append(violations, fmt.Sprintf("confidence_score must be between %d and %d, got %d", MinConfidence, MaxConfidence, g.ConfidenceScore))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Decode parses raw JSON bytes into a candidate RefinedGoal.
// A decode failure means the model ignored the requested output shape
// entirely; callers treat it as a contract violation, distinct from the
// bounds violations Validate reports.
func Decode(data []byte) (*RefinedGoal, error) {
	var g RefinedGoal
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode refined goal: %w", err)
	}
	return &g, nil
}

// Sentinel returns the uniform response used when no input was provided.
// It deliberately bypasses Validate: confidence 0 and an empty key_results
// list mark it as the no-op result without burning an API call.
func Sentinel() *RefinedGoal {
	return &RefinedGoal{
		RefinedGoal:     "No goal provided",
		KeyResults:      []string{},
		ConfidenceScore: 0,
	}
}
