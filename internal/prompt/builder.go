// Package prompt builds the model instructions and response schema for
// goal refinement. Building is a pure function of the input text: no
// trimming, no side effects. The empty-input guard lives in the
// orchestrator, so the builder always works on verbatim text.
package prompt

import (
	"fmt"

	"goalforge/internal/schema"
)

// Prompt is the composite payload sent to the gateway: natural-language
// instructions plus a machine-readable schema so the model's structured
// output mode is constrained at the source.
type Prompt struct {
	System         string
	User           string
	ResponseSchema map[string]interface{}
}

const refineSystemPrompt = `You are a goal-refinement coach. The user gives you a free-text statement of intent.

Restate it as a SMART goal: Specific, Measurable, Achievable, Relevant, Time-bound.

Respond with a single JSON object containing:
- "refined_goal": the SMART restatement of the user's goal
- "key_results": an array of 3 to 5 measurable milestones supporting the goal
- "confidence_score": an integer from 1 to 10 rating how confident you are that the input was a genuine goal statement (1 = clearly not a goal, 10 = clearly a goal)

Respond with JSON only. No markdown, no code fences, no commentary.`

// BuildRefinement constructs the refinement prompt for the given input.
func BuildRefinement(input string) Prompt {
	return Prompt{
		System:         refineSystemPrompt,
		User:           fmt.Sprintf("Refine this goal statement:\n\n%s", input),
		ResponseSchema: RefinedGoalSchema(),
	}
}

// RefinedGoalSchema returns the Gemini response schema mirroring the
// validator's bounds. Generated from the schema package constants so the
// constraint sent to the model and the one enforced locally stay in sync.
func RefinedGoalSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"refined_goal": map[string]interface{}{
				"type": "string",
			},
			"key_results": map[string]interface{}{
				"type":     "array",
				"items":    map[string]interface{}{"type": "string"},
				"minItems": schema.MinKeyResults,
				"maxItems": schema.MaxKeyResults,
			},
			"confidence_score": map[string]interface{}{
				"type":    "integer",
				"minimum": schema.MinConfidence,
				"maximum": schema.MaxConfidence,
			},
		},
		"required": []string{"refined_goal", "key_results", "confidence_score"},
	}
}
