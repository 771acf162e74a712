// Package telemetry records one immutable Record per pipeline invocation
// and persists them to a sqlite log that the usage command and dashboard
// query back.
package telemetry

import (
	"context"
	"encoding/json"
	"time"
)

// Record captures the outcome of one refinement call. Created once per
// invocation and never mutated after emission.
type Record struct {
	ID               string     `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	Model            string     `json:"model"`
	Success          bool       `json:"success"`
	LatencyMS        int64      `json:"latency_ms"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	TotalTokens      int        `json:"total_tokens"`
	InputCostUSD     float64    `json:"input_cost_usd"`
	OutputCostUSD    float64    `json:"output_cost_usd"`
	TotalCostUSD     float64    `json:"total_cost_usd"`
	Input            string     `json:"input"`
	OutputJSON       json.RawMessage `json:"output,omitempty"` // serialized RefinedGoal, nil on failure
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// Sink accepts one record per invocation. The pipeline never reads the
// sink back; querying is a separate concern on the Store.
type Sink interface {
	Emit(ctx context.Context, rec *Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, rec *Record) error

func (f SinkFunc) Emit(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}
