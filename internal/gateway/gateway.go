// Package gateway performs the single logical "refine" call against the
// Gemini generateContent API. It masks transient transport failures with
// a bounded, fixed-backoff retry and normalizes all failures into two
// typed channels: TransportError (infrastructure, retryable) and
// ParseError (model contract violation, never retried).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"goalforge/internal/prompt"
	"goalforge/internal/schema"
)

// Config holds explicit gateway configuration. The credential is passed
// in here rather than read from process-wide state so tests can
// substitute it freely.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	AttemptTimeout  time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// DefaultConfig returns sensible defaults for the given API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.0-flash",
		AttemptTimeout:  60 * time.Second,
		MaxAttempts:     3,
		RetryBackoff:    4 * time.Second,
		Temperature:     0.2,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// Client calls the Gemini API with retry. Safe for concurrent use; each
// invocation is independent and holds no shared mutable state.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zap.Logger
}

// New creates a gateway client. A missing API key is a fatal
// configuration error raised here, before any network attempt.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	def := DefaultConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = def.MaxOutputTokens
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.AttemptTimeout,
		},
		retry: RetryPolicy{
			Attempts: cfg.MaxAttempts,
			Backoff:  cfg.RetryBackoff,
		},
		logger: logger,
	}, nil
}

// SetSleep overrides the retry sleep function. Used by tests to avoid
// real backoff waits.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.retry.Sleep = sleep
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// TokenUsage holds token counts for one call. Counts come from the
// response usageMetadata when present, otherwise a rough length/4
// estimate.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the normalized result of one successful refine call.
type Completion struct {
	Candidate *schema.RefinedGoal
	RawText   string
	Usage     TokenUsage
}

// geminiRequest mirrors the generateContent request body.
type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64                `json:"temperature"`
	TopK             int                    `json:"topK,omitempty"`
	TopP             float64                `json:"topP,omitempty"`
	MaxOutputTokens  int                    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                 `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]interface{} `json:"response_schema,omitempty"`
}

// geminiResponse mirrors the generateContent response envelope.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Refine sends the prompt and returns the parsed candidate. Transport
// failures are retried per the configured policy; parse failures surface
// immediately as the model's fault, not the network's.
func (c *Client) Refine(ctx context.Context, p prompt.Prompt) (*Completion, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: p.User}},
			},
		},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: p.System}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      c.cfg.Temperature,
			TopK:             c.cfg.TopK,
			TopP:             c.cfg.TopP,
			MaxOutputTokens:  c.cfg.MaxOutputTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   p.ResponseSchema,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	var completion *Completion
	attempt := 0
	err = c.retry.Do(ctx, func() error {
		attempt++
		result, attemptErr := c.doAttempt(ctx, url, jsonData)
		if attemptErr != nil {
			c.logger.Warn("refine attempt failed",
				zap.Int("attempt", attempt),
				zap.String("model", c.cfg.Model),
				zap.Error(attemptErr))
			return attemptErr
		}
		completion = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// doAttempt performs one HTTP round trip under a per-attempt deadline.
// Without the explicit deadline a hung attempt would stall the entire
// retry budget.
func (c *Client) doAttempt(ctx context.Context, url string, body []byte) (*Completion, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("API request failed: %s", truncate(string(respBody), 512)),
		}
	}

	var envelope geminiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &ParseError{Reason: "failed to decode response envelope", Err: err}
	}
	if envelope.Error != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("API error: %s", envelope.Error.Message)}
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return nil, &ParseError{Reason: "response contains no candidates"}
	}

	text := envelope.Candidates[0].Content.Parts[0].Text
	candidate, err := parseCandidate(text)
	if err != nil {
		return nil, err
	}

	usage := TokenUsage{
		PromptTokens:     envelope.UsageMetadata.PromptTokenCount,
		CompletionTokens: envelope.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      envelope.UsageMetadata.TotalTokenCount,
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = len(body) / 4
		usage.CompletionTokens = len(text) / 4
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return &Completion{
		Candidate: candidate,
		RawText:   text,
		Usage:     usage,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
