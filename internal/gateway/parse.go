package gateway

import (
	"strings"

	"goalforge/internal/schema"
)

// stripMarkdownCodeFences removes markdown code fence wrapping from a
// string. Handles ```json, ```, and variations with language specifiers.
// Models occasionally wrap their JSON despite being told not to; this is
// an explicit accommodation, not an implicit string match in a parser.
func stripMarkdownCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "```") {
		firstNewline := strings.Index(trimmed, "\n")
		if firstNewline != -1 {
			lastFence := strings.LastIndex(trimmed, "```")
			if lastFence > firstNewline {
				content := trimmed[firstNewline+1 : lastFence]
				return strings.TrimSpace(content)
			}
		}
	}

	return trimmed
}

// parseCandidate turns the raw text payload of a model response into a
// RefinedGoal candidate. Any failure here is a ParseError: the transport
// succeeded but the model violated the output contract.
func parseCandidate(text string) (*schema.RefinedGoal, error) {
	cleaned := stripMarkdownCodeFences(text)
	if cleaned == "" {
		return nil, &ParseError{Reason: "model returned an empty text payload"}
	}

	goal, err := schema.Decode([]byte(cleaned))
	if err != nil {
		return nil, &ParseError{Reason: "model response is not valid refined-goal JSON", Err: err}
	}
	return goal, nil
}
