package telemetry

import "strings"

// Pricing is USD per one million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Published Gemini API prices. Unknown models fall back to the flash rate
// so cost columns never silently read zero.
var modelPricing = map[string]Pricing{
	"gemini-2.0-flash":      {InputPerMTok: 0.10, OutputPerMTok: 0.40},
	"gemini-2.0-flash-lite": {InputPerMTok: 0.075, OutputPerMTok: 0.30},
	"gemini-1.5-flash":      {InputPerMTok: 0.075, OutputPerMTok: 0.30},
	"gemini-1.5-pro":        {InputPerMTok: 1.25, OutputPerMTok: 5.00},
}

var defaultPricing = Pricing{InputPerMTok: 0.10, OutputPerMTok: 0.40}

// PricingFor returns the pricing for a model identifier, matching on
// prefix so versioned names like gemini-2.0-flash-001 resolve.
func PricingFor(model string) Pricing {
	if p, ok := modelPricing[model]; ok {
		return p
	}
	for name, p := range modelPricing {
		if strings.HasPrefix(model, name) {
			return p
		}
	}
	return defaultPricing
}

// EstimateCost computes the cost breakdown for a call.
func EstimateCost(model string, promptTokens, completionTokens int) (input, output, total float64) {
	p := PricingFor(model)
	input = float64(promptTokens) / 1e6 * p.InputPerMTok
	output = float64(completionTokens) / 1e6 * p.OutputPerMTok
	return input, output, input + output
}
