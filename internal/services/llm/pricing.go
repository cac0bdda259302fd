package llm

import "strings"

// modelPricing holds USD per one million tokens
type modelPricing struct {
	Prompt     float64
	Completion float64
}

// pricing by model-name prefix, longest match wins. Prices follow the
// providers' published per-token rates; unknown models fall back to a
// conservative default so cost totals never silently read zero.
var pricingTable = map[string]modelPricing{
	"claude-opus-4":    {15.00, 75.00},
	"claude-sonnet-4":  {3.00, 15.00},
	"claude-haiku-4":   {1.00, 5.00},
	"claude-3-5-haiku": {0.80, 4.00},
	"gemini-2.5-pro":   {1.25, 10.00},
	"gemini-2.5-flash": {0.30, 2.50},
	"gemini-2.0-flash": {0.10, 0.40},
	"gemini-1.5-pro":   {1.25, 5.00},
	"gemini-1.5-flash": {0.075, 0.30},
}

var defaultPricing = modelPricing{3.00, 15.00}

// EstimateCost returns the USD cost of one call given its token usage
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	p := lookupPricing(NormalizeModel(model))
	return float64(promptTokens)/1e6*p.Prompt + float64(completionTokens)/1e6*p.Completion
}

func lookupPricing(model string) modelPricing {
	model = strings.ToLower(model)

	best := ""
	for prefix := range pricingTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return defaultPricing
	}
	return pricingTable[best]
}
