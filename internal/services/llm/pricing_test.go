package llm

import (
	"math"
	"testing"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		want             float64
	}{
		{"sonnet", "claude-sonnet-4-20250514", 1_000_000, 1_000_000, 18.00},
		{"flash", "gemini-2.5-flash", 1_000_000, 0, 0.30},
		{"prefixed model name", "gemini/gemini-2.5-flash", 1_000_000, 0, 0.30},
		{"longest prefix wins over 1.5-flash", "gemini-1.5-flash-8b", 1_000_000, 0, 0.075},
		{"unknown model uses fallback", "mystery-model", 1_000_000, 1_000_000, 18.00},
		{"zero tokens", "claude-opus-4", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.model, tt.promptTokens, tt.completionTokens)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EstimateCost(%q, %d, %d) = %g, want %g",
					tt.model, tt.promptTokens, tt.completionTokens, got, tt.want)
			}
		})
	}
}

func TestEstimateCostScalesLinearly(t *testing.T) {
	one := EstimateCost("gemini-2.5-pro", 1000, 500)
	ten := EstimateCost("gemini-2.5-pro", 10_000, 5000)
	if math.Abs(ten-one*10) > 1e-9 {
		t.Errorf("cost does not scale with tokens: %g vs %g", ten, one*10)
	}
}
