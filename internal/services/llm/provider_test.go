package llm

import "testing"

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name            string
		model           string
		defaultProvider ProviderType
		want            ProviderType
	}{
		{"claude bare name", "claude-sonnet-4-20250514", ProviderGemini, ProviderClaude},
		{"claude prefix", "claude/claude-sonnet-4-20250514", ProviderGemini, ProviderClaude},
		{"anthropic prefix", "anthropic/claude-opus-4", ProviderGemini, ProviderClaude},
		{"gemini bare name", "gemini-2.5-flash", ProviderClaude, ProviderGemini},
		{"gemini prefix", "gemini/gemini-2.5-pro", ProviderClaude, ProviderGemini},
		{"google prefix", "google/gemini-2.0-flash", ProviderClaude, ProviderGemini},
		{"empty uses default", "", ProviderClaude, ProviderClaude},
		{"unknown uses default", "mistral-large", ProviderGemini, ProviderGemini},
		{"mixed case", "Claude-Sonnet-4", ProviderGemini, ProviderClaude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectProvider(tt.model, tt.defaultProvider)
			if got != tt.want {
				t.Errorf("DetectProvider(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"claude/claude-sonnet-4", "claude-sonnet-4"},
		{"gemini/gemini-2.5-flash", "gemini-2.5-flash"},
		{"anthropic/claude-opus-4", "claude-opus-4"},
		{"claude-sonnet-4", "claude-sonnet-4"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeModel(tt.model); got != tt.want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}
