package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit status", errors.New("googleapi: Error 429: Resource has been exhausted"), true},
		{"quota", errors.New("RESOURCE_EXHAUSTED: quota exceeded for model"), true},
		{"server error", errors.New("received 503 Service Unavailable"), true},
		{"overloaded", errors.New("anthropic: 529 overloaded_error"), true},
		{"timeout", errors.New("context deadline exceeded"), true},
		{"auth failure", errors.New("401 unauthorized: invalid api key"), false},
		{"bad request", errors.New("400 invalid_request_error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{"please retry", errors.New("429: Please retry in 21s"), 21 * time.Second},
		{"retry delay field", errors.New("quota exceeded, retryDelay: 30s"), 30 * time.Second},
		{"fractional seconds", errors.New("Please retry in 2.5s"), 2500 * time.Millisecond},
		{"no delay present", errors.New("503 service unavailable"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRetryDelay(tt.err); got != tt.want {
				t.Errorf("ExtractRetryDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	c := NewDefaultRetryConfig()

	if got := c.CalculateBackoff(0, 0); got != 15*time.Second {
		t.Errorf("attempt 0 backoff = %v, want 15s", got)
	}
	if got := c.CalculateBackoff(1, 0); got != 30*time.Second {
		t.Errorf("attempt 1 backoff = %v, want 30s", got)
	}

	// doubling is capped at MaxBackoff
	if got := c.CalculateBackoff(5, 0); got != c.MaxBackoff {
		t.Errorf("attempt 5 backoff = %v, want cap %v", got, c.MaxBackoff)
	}

	// an API-suggested delay replaces the initial backoff, plus margin
	if got := c.CalculateBackoff(0, 21*time.Second); got != 26*time.Second {
		t.Errorf("api delay backoff = %v, want 26s", got)
	}
}
