package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
)

// newLimiter builds the shared request rate limiter; zero means unlimited
func newLimiter(requestsPerMin float64) *rate.Limiter {
	if requestsPerMin <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerMin/60.0), 1)
}

// NewModelService builds the model service for the requested model name,
// choosing the provider from the name's prefix (or the configured default
// when the name carries no provider hint).
func NewModelService(ctx context.Context, cfg *common.Config, model string, logger arbor.ILogger) (interfaces.ModelService, error) {
	provider := DetectProvider(model, ProviderType(cfg.LLM.DefaultProvider))
	name := NormalizeModel(model)

	logger.Info().
		Str("provider", string(provider)).
		Str("model", name).
		Msg("Initializing model service")

	switch provider {
	case ProviderClaude:
		return NewClaudeService(cfg, name, logger)
	case ProviderGemini:
		return NewGeminiService(ctx, cfg, name, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
