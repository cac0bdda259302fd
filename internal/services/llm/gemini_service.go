package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// -----------------------------------------------------------------------
// Gemini vision service
// -----------------------------------------------------------------------

type GeminiService struct {
	client    *genai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	retry     *RetryConfig
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

var _ interfaces.ModelService = (*GeminiService)(nil)

func NewGeminiService(ctx context.Context, cfg *common.Config, model string, logger arbor.ILogger) (*GeminiService, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key not configured")
	}
	if model == "" {
		model = cfg.Gemini.Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	retry := NewDefaultRetryConfig()
	retry.MaxRetries = cfg.LLM.MaxRetries

	return &GeminiService{
		client:    client,
		model:     model,
		maxTokens: cfg.Gemini.MaxTokens,
		timeout:   cfg.LLM.TimeoutDuration(),
		retry:     retry,
		limiter:   newLimiter(cfg.LLM.RequestsPerMin),
		logger:    logger,
	}, nil
}

func (s *GeminiService) Model() string { return s.model }

func (s *GeminiService) Close() error { return nil }

func (s *GeminiService) Invoke(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResult, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retry.CalculateBackoff(attempt-1, ExtractRetryDelay(lastErr))
			s.logger.Warn().
				Str("call_type", string(req.CallType)).
				Int("attempt", attempt).
				Str("delay", delay.String()).
				Msg("Retrying Gemini call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, err := s.invokeOnce(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsTransientError(err) {
			break
		}
	}

	return nil, &models.ModelCallError{CallType: string(req.CallType), Model: s.model, Err: lastErr}
}

func (s *GeminiService) invokeOnce(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}

	usage := interfaces.ModelUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	usage.Cost = EstimateCost(s.model, usage.PromptTokens, usage.CompletionTokens)

	s.logger.Debug().
		Str("call_type", string(req.CallType)).
		Str("model", s.model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Str("duration", time.Since(start).Round(time.Millisecond).String()).
		Msg("Gemini call complete")

	return &interfaces.ModelResult{
		Text:  text.String(),
		Model: s.model,
		Usage: usage,
	}, nil
}
