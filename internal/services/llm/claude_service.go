package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/folium/internal/common"
	"github.com/ternarybob/folium/internal/interfaces"
	"github.com/ternarybob/folium/internal/models"
)

// -----------------------------------------------------------------------
// Claude vision service
// -----------------------------------------------------------------------

type ClaudeService struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	retry     *RetryConfig
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

var _ interfaces.ModelService = (*ClaudeService)(nil)

func NewClaudeService(cfg *common.Config, model string, logger arbor.ILogger) (*ClaudeService, error) {
	if cfg.Claude.APIKey == "" {
		return nil, fmt.Errorf("claude: api key not configured")
	}
	if model == "" {
		model = cfg.Claude.Model
	}

	retry := NewDefaultRetryConfig()
	retry.MaxRetries = cfg.LLM.MaxRetries

	return &ClaudeService{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.Claude.APIKey)),
		model:     model,
		maxTokens: cfg.Claude.MaxTokens,
		timeout:   cfg.LLM.TimeoutDuration(),
		retry:     retry,
		limiter:   newLimiter(cfg.LLM.RequestsPerMin),
		logger:    logger,
	}, nil
}

func (s *ClaudeService) Model() string { return s.model }

func (s *ClaudeService) Close() error { return nil }

func (s *ClaudeService) Invoke(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResult, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retry.CalculateBackoff(attempt-1, ExtractRetryDelay(lastErr))
			s.logger.Warn().
				Str("call_type", string(req.CallType)).
				Int("attempt", attempt).
				Str("delay", delay.String()).
				Msg("Retrying Claude call")
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

func (s *ClaudeService) invokeOnce(ctx context.Context, req *interfaces.ModelRequest) (*interfaces.ModelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		encoded := base64.StdEncoding.EncodeToString(img.Data)
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, encoded))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	usage := interfaces.ModelUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}
	usage.Cost = EstimateCost(s.model, usage.PromptTokens, usage.CompletionTokens)

	s.logger.Debug().
		Str("call_type", string(req.CallType)).
		Str("model", s.model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Str("duration", time.Since(start).Round(time.Millisecond).String()).
		Msg("Claude call complete")

	return &interfaces.ModelResult{
		Text:  text.String(),
		Model: s.model,
		Usage: usage,
	}, nil
}
