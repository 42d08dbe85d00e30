// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// openAIBackend serves the openai/ and openrouter/ prefixes; OpenRouter
// speaks the same chat-completions dialect behind a different base URL.
type openAIBackend struct {
	client  *openai.Client
	name    string
	model   string
	cfg     types.ModelConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newOpenAIBackend(cfg types.ModelConfig, model, baseURL, keyEnv string, logger *zap.Logger) (*openAIBackend, error) {
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s is not set", keyEnv)
	}
	clientCfg := openai.DefaultConfig(key)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	return &openAIBackend{
		client:  openai.NewClientWithConfig(clientCfg),
		name:    cfg.Name,
		model:   model,
		cfg:     cfg,
		limiter: newLimiter(cfg.RequestsPerMinute),
		logger:  logger,
	}, nil
}

func (b *openAIBackend) Model() string { return b.name }

func (b *openAIBackend) Complete(ctx context.Context, req Request) (Response, error) {
	if err := waitLimiter(ctx, b.limiter); err != nil {
		return Response{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       b.model,
		Temperature: float32(b.cfg.Temperature),
		TopP:        float32(b.cfg.TopP),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.System != "" {
		chatReq.Messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
		}, chatReq.Messages...)
	}
	if b.cfg.MaxTokens > 0 {
		chatReq.MaxCompletionTokens = b.cfg.MaxTokens
	}
	if b.cfg.ReasoningEffort != types.EffortNone {
		chatReq.ReasoningEffort = string(b.cfg.ReasoningEffort)
	}

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, classifyOpenAIError(b.name, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("%s returned no choices", b.name)
	}
	b.logger.Debug("completion finished",
		zap.String("model", b.name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return Response{
		Text: resp.Choices[0].Message.Content,
		Usage: types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// classifyOpenAIError wraps rate limits, gateway errors, and timeouts as
// transient so the retry layer picks them up.
func classifyOpenAIError(model string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && transientStatus(apiErr.HTTPStatusCode) {
		return &types.TransientAPIError{Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && transientStatus(reqErr.HTTPStatusCode) {
		return &types.TransientAPIError{Status: reqErr.HTTPStatusCode, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.TransientAPIError{Err: err}
	}
	return fmt.Errorf("calling %s: %w", model, err)
}

func transientStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func waitLimiter(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limit: %w", err)
	}
	return nil
}
