// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Default completion budget when the config leaves MaxTokens unset. The
// Messages API requires an explicit value.
const anthropicDefaultMaxTokens = 8192

// Thinking budgets for the three reasoning efforts.
var anthropicThinkingBudget = map[types.ReasoningEffort]int64{
	types.EffortLow:    1024,
	types.EffortMedium: 4096,
	types.EffortHigh:   16384,
}

type anthropicBackend struct {
	client  anthropic.Client
	name    string
	model   string
	cfg     types.ModelConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newAnthropicBackend(cfg types.ModelConfig, model string, logger *zap.Logger) (*anthropicBackend, error) {
	key := os.Getenv(envAnthropicKey)
	if key == "" {
		return nil, fmt.Errorf("%s is not set", envAnthropicKey)
	}
	return &anthropicBackend{
		client:  anthropic.NewClient(option.WithAPIKey(key)),
		name:    cfg.Name,
		model:   model,
		cfg:     cfg,
		limiter: newLimiter(cfg.RequestsPerMinute),
		logger:  logger,
	}, nil
}

func (b *anthropicBackend) Model() string { return b.name }

func (b *anthropicBackend) Complete(ctx context.Context, req Request) (Response, error) {
	if err := waitLimiter(ctx, b.limiter); err != nil {
		return Response{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	maxTokens := int64(b.cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.User)},
		}},
	}
	params.Temperature = anthropic.Float(b.cfg.Temperature)
	if b.cfg.TopP < 1 {
		params.TopP = anthropic.Float(b.cfg.TopP)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if budget, ok := anthropicThinkingBudget[b.cfg.ReasoningEffort]; ok {
		// Extended thinking requires temperature 1.0 and a completion
		// budget larger than the thinking budget.
		params.Temperature = anthropic.Float(1.0)
		if maxTokens <= budget {
			params.MaxTokens = budget + anthropicDefaultMaxTokens
		}
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{BudgetTokens: budget},
		}
	}

	start := time.Now()
	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyAnthropicError(b.name, err)
	}

	var text strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	usage := types.TokenUsage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	b.logger.Debug("completion finished",
		zap.String("model", b.name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total_tokens", usage.TotalTokens))
	return Response{Text: text.String(), Usage: usage}, nil
}

// classifyAnthropicError wraps rate limits, overload, and gateway errors
// as transient so the retry layer picks them up.
func classifyAnthropicError(model string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && transientStatus(apiErr.StatusCode) {
		return &types.TransientAPIError{Status: apiErr.StatusCode, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.TransientAPIError{Err: err}
	}
	return fmt.Errorf("calling %s: %w", model, err)
}
