// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm issues completion calls against the model providers the
// benchmark supports. A Backend is one configured model; New routes a
// model name to its provider by prefix ("openai/gpt-4o",
// "openrouter/meta-llama/llama-3.3-70b", "anthropic/claude-sonnet-4-5").
// WithRetry layers transient-failure retries over any backend, and
// WithCache makes repeated calls replayable across resumed runs.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Request is one completion call.
type Request struct {
	// System is the system prompt. Empty omits it.
	System string

	// User is the user message.
	User string
}

// Response is a completed call: the text and what it cost in tokens.
type Response struct {
	Text  string           `json:"text"`
	Usage types.TokenUsage `json:"usage"`
}

// Backend issues completions against one configured model.
type Backend interface {
	// Complete performs one call. Implementations apply the model's
	// request timeout and rate limit; they do not retry.
	Complete(ctx context.Context, req Request) (Response, error)

	// Model returns the provider-prefixed model name for provenance.
	Model() string
}

// Provider env keys. The secrets loader exports these from .secrets/.
const (
	envOpenAIKey     = "OPENAI_API_KEY"
	envOpenRouterKey = "OPENROUTER_API_KEY"
	envAnthropicKey  = "ANTHROPIC_API_KEY"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// New builds the provider backend for a validated model configuration.
func New(cfg types.ModelConfig, logger *zap.Logger) (Backend, error) {
	provider, model, ok := strings.Cut(cfg.Name, "/")
	if !ok || model == "" {
		return nil, fmt.Errorf("model name %q has no provider prefix (want provider/model)", cfg.Name)
	}
	switch provider {
	case "openai":
		return newOpenAIBackend(cfg, model, "", envOpenAIKey, logger)
	case "openrouter":
		return newOpenAIBackend(cfg, model, openRouterBaseURL, envOpenRouterKey, logger)
	case "anthropic":
		return newAnthropicBackend(cfg, model, logger)
	default:
		return nil, fmt.Errorf("unknown model provider %q (want openai, openrouter, or anthropic)", provider)
	}
}
