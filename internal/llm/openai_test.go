// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

func chatCompletionJSON(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func newTestBackend(t *testing.T, handler http.Handler) (*openAIBackend, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg := types.ModelConfig{Name: "openai/gpt-4o"}
	require.NoError(t, cfg.Validate())
	backend, err := newOpenAIBackend(cfg, "gpt-4o", ts.URL+"/v1", envOpenAIKey, zap.NewNop())
	require.NoError(t, err)
	return backend, ts
}

func TestOpenAIComplete(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	backend, _ := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(chatCompletionJSON("<discussion>ok</discussion>")))
	}))

	resp, err := backend.Complete(context.Background(), Request{System: "be brief", User: "plan ablations"})
	require.NoError(t, err)

	assert.Equal(t, "<discussion>ok</discussion>", resp.Text)
	assert.Equal(t, types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, resp.Usage)
	assert.Equal(t, "gpt-4o", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "be brief", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestOpenAICompleteClassifiesRateLimit(t *testing.T) {
	var calls int32
	backend, _ := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_exceeded"}}`))
	}))

	_, err := backend.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.True(t, types.IsTransient(err), "429 should classify as transient, got %v", err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "backend itself must not retry")
}

func TestOpenAICompleteRejectsBadRequest(t *testing.T) {
	backend, _ := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))

	_, err := backend.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.False(t, types.IsTransient(err), "400 must not classify as transient")
}

func TestNewRoutesByPrefix(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("OPENROUTER_API_KEY", "k")
	t.Setenv("ANTHROPIC_API_KEY", "k")

	tests := []struct {
		name    string
		model   string
		wantErr string
	}{
		{name: "openai", model: "openai/gpt-4o"},
		{name: "openrouter", model: "openrouter/meta-llama/llama-3.3-70b-instruct"},
		{name: "anthropic", model: "anthropic/claude-sonnet-4-5"},
		{name: "unknown provider", model: "cohere/command-r", wantErr: "unknown model provider"},
		{name: "no prefix", model: "gpt-4o", wantErr: "no provider prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.ModelConfig{Name: tt.model}
			require.NoError(t, cfg.Validate())
			backend, err := New(cfg, zap.NewNop())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.model, backend.Model())
		})
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := types.ModelConfig{Name: "openai/gpt-4o"}
	require.NoError(t, cfg.Validate())

	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
