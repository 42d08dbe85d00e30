// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

func openTestManifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := OpenManifest(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManifestLifecycle(t *testing.T) {
	m := openTestManifest(t)
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, "rec-a"))
	require.NoError(t, m.Succeed(ctx, "rec-a", types.TokenUsage{
		PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120,
	}))
	require.NoError(t, m.Begin(ctx, "rec-b"))
	require.NoError(t, m.Fail(ctx, "rec-b", "generation_failed", "model said no",
		types.TokenUsage{TotalTokens: 5}))

	done, err := m.Succeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"rec-a": {}}, done)

	failures, err := m.Failures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, TaskFailure{ID: "rec-b", Class: "generation_failed", Err: "model said no"}, failures[0])

	usage, err := m.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 125}, usage)
}

func TestManifestRetryClearsError(t *testing.T) {
	m := openTestManifest(t)
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, "rec-a"))
	require.NoError(t, m.Fail(ctx, "rec-a", "transient_api", "rate limited", types.TokenUsage{}))
	require.NoError(t, m.Begin(ctx, "rec-a"))

	failures, err := m.Failures(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)

	var (
		state    string
		attempts int
	)
	require.NoError(t, m.db.QueryRow(
		`SELECT state, attempts FROM tasks WHERE id=?`, "rec-a",
	).Scan(&state, &attempts))
	assert.Equal(t, string(StateRunning), state)
	assert.Equal(t, 2, attempts)
}

func TestManifestReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m, err := OpenManifest(dir)
	require.NoError(t, err)
	require.NoError(t, m.Begin(ctx, "rec-a"))
	require.NoError(t, m.Succeed(ctx, "rec-a", types.TokenUsage{TotalTokens: 10}))
	require.NoError(t, m.Close())

	reopened, err := OpenManifest(dir)
	require.NoError(t, err)
	defer reopened.Close()

	done, err := reopened.Succeeded(ctx)
	require.NoError(t, err)
	assert.Contains(t, done, "rec-a")

	usage, err := reopened.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, usage.TotalTokens)
}

func TestManifestUsageEmpty(t *testing.T) {
	m := openTestManifest(t)

	usage, err := m.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TokenUsage{}, usage)
}
