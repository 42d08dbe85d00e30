// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

type fakePlanner struct {
	plans map[string]types.Plan
	errs  map[string]error

	mu    sync.Mutex
	calls []string
}

func (p *fakePlanner) Generate(_ context.Context, rec *types.PaperRecord) (types.Plan, types.TokenUsage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, rec.ID)
	p.mu.Unlock()
	if err := p.errs[rec.ID]; err != nil {
		return types.Plan{}, types.TokenUsage{}, &types.GenerationFailedError{RecordID: rec.ID, Err: err}
	}
	return p.plans[rec.ID], types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

func (p *fakePlanner) Name() string { return "fake" }

func testPlan(id string, names ...string) types.Plan {
	suggestions := make([]types.AblationSuggestion, len(names))
	for i, n := range names {
		suggestions[i] = types.AblationSuggestion{
			Name:        n,
			AblatedPart: n + " module",
			Action:      types.ActionRemove,
		}
	}
	return types.Plan{
		Provenance:  types.PlanProvenance{Planner: "fake", Model: "openai/gpt-4o", RecordID: id},
		Suggestions: suggestions,
	}
}

func TestRunPlanningWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	m, err := OpenManifest(dir)
	require.NoError(t, err)
	defer m.Close()
	o := NewOrchestrator(testHarnessConfig(2), m, zap.NewNop())

	p := &fakePlanner{plans: map[string]types.Plan{
		"2310.00001": testPlan("2310.00001", "no-attention", "no-warmup"),
		"2310.00002": testPlan("2310.00002", "smaller-lr"),
	}}
	records := []types.PaperRecord{{ID: "2310.00001"}, {ID: "2310.00002"}}

	var progress bytes.Buffer
	summary, err := RunPlanning(context.Background(), o, PlanningJob{
		Planner: p, Records: records, RunDir: dir,
	}, &progress)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Succeeded: 2}, summary)

	data, err := os.ReadFile(filepath.Join(dir, "2310.00001.jsonl"))
	require.NoError(t, err)
	suggestions, lineErrs, err := parse.SuggestionLines(string(data), parse.Strict)
	require.NoError(t, err)
	assert.Empty(t, lineErrs)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "no-attention", suggestions[0].Name)
	assert.Equal(t, "no-warmup", suggestions[1].Name)

	plans, err := LoadPlans(dir)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "fake", plans["2310.00001"].Provenance.Planner)
	assert.Equal(t, "openai/gpt-4o", plans["2310.00002"].Provenance.Model)
	assert.Len(t, plans["2310.00002"].Suggestions, 1)
}

func TestRunPlanningResumeKeepsIndex(t *testing.T) {
	dir := t.TempDir()
	m, err := OpenManifest(dir)
	require.NoError(t, err)
	defer m.Close()
	o := NewOrchestrator(testHarnessConfig(1), m, zap.NewNop())
	records := []types.PaperRecord{{ID: "a"}, {ID: "b"}}

	first := &fakePlanner{
		plans: map[string]types.Plan{"a": testPlan("a", "no-dropout")},
		errs:  map[string]error{"b": errors.New("paper source missing")},
	}
	var progress bytes.Buffer
	summary, err := RunPlanning(context.Background(), o, PlanningJob{
		Planner: first, Records: records, RunDir: dir,
	}, &progress)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Succeeded: 1, Failed: 1}, summary)

	plans, err := LoadPlans(dir)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	assert.NoFileExists(t, filepath.Join(dir, "b.jsonl"))

	second := &fakePlanner{plans: map[string]types.Plan{"b": testPlan("b", "no-aug")}}
	progress.Reset()
	summary, err = RunPlanning(context.Background(), o, PlanningJob{
		Planner: second, Records: records, RunDir: dir,
	}, &progress)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Succeeded: 1, Skipped: 1}, summary)
	assert.Equal(t, []string{"b"}, second.calls)
	assert.Contains(t, progress.String(), "skipped a")

	plans, err = LoadPlans(dir)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "no-dropout", plans["a"].Suggestions[0].Name)
	assert.Equal(t, "no-aug", plans["b"].Suggestions[0].Name)
}

func TestLoadPlansMissingIndex(t *testing.T) {
	_, err := LoadPlans(t.TempDir())
	assert.Error(t, err)
}
