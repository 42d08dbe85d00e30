// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/internal/prompt"
	"github.com/pdiddy/ablation-bench/internal/sandbox"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// defaultPlannerTask is the episode task description used when the
// planner configuration carries no user prompt. The paper repository is
// baked into the record's image at /repo.
const defaultPlannerTask = `You are given the repository of a research paper.
Propose the {{.NumAblations}} most informative ablation experiments for it.

Paper: {{.Title}}

Abstract:
{{.Abstract}}

Explore the repository under /repo to understand the method. When done,
write your plan to ` + sandbox.ContainerWorkDir + `/` + sandbox.SubmissionFile + `,
one JSON object per line, most informative first:

{"name": "...", "ablated_part": "...", "action": "REMOVE", "metrics": ["..."]}
{"name": "...", "ablated_part": "...", "action": "REPLACE", "replacement": ["..."], "metrics": ["..."]}

Rules:
- every name must be unique
- REMOVE entries must not carry a replacement; REPLACE and ADD entries must
- a single malformed line invalidates the whole submission, so verify the
  file before finishing`

// episodeRunner is the narrow sandbox surface the planner needs. The
// sandbox Runner satisfies it.
type episodeRunner interface {
	Run(ctx context.Context, spec sandbox.Spec) (*sandbox.Result, error)
}

// sweAgent delegates planning to a sandboxed agent episode and validates
// the submission it leaves behind.
type sweAgent struct {
	cfg    types.PlannerConfig
	tmpl   *prompt.Template
	runner episodeRunner
	logger *zap.Logger
}

func newSWEAgent(cfg types.PlannerConfig, opts Options) (*sweAgent, error) {
	task := cfg.Prompts.User
	if task == "" {
		task = defaultPlannerTask
	}
	tmpl, err := prompt.Load(types.PromptsConfig{User: task}, plannerFields)
	if err != nil {
		return nil, fmt.Errorf("planner task template: %w", err)
	}
	rt, err := sandbox.NewRuntime(cfg.Sandbox.Runtime)
	if err != nil {
		return nil, err
	}
	runner, err := sandbox.NewRunner(rt, cfg.Sandbox, opts.RunDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &sweAgent{cfg: cfg, tmpl: tmpl, runner: runner, logger: opts.Logger}, nil
}

func (p *sweAgent) Name() string { return string(types.PlannerSWEAgent) }

func (p *sweAgent) Generate(ctx context.Context, rec *types.PaperRecord) (types.Plan, types.TokenUsage, error) {
	// The agent's own token accounting stays inside the episode; usage
	// is reported as zero for this variant.
	plan, err := p.generate(ctx, rec)
	if err != nil {
		return types.Plan{}, types.TokenUsage{}, &types.GenerationFailedError{RecordID: rec.ID, Err: err}
	}
	return plan, types.TokenUsage{}, nil
}

func (p *sweAgent) generate(ctx context.Context, rec *types.PaperRecord) (types.Plan, error) {
	task, err := p.tmpl.User(prompt.Data{
		Title:        rec.Title,
		Abstract:     rec.Abstract,
		NumAblations: p.cfg.NumAblations,
	})
	if err != nil {
		return types.Plan{}, err
	}

	res, err := p.runner.Run(ctx, sandbox.Spec{
		ID:    rec.ID,
		Image: rec.DockerImage,
		Task:  task,
		Env:   sandbox.AgentEnv(p.cfg.Model.Name),
	})
	if err != nil {
		return types.Plan{}, err
	}

	// Submissions are all-or-nothing: the agent had the whole episode to
	// produce a clean file.
	items, _, err := parse.SuggestionLines(string(res.Artifact), parse.Strict)
	if err != nil {
		return types.Plan{}, fmt.Errorf("agent submission rejected: %w", err)
	}
	if len(items) == 0 {
		return types.Plan{}, fmt.Errorf("agent submission is empty")
	}

	plan := types.Plan{
		Provenance: types.PlanProvenance{
			Planner:  p.Name(),
			Model:    p.cfg.Model.Name,
			RecordID: rec.ID,
		},
		Suggestions: items,
	}
	plan = plan.Truncate(p.cfg.NumAblations)
	if err := plan.Validate(); err != nil {
		return types.Plan{}, err
	}
	p.logger.Debug("agent plan accepted",
		zap.String("record", rec.ID),
		zap.Int("suggestions", len(plan.Suggestions)),
		zap.String("episode_log", res.LogPath))
	return plan, nil
}
