// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/dataset"
	"github.com/pdiddy/ablation-bench/internal/llm"
	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/internal/prompt"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// plannerFields are the template placeholders planner prompts may use.
var plannerFields = []string{"Title", "Abstract", "Source", "NumAblations"}

// simpleLM proposes a plan with a single completion call.
type simpleLM struct {
	cfg     types.PlannerConfig
	backend llm.Backend
	tmpl    *prompt.Template
	dataDir string
	logger  *zap.Logger
}

func newSimpleLM(cfg types.PlannerConfig, opts Options) (*simpleLM, error) {
	tmpl, err := prompt.Load(cfg.Prompts, plannerFields)
	if err != nil {
		return nil, fmt.Errorf("planner prompts: %w", err)
	}
	backend, err := llm.New(cfg.Model, opts.Logger)
	if err != nil {
		return nil, err
	}
	backend = llm.WithRetry(backend, opts.MaxAttempts, opts.Logger)
	if opts.CacheDir != "" {
		backend = llm.WithCache(backend, opts.CacheDir, opts.Logger)
	}
	return &simpleLM{
		cfg:     cfg,
		backend: backend,
		tmpl:    tmpl,
		dataDir: opts.DataDir,
		logger:  opts.Logger,
	}, nil
}

func (p *simpleLM) Name() string { return string(types.PlannerSimpleLM) }

func (p *simpleLM) Generate(ctx context.Context, rec *types.PaperRecord) (types.Plan, types.TokenUsage, error) {
	plan, usage, err := p.generate(ctx, rec)
	if err != nil {
		return types.Plan{}, usage, &types.GenerationFailedError{RecordID: rec.ID, Err: err}
	}
	return plan, usage, nil
}

func (p *simpleLM) generate(ctx context.Context, rec *types.PaperRecord) (types.Plan, types.TokenUsage, error) {
	source, err := dataset.PaperSource(p.dataDir, rec, p.cfg.MaxSourceBytes)
	if err != nil {
		return types.Plan{}, types.TokenUsage{}, err
	}

	data := prompt.Data{
		Title:        rec.Title,
		Abstract:     rec.Abstract,
		Source:       source,
		NumAblations: p.cfg.NumAblations,
	}
	system, err := p.tmpl.System(data)
	if err != nil {
		return types.Plan{}, types.TokenUsage{}, err
	}
	user, err := p.tmpl.User(data)
	if err != nil {
		return types.Plan{}, types.TokenUsage{}, err
	}

	resp, err := p.backend.Complete(ctx, llm.Request{System: system, User: user})
	if err != nil {
		return types.Plan{}, types.TokenUsage{}, err
	}

	discussion, items, lineErrs, err := parse.Suggestions(resp.Text, parse.Lenient)
	if err != nil {
		return types.Plan{}, resp.Usage, err
	}
	for _, le := range lineErrs {
		p.logger.Warn("planner reply line excluded",
			zap.String("record", rec.ID),
			zap.String("line_error", le.String()))
	}
	p.logger.Debug("planner reply parsed",
		zap.String("record", rec.ID),
		zap.Int("suggestions", len(items)),
		zap.Int("excluded_lines", len(lineErrs)),
		zap.Int("discussion_bytes", len(discussion)))

	if len(items) == 0 {
		return types.Plan{}, resp.Usage, fmt.Errorf("reply contained no valid suggestions")
	}

	plan := types.Plan{
		Provenance: types.PlanProvenance{
			Planner:  p.Name(),
			Model:    p.backend.Model(),
			RecordID: rec.ID,
		},
		Suggestions: items,
	}
	plan = plan.Truncate(p.cfg.NumAblations)
	if err := plan.Validate(); err != nil {
		return types.Plan{}, resp.Usage, err
	}
	return plan, resp.Usage, nil
}
