// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/llm"
	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/internal/prompt"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Template placeholders judge prompts may use, per track.
var (
	planningJudgeFields = []string{"Title", "Abstract", "AblationsInPaper", "Plan"}
	reviewJudgeFields   = []string{"Title", "Abstract", "Review", "Plan"}
)

func judgeFields(track types.Track) []string {
	if track == types.TrackReviewer {
		return reviewJudgeFields
	}
	return planningJudgeFields
}

// simpleLM judges a plan with a single comparison call.
type simpleLM struct {
	track   types.Track
	backend llm.Backend
	tmpl    *prompt.Template
	logger  *zap.Logger
}

func newSimpleLM(cfg types.JudgeConfig, opts Options) (*simpleLM, error) {
	tmpl, err := prompt.Load(cfg.Prompts, judgeFields(opts.Track))
	if err != nil {
		return nil, err
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
		track:   opts.Track,
		backend: backend,
		tmpl:    tmpl,
		logger:  opts.Logger,
	}, nil
}

func (j *simpleLM) Name() string { return string(types.JudgeSimpleLM) }

func (j *simpleLM) Evaluate(ctx context.Context, rec *types.PaperRecord, plan *types.Plan) ([]types.MatchResult, types.TokenUsage, error) {
	matches, usage, err := j.evaluate(ctx, rec, plan)
	if err != nil {
		return nil, usage, &types.EvaluationFailedError{RecordID: rec.ID, Err: err}
	}
	return matches, usage, nil
}

func (j *simpleLM) evaluate(ctx context.Context, rec *types.PaperRecord, plan *types.Plan) ([]types.MatchResult, types.TokenUsage, error) {
	// Nothing to compare: an empty plan leaves every ground-truth item
	// unmatched, and an empty ground truth needs no verdicts at all.
	if len(plan.Suggestions) == 0 || rec.GroundTruthSize(j.track) == 0 {
		return j.normalize(nil, rec, plan), types.TokenUsage{}, nil
	}

	data, err := j.promptData(rec, plan)
	if err != nil {
		return nil, types.TokenUsage{}, err
	}
	system, err := j.tmpl.System(data)
	if err != nil {
		return nil, types.TokenUsage{}, err
	}
	user, err := j.tmpl.User(data)
	if err != nil {
		return nil, types.TokenUsage{}, err
	}

	resp, err := j.backend.Complete(ctx, llm.Request{System: system, User: user})
	if err != nil {
		return nil, types.TokenUsage{}, err
	}

	_, raw, lineErrs, err := parse.Matches(resp.Text, parse.Lenient)
	if err != nil {
		return nil, resp.Usage, err
	}
	for _, le := range lineErrs {
		j.logger.Warn("judge reply line excluded",
			zap.String("record", rec.ID),
			zap.String("line_error", le.String()))
	}

	return j.normalize(raw, rec, plan), resp.Usage, nil
}

func (j *simpleLM) promptData(rec *types.PaperRecord, plan *types.Plan) (prompt.Data, error) {
	lines, err := planLines(plan, rec.ID)
	if err != nil {
		return prompt.Data{}, err
	}
	data := prompt.Data{
		Title:    rec.Title,
		Abstract: rec.Abstract,
		Plan:     lines,
	}
	if j.track == types.TrackReviewer {
		data.Review = reviewText(rec)
		return data, nil
	}
	data.AblationsInPaper, err = groundTruthLines(rec)
	return data, err
}

func (j *simpleLM) normalize(raw []types.MatchResult, rec *types.PaperRecord, plan *types.Plan) []types.MatchResult {
	if j.track == types.TrackReviewer {
		return normalizeReview(raw, plan)
	}
	return normalizePlanning(raw, rec.AblationsInPaper, plan)
}
