// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/internal/prompt"
	"github.com/pdiddy/ablation-bench/internal/sandbox"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Default episode task descriptions, used when the judge configuration
// carries no user prompt. The scaffold file referenced by both is seeded
// into the episode work directory before the agent starts.
const (
	defaultPlanningJudgeTask = `You are given a paper's actual ablation studies and a
proposed ablation plan. Decide, for each actual ablation, whether the plan
contains an equivalent experiment.

Paper: {{.Title}}

Abstract:
{{.Abstract}}

Actual ablations, one JSON object per line:
{{.AblationsInPaper}}

Proposed plan, one JSON object per line:
{{.Plan}}

Two experiments are equivalent when they ablate the same component and apply
the same kind of change; a REPLACE or ADD must also share at least one
replacement candidate. One actual ablation may match several plan entries and
vice versa.

The file ` + sandbox.ContainerWorkDir + `/` + sandbox.SubmissionFile + ` already contains one JSON
object per actual ablation with "name_in_plan" set to null. For each object,
replace the null with the name of the matching plan entry, or a list of names
when several together cover it. Leave null when nothing matches.

Rules:
- keep every line, add none, and never edit "name_in_paper"
- "name_in_plan" values must be names from the proposed plan, verbatim
- a single malformed line invalidates the whole submission`

	defaultReviewJudgeTask = `You are given a paper's reviews and an ablation plan
proposed for that paper. Decide, for each plan entry, whether any reviewer
asked for that experiment.

Paper: {{.Title}}

Abstract:
{{.Abstract}}

Reviews:
{{.Review}}

Proposed plan, one JSON object per line:
{{.Plan}}

The paper's source is mounted read-only at /paper for context. The file
` + sandbox.ContainerWorkDir + `/` + sandbox.SubmissionFile + ` already contains one JSON object per
plan entry with "appears_in_review" set to false. Flip it to true for every
entry some review explicitly requests.

Rules:
- keep every line, add none, and never edit "name_in_plan"
- "appears_in_review" must be present on every line, true or false
- a single malformed line invalidates the whole submission`
)

// episodeRunner is the narrow sandbox surface the judge needs. The
// sandbox Runner satisfies it.
type episodeRunner interface {
	Run(ctx context.Context, spec sandbox.Spec) (*sandbox.Result, error)
}

// sweAgent delegates judging to a sandboxed agent episode. The episode
// work directory is seeded with a scaffold verdict file; the agent fills
// in the open fields and the submission is checked against the scaffold
// before being accepted.
type sweAgent struct {
	cfg     types.JudgeConfig
	track   types.Track
	dataDir string
	tmpl    *prompt.Template
	runner  episodeRunner
	logger  *zap.Logger
}

func newSWEAgent(cfg types.JudgeConfig, opts Options) (*sweAgent, error) {
	task := cfg.Prompts.User
	if task == "" {
		task = defaultPlanningJudgeTask
		if opts.Track == types.TrackReviewer {
			task = defaultReviewJudgeTask
		}
	}
	tmpl, err := prompt.Load(types.PromptsConfig{User: task}, judgeFields(opts.Track))
	if err != nil {
		return nil, fmt.Errorf("judge task template: %w", err)
	}
	rt, err := sandbox.NewRuntime(cfg.Sandbox.Runtime)
	if err != nil {
		return nil, err
	}
	runner, err := sandbox.NewRunner(rt, cfg.Sandbox, opts.RunDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &sweAgent{
		cfg:     cfg,
		track:   opts.Track,
		dataDir: opts.DataDir,
		tmpl:    tmpl,
		runner:  runner,
		logger:  opts.Logger,
	}, nil
}

func (j *sweAgent) Name() string { return string(types.JudgeSWEAgent) }

func (j *sweAgent) Evaluate(ctx context.Context, rec *types.PaperRecord, plan *types.Plan) ([]types.MatchResult, types.TokenUsage, error) {
	// The agent's own token accounting stays inside the episode; usage
	// is reported as zero for this variant.
	matches, err := j.evaluate(ctx, rec, plan)
	if err != nil {
		return nil, types.TokenUsage{}, &types.EvaluationFailedError{RecordID: rec.ID, Err: err}
	}
	return matches, types.TokenUsage{}, nil
}

func (j *sweAgent) evaluate(ctx context.Context, rec *types.PaperRecord, plan *types.Plan) ([]types.MatchResult, error) {
	// Nothing to compare, so the scaffold is already the answer.
	if len(plan.Suggestions) == 0 || rec.GroundTruthSize(j.track) == 0 {
		return j.normalize(nil, rec, plan), nil
	}

	scaffold := j.normalize(nil, rec, plan)
	scaffoldText, err := parse.RenderMatchLines(scaffold)
	if err != nil {
		return nil, err
	}

	data, err := j.promptData(rec, plan)
	if err != nil {
		return nil, err
	}
	task, err := j.tmpl.User(data)
	if err != nil {
		return nil, err
	}

	// Judge episodes always run in the configured judge image; a record's
	// DockerImage is the paper repository image used by planner episodes.
	res, err := j.runner.Run(ctx, sandbox.Spec{
		ID:     rec.ID,
		Task:   task,
		Files:  map[string]string{sandbox.SubmissionFile: scaffoldText},
		Mounts: j.mounts(rec),
		Env:    sandbox.AgentEnv(j.cfg.Model.Name),
	})
	if err != nil {
		return nil, err
	}

	got, _, err := parse.MatchLines(string(res.Artifact), parse.Strict)
	if err != nil {
		return nil, fmt.Errorf("judge submission rejected: %w", err)
	}
	if err := j.checkSubmission(got, scaffold); err != nil {
		return nil, err
	}

	j.logger.Debug("judge submission accepted",
		zap.String("record", rec.ID),
		zap.Int("verdicts", len(got)),
		zap.String("episode_log", res.LogPath))
	return j.normalize(got, rec, plan), nil
}

func (j *sweAgent) promptData(rec *types.PaperRecord, plan *types.Plan) (prompt.Data, error) {
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

// mounts exposes the paper source to review-track episodes.
func (j *sweAgent) mounts(rec *types.PaperRecord) []sandbox.Mount {
	if j.track != types.TrackReviewer || rec.SourcePath == "" {
		return nil
	}
	return []sandbox.Mount{{
		Host:      filepath.Join(j.dataDir, rec.SourcePath),
		Container: "/paper",
		ReadOnly:  true,
	}}
}

// checkSubmission enforces the scaffold contract: the agent fills in the
// open fields of the seeded file and touches nothing else.
func (j *sweAgent) checkSubmission(got, scaffold []types.MatchResult) error {
	if len(got) != len(scaffold) {
		return &types.SandboxProtocolError{
			Reason: fmt.Sprintf("submission has %d verdicts, scaffold had %d", len(got), len(scaffold)),
		}
	}
	known := make(map[string]struct{}, len(scaffold))
	for i := range scaffold {
		known[scaffold[i].Key()] = struct{}{}
	}
	seen := make(map[string]struct{}, len(got))
	for i := range got {
		v := &got[i]
		if j.track == types.TrackReviewer {
			if len(v.NameInPlan) != 1 {
				return &types.SandboxProtocolError{
					Reason: fmt.Sprintf("verdict %d must name exactly one plan entry", i+1),
				}
			}
			if v.AppearsInReview == nil {
				return &types.SandboxProtocolError{
					Reason: fmt.Sprintf("verdict for %q leaves appears_in_review unset", v.Key()),
				}
			}
		} else if v.NameInPaper == "" {
			return &types.SandboxProtocolError{
				Reason: fmt.Sprintf("verdict %d carries no name_in_paper", i+1),
			}
		}
		key := v.Key()
		if _, ok := known[key]; !ok {
			return &types.SandboxProtocolError{
				Reason: fmt.Sprintf("verdict for %q does not correspond to a scaffold entry", key),
			}
		}
		if _, dup := seen[key]; dup {
			return &types.SandboxProtocolError{
				Reason: fmt.Sprintf("duplicate verdict for %q", key),
			}
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (j *sweAgent) normalize(raw []types.MatchResult, rec *types.PaperRecord, plan *types.Plan) []types.MatchResult {
	if j.track == types.TrackReviewer {
		return normalizeReview(raw, plan)
	}
	return normalizePlanning(raw, rec.AblationsInPaper, plan)
}
