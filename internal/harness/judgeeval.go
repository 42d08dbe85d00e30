// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/scoring"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// JudgeEvalJob grades stored judge outputs against human labels.
type JudgeEvalJob struct {
	// Labels holds the human verdicts, one set per (model, record)
	// judging task. Set ids name the verdict files inside each output
	// directory.
	Labels []types.JudgeLabelSet

	// OutputDirs are evaluation run directories whose
	// {id}.matches.jsonl files hold the judge outputs to grade.
	OutputDirs []string

	RunDir string
}

// RunJudgeEval scores every judge-output directory against the labels
// and persists judge_performance.json plus report.txt. The judge's
// positive verdicts play the plan role: precision is the share of its
// matched calls the labels confirm, recall the share of labeled matches
// it found. No LM is involved, so the pass runs sequentially and needs
// no manifest.
func RunJudgeEval(ctx context.Context, job JudgeEvalJob, logger *zap.Logger, w io.Writer) (map[string]types.AggregateResult, error) {
	perf := make(map[string]types.AggregateResult, len(job.OutputDirs))
	for _, dir := range job.OutputDirs {
		if err := ctx.Err(); err != nil {
			return perf, err
		}
		perf[dir] = gradeJudgeDir(dir, job.Labels, logger, w)
	}

	if err := writeJSON(filepath.Join(job.RunDir, judgePerfFile), perf); err != nil {
		return perf, err
	}
	var report bytes.Buffer
	renderJudgeReport(&report, perf)
	if err := writeLines(filepath.Join(job.RunDir, reportFile), report.String()); err != nil {
		return perf, err
	}
	if _, err := w.Write(report.Bytes()); err != nil {
		return perf, err
	}
	return perf, nil
}

func gradeJudgeDir(dir string, labelSets []types.JudgeLabelSet, logger *zap.Logger, w io.Writer) types.AggregateResult {
	var (
		scores []types.Scores
		failed int
	)
	for _, set := range labelSets {
		verdicts, err := readMatchLines(dir, set.ID)
		if err != nil {
			failed++
			fmt.Fprintf(w, "failed  %s: %v\n", set.ID, err)
			logger.Warn("judge output unreadable",
				zap.String("dir", dir),
				zap.String("task", set.ID),
				zap.Error(err))
			continue
		}
		scores = append(scores, gradeLabelSet(&set, verdicts))
	}

	precision, recall, f1 := scoring.Aggregate(scores)
	return types.AggregateResult{
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		Succeeded: len(scores),
		Failed:    failed,
	}
}

// gradeLabelSet turns agreement with the labels into match verdicts the
// scorer already understands: labeled matches are the ground truth, and
// the judge consumes one of its own positive calls by agreeing on a
// name. Names the labels never mention still count against precision
// when the judge called them matched.
func gradeLabelSet(set *types.JudgeLabelSet, verdicts []types.MatchResult) types.Scores {
	judged := make(map[string]bool, len(verdicts))
	for i := range verdicts {
		v := &verdicts[i]
		judged[v.Key()] = judged[v.Key()] || v.Matched()
	}
	positives := 0
	for _, matched := range judged {
		if matched {
			positives++
		}
	}

	matches := make([]types.MatchResult, 0, len(set.Labels))
	groundTruth := 0
	for _, label := range set.Labels {
		if !label.Matched {
			continue
		}
		groundTruth++
		m := types.MatchResult{NameInPaper: label.Name}
		if judged[label.Name] {
			m.NameInPlan = types.NameList{label.Name}
		}
		matches = append(matches, m)
	}
	return scoring.Score(matches, positives, groundTruth)
}
