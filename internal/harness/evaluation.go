// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/pdiddy/ablation-bench/internal/judge"
	"github.com/pdiddy/ablation-bench/internal/scoring"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// EvaluationJob is one judge pass over the plans of an earlier run.
type EvaluationJob struct {
	Judge   judge.Judge
	Track   types.Track
	Records []types.PaperRecord
	Plans   map[string]types.Plan
	TopK    int
	RunDir  string
}

// RunEvaluation judges each planned record, scores the verdicts, and
// persists the artifacts: a {id}.matches.jsonl per record, the
// evaluations.json index, the summary.json aggregate, and report.txt.
// Records without a plan in the index are reported and left out of the
// aggregate. Metrics average over succeeded records, including those a
// previous run of the same directory completed.
func RunEvaluation(ctx context.Context, o *Orchestrator, job EvaluationJob, w io.Writer) (types.AggregateResult, error) {
	indexPath := filepath.Join(job.RunDir, evaluationsFile)
	results := make(map[string]types.EvaluationResult, len(job.Records))
	if err := readJSONIfExists(indexPath, &results); err != nil {
		return types.AggregateResult{}, err
	}

	var mu sync.Mutex
	tasks := make([]Task, 0, len(job.Records))
	for i := range job.Records {
		rec := &job.Records[i]
		plan, ok := job.Plans[rec.ID]
		if !ok {
			fmt.Fprintf(w, "no plan for %s\n", rec.ID)
			continue
		}
		cut := plan.Truncate(job.TopK)
		tasks = append(tasks, Task{
			ID: rec.ID,
			Run: func(ctx context.Context) (types.TokenUsage, error) {
				matches, usage, err := job.Judge.Evaluate(ctx, rec, &cut)
				if err != nil {
					return usage, err
				}
				scores := scoring.Score(matches, len(cut.Suggestions), rec.GroundTruthSize(job.Track))
				if err := writeMatchLines(job.RunDir, rec.ID, matches); err != nil {
					return usage, err
				}
				mu.Lock()
				defer mu.Unlock()
				results[rec.ID] = types.EvaluationResult{
					RecordID: rec.ID,
					Scores:   scores,
					Matches:  matches,
					Usage:    usage,
				}
				return usage, writeJSON(indexPath, results)
			},
		})
	}

	summary, runErr := o.Run(ctx, tasks, w)

	agg := aggregateResults(results, summary)
	if usage, err := o.manifest.Usage(ctx); err == nil {
		agg.Usage = usage
	}
	if err := writeJSON(filepath.Join(job.RunDir, summaryFile), agg); err != nil {
		return agg, err
	}

	failures, err := o.manifest.Failures(ctx)
	if err != nil {
		return agg, err
	}
	var report bytes.Buffer
	renderReport(&report, &agg, failures)
	if err := writeLines(filepath.Join(job.RunDir, reportFile), report.String()); err != nil {
		return agg, err
	}
	if _, err := w.Write(report.Bytes()); err != nil {
		return agg, err
	}
	return agg, runErr
}

func aggregateResults(results map[string]types.EvaluationResult, run RunSummary) types.AggregateResult {
	scores := make([]types.Scores, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Scores)
	}
	precision, recall, f1 := scoring.Aggregate(scores)
	return types.AggregateResult{
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Skipped:   run.Skipped,
	}
}
