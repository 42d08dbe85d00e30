// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdiddy/ablation-bench/internal/planner"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// PlanningJob is one planner pass over a dataset split.
type PlanningJob struct {
	Planner planner.Planner
	Records []types.PaperRecord
	RunDir  string
}

// RunPlanning generates a plan for every record and persists each one
// before the next record in its slot starts: a {id}.jsonl suggestion
// file per record plus the plans.json index evaluation runs load.
// Resumed runs keep the index entries of records they skip.
func RunPlanning(ctx context.Context, o *Orchestrator, job PlanningJob, w io.Writer) (RunSummary, error) {
	indexPath := filepath.Join(job.RunDir, plansFile)
	plans := make(map[string]types.Plan, len(job.Records))
	if err := readJSONIfExists(indexPath, &plans); err != nil {
		return RunSummary{}, err
	}

	var mu sync.Mutex
	tasks := make([]Task, 0, len(job.Records))
	for i := range job.Records {
		rec := &job.Records[i]
		tasks = append(tasks, Task{
			ID: rec.ID,
			Run: func(ctx context.Context) (types.TokenUsage, error) {
				plan, usage, err := job.Planner.Generate(ctx, rec)
				if err != nil {
					return usage, err
				}
				if err := writePlanLines(job.RunDir, rec.ID, &plan); err != nil {
					return usage, err
				}
				mu.Lock()
				defer mu.Unlock()
				plans[rec.ID] = plan
				return usage, writeJSON(indexPath, plans)
			},
		})
	}

	return o.Run(ctx, tasks, w)
}

// LoadPlans reads the plans.json index a planning run wrote.
func LoadPlans(dir string) (map[string]types.Plan, error) {
	data, err := os.ReadFile(filepath.Join(dir, plansFile))
	if err != nil {
		return nil, fmt.Errorf("reading plans index: %w", err)
	}
	plans := make(map[string]types.Plan)
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parsing plans index: %w", err)
	}
	return plans, nil
}
