// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harness runs benchmark stages over dataset records: a bounded
// worker pool with per-task timeouts, a SQLite manifest so interrupted
// runs resume instead of repeating paid LM calls, and the artifact
// writers for plans, evaluations, and reports.
package harness

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Task is one record's worth of work in a run.
type Task struct {
	// ID identifies the record in the manifest and in artifacts.
	ID string

	// Run performs the work and reports the tokens it consumed, on
	// failure too. The context carries the per-task timeout.
	Run func(ctx context.Context) (types.TokenUsage, error)
}

// RunSummary counts what a run did with its records.
type RunSummary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Total returns the number of records the run touched.
func (s RunSummary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// HasFailures reports whether any record failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Orchestrator dispatches record tasks over a bounded worker pool and
// tracks their lifecycle in the run manifest.
type Orchestrator struct {
	cfg      types.HarnessConfig
	manifest *Manifest
	logger   *zap.Logger
}

// NewOrchestrator returns an orchestrator writing progress to manifest.
func NewOrchestrator(cfg types.HarnessConfig, manifest *Manifest, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, manifest: manifest, logger: logger}
}

// Run processes tasks with up to Parallelism workers, writing progress
// lines to w. Records already SUCCEEDED in the manifest are skipped. A
// failing record is marked FAILED and the run continues with the rest.
// Cancelling ctx stops dispatching new tasks; in-flight tasks keep
// their own timeout so they finish their record instead of leaving it
// half written.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task, w io.Writer) (RunSummary, error) {
	done, err := o.manifest.Succeeded(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	var summary RunSummary
	pending := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := done[t.ID]; ok {
			fmt.Fprintf(w, "skipped %s\n", t.ID)
			summary.Skipped++
			continue
		}
		pending = append(pending, t)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Parallelism)

	for _, t := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A stop request can land while this task waits for a slot.
			if gctx.Err() != nil {
				return nil
			}
			taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.TaskTimeout)
			defer cancel()

			if err := o.manifest.Begin(taskCtx, t.ID); err != nil {
				return err
			}
			o.logger.Info("task started", zap.String("record", t.ID))

			usage, err := t.Run(taskCtx)
			if err != nil {
				class := types.ErrorClass(err)
				if mErr := o.manifest.Fail(taskCtx, t.ID, class, err.Error(), usage); mErr != nil {
					return mErr
				}
				mu.Lock()
				summary.Failed++
				fmt.Fprintf(w, "failed  %s: %v\n", t.ID, err)
				mu.Unlock()
				o.logger.Warn("task failed",
					zap.String("record", t.ID),
					zap.String("class", class),
					zap.Error(err))
				return nil
			}

			if mErr := o.manifest.Succeed(taskCtx, t.ID, usage); mErr != nil {
				return mErr
			}
			mu.Lock()
			summary.Succeeded++
			fmt.Fprintf(w, "finished %s\n", t.ID)
			mu.Unlock()
			o.logger.Info("task finished",
				zap.String("record", t.ID),
				zap.Int("total_tokens", usage.TotalTokens))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintf(w, "stopped after %d records: %v\n", summary.Total(), err)
		return summary, err
	}
	return summary, nil
}
