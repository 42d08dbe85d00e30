// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner proposes ablation plans for benchmark records.
//
// Two variants implement the Planner contract: simple_lm renders a
// prompt, makes one completion call, and parses the structured reply;
// sweagent delegates to a sandboxed agent episode and validates the
// submission the agent leaves behind. Either way the caller gets a
// structurally valid Plan or a *types.GenerationFailedError, never a
// partial plan.
package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Planner proposes an ablation plan for one record.
type Planner interface {
	// Generate produces a valid plan for the record. Failures are
	// reported as *types.GenerationFailedError wrapping the cause.
	Generate(ctx context.Context, rec *types.PaperRecord) (types.Plan, types.TokenUsage, error)

	// Name returns the planner kind tag for provenance.
	Name() string
}

// Options carries the run-level dependencies planner variants need.
type Options struct {
	// DataDir is the dataset root holding paper source trees.
	DataDir string

	// CacheDir enables LM response caching when non-empty.
	CacheDir string

	// RunDir receives episode logs (sweagent only).
	RunDir string

	// MaxAttempts bounds transient-failure retries per LM call.
	MaxAttempts int

	Logger *zap.Logger
}

// New builds the configured planner variant. The configuration must be
// validated first.
func New(cfg types.PlannerConfig, opts Options) (Planner, error) {
	switch cfg.Kind {
	case types.PlannerSimpleLM:
		return newSimpleLM(cfg, opts)
	case types.PlannerSWEAgent:
		return newSWEAgent(cfg, opts)
	default:
		return nil, fmt.Errorf("unknown planner kind %q", cfg.Kind)
	}
}
