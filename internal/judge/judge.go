// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge grades ablation plans against ground truth.
//
// Three variants implement the Judge contract. simple_lm makes one
// comparison call and parses the structured verdict list. sweagent
// delegates to a sandboxed agent that fills in a scaffold of verdicts,
// then validates the submission against the scaffold. majority fans a
// plan out to an ensemble of member judges and takes a strict majority
// vote per item.
//
// Whatever the variant, Evaluate returns a normalized verdict set:
// exactly one verdict per ground-truth item on the planning track, or
// one per judged plan entry on the review track.
package judge

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Judge grades one plan against one record's ground truth.
type Judge interface {
	// Evaluate judges the plan. Top-k truncation is the caller's job;
	// the plan arrives already cut. Failures are reported as
	// *types.EvaluationFailedError wrapping the cause.
	Evaluate(ctx context.Context, rec *types.PaperRecord, plan *types.Plan) ([]types.MatchResult, types.TokenUsage, error)

	// Name returns the judge kind tag.
	Name() string
}

// Options carries the run-level dependencies judge variants need.
type Options struct {
	// Track selects the ground truth being judged against.
	Track types.Track

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

// New builds the configured judge variant. The configuration must be
// validated first.
func New(cfg types.JudgeConfig, opts Options) (Judge, error) {
	switch cfg.Kind {
	case types.JudgeSimpleLM:
		return newSimpleLM(cfg, opts)
	case types.JudgeSWEAgent:
		return newSWEAgent(cfg, opts)
	case types.JudgeMajority:
		return newMajority(cfg, opts)
	default:
		return nil, fmt.Errorf("unknown judge kind %q", cfg.Kind)
	}
}

// memberOptions isolates one ensemble member's episode logs from its
// siblings, so two sandboxed members never write the same log file.
func memberOptions(opts Options, i int) Options {
	opts.RunDir = filepath.Join(opts.RunDir, fmt.Sprintf("member-%d", i))
	return opts
}
