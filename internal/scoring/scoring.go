// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring turns match verdicts into precision, recall, and F1.
// Everything here is a pure function: no I/O, no state, no rounding.
package scoring

import (
	"math"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Score computes one record's metrics from its verdicts.
//
// planSize is the number of plan entries that participated in judging
// (after any top-k truncation); groundTruthSize is the number of
// ground-truth items. Planning-track verdicts count a ground-truth item
// as matched when it names at least one counterpart, and count toward
// precision every distinct plan entry named by any verdict, so a
// merge/split match can neither exceed 1.0 nor double-count. Review-track
// verdicts (AppearsInReview set) count positive verdicts on both sides,
// with recall capped by the number of ablations the review actually asks
// for.
func Score(matches []types.MatchResult, planSize, groundTruthSize int) types.Scores {
	var (
		matchedGT   int
		matchedPlan int
		planNames   = make(map[string]struct{})
		review      bool
	)
	for i := range matches {
		m := &matches[i]
		if m.AppearsInReview != nil {
			review = true
			if *m.AppearsInReview {
				matchedGT++
				matchedPlan++
			}
			continue
		}
		if !m.NameInPlan.Matched() {
			continue
		}
		matchedGT++
		for _, name := range m.NameInPlan {
			planNames[name] = struct{}{}
		}
	}
	if !review {
		matchedPlan = len(planNames)
	}
	if matchedGT > groundTruthSize {
		matchedGT = groundTruthSize
	}
	if matchedPlan > planSize {
		matchedPlan = planSize
	}

	var s types.Scores
	if planSize > 0 {
		s.Precision = float64(matchedPlan) / float64(planSize)
	}
	if groundTruthSize > 0 {
		s.Recall = float64(matchedGT) / float64(groundTruthSize)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// Aggregate macro-averages per-record scores: the arithmetic mean of each
// metric across records, never a pooled micro-average. StdDev is the
// sample standard deviation, 0 for fewer than two records.
func Aggregate(scores []types.Scores) (precision, recall, f1 types.MetricSummary) {
	n := len(scores)
	if n == 0 {
		return
	}
	extract := func(get func(types.Scores) float64) types.MetricSummary {
		var sum float64
		for _, s := range scores {
			sum += get(s)
		}
		mean := sum / float64(n)
		var sq float64
		for _, s := range scores {
			d := get(s) - mean
			sq += d * d
		}
		var std float64
		if n > 1 {
			std = math.Sqrt(sq / float64(n-1))
		}
		return types.MetricSummary{Mean: mean, StdDev: std}
	}
	precision = extract(func(s types.Scores) float64 { return s.Precision })
	recall = extract(func(s types.Scores) float64 { return s.Recall })
	f1 = extract(func(s types.Scores) float64 { return s.F1 })
	return
}
