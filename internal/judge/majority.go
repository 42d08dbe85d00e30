// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// majority fans a plan out to an ensemble of member judges and folds
// their verdicts with a strict majority vote per item. Members run
// concurrently; one member failing fails the record, since a partial
// ensemble would vote with a different quorum than configured.
type majority struct {
	cfg     types.JudgeConfig
	track   types.Track
	members []Judge
	logger  *zap.Logger
}

func newMajority(cfg types.JudgeConfig, opts Options) (*majority, error) {
	members := make([]Judge, 0, len(cfg.Members))
	for i := range cfg.Members {
		m, err := New(cfg.Members[i], memberOptions(opts, i))
		if err != nil {
			return nil, fmt.Errorf("ensemble member %d: %w", i, err)
		}
		members = append(members, m)
	}
	return &majority{cfg: cfg, track: opts.Track, members: members, logger: opts.Logger}, nil
}

func (j *majority) Name() string { return string(types.JudgeMajority) }

func (j *majority) Evaluate(ctx context.Context, rec *types.PaperRecord, plan *types.Plan) ([]types.MatchResult, types.TokenUsage, error) {
	sets := make([][]types.MatchResult, len(j.members))
	usages := make([]types.TokenUsage, len(j.members))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range j.members {
		g.Go(func() error {
			out, usage, err := m.Evaluate(gctx, rec, plan)
			if err != nil {
				return err
			}
			sets[i] = out
			usages[i] = usage
			return nil
		})
	}
	// Member errors are already record-scoped EvaluationFailedErrors;
	// propagate the first one untouched.
	if err := g.Wait(); err != nil {
		return nil, types.TokenUsage{}, err
	}

	var usage types.TokenUsage
	for _, u := range usages {
		usage.Add(u)
	}

	// Every member returns the same normalized verdict set shape, so
	// index i refers to the same item in each set.
	out := make([]types.MatchResult, 0, len(sets[0]))
	for i := range sets[0] {
		out = append(out, j.voteItem(sets, i))
	}
	j.logger.Debug("ensemble vote complete",
		zap.String("record", rec.ID),
		zap.Int("members", len(j.members)),
		zap.Int("items", len(out)))
	return out, usage, nil
}

func (j *majority) voteItem(sets [][]types.MatchResult, i int) types.MatchResult {
	ballots := make([]types.JudgeVerdict, 0, len(sets))
	for _, set := range sets {
		v := set[i]
		ballots = append(ballots, types.JudgeVerdict{
			Key:         v.Key(),
			Matched:     v.Matched(),
			Counterpart: v.NameInPlan,
		})
	}

	votes := 0
	for _, b := range ballots {
		if b.Matched {
			votes++
		}
	}
	matched := 2*votes > len(ballots)
	if 2*votes == len(ballots) {
		matched = j.cfg.Ties == types.TieMatched
	}

	if j.track == types.TrackReviewer {
		return types.MatchResult{
			NameInPlan:      sets[0][i].NameInPlan,
			AppearsInReview: &matched,
		}
	}

	out := types.MatchResult{NameInPaper: sets[0][i].NameInPaper}
	if matched {
		out.NameInPlan = electCounterpart(ballots)
	}
	return out
}

// electCounterpart picks the counterpart the matching members reported
// most often. Name lists are compared order-insensitively; a frequency
// tie goes to the lexicographically smaller list.
func electCounterpart(ballots []types.JudgeVerdict) types.NameList {
	counts := make(map[string]int)
	lists := make(map[string]types.NameList)
	for _, b := range ballots {
		if !b.Matched {
			continue
		}
		canon := canonicalNames(b.Counterpart)
		counts[canon]++
		lists[canon] = b.Counterpart
	}
	var best string
	for canon, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && canon < best) {
			best = canon
		}
	}
	return lists[best]
}

func canonicalNames(n types.NameList) string {
	names := append([]string(nil), n...)
	sort.Strings(names)
	return strings.Join(names, "\n")
}
