// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// normalizePlanning reduces raw verdicts to exactly one per ground-truth
// item, in ground-truth order. Counterpart names outside the judged plan
// are dropped, verdicts for unknown ground-truth items are discarded,
// duplicates keep the first verdict, and items the judge never mentioned
// become unmatched.
func normalizePlanning(raw []types.MatchResult, gt []types.AblationSuggestion, plan *types.Plan) []types.MatchResult {
	planNames := make(map[string]struct{}, len(plan.Suggestions))
	for _, s := range plan.Suggestions {
		planNames[s.Name] = struct{}{}
	}

	byItem := make(map[string]types.MatchResult, len(raw))
	for _, v := range raw {
		if v.NameInPaper == "" {
			continue
		}
		if _, seen := byItem[v.NameInPaper]; seen {
			continue
		}
		var kept types.NameList
		for _, name := range v.NameInPlan {
			if _, ok := planNames[name]; ok {
				kept = append(kept, name)
			}
		}
		byItem[v.NameInPaper] = types.MatchResult{
			NameInPaper: v.NameInPaper,
			NameInPlan:  kept,
		}
	}

	out := make([]types.MatchResult, 0, len(gt))
	for _, item := range gt {
		if v, ok := byItem[item.Name]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, types.MatchResult{NameInPaper: item.Name})
	}
	return out
}

// normalizeReview reduces raw verdicts to exactly one per judged plan
// entry, in plan order. Entries the judge never mentioned count as not
// appearing in the review.
func normalizeReview(raw []types.MatchResult, plan *types.Plan) []types.MatchResult {
	byName := make(map[string]types.MatchResult, len(raw))
	for _, v := range raw {
		key := v.Key()
		if key == "" {
			continue
		}
		if _, seen := byName[key]; seen {
			continue
		}
		appears := v.AppearsInReview != nil && *v.AppearsInReview
		byName[key] = types.MatchResult{
			NameInPlan:      types.NameList{key},
			AppearsInReview: &appears,
		}
	}

	out := make([]types.MatchResult, 0, len(plan.Suggestions))
	for _, s := range plan.Suggestions {
		if v, ok := byName[s.Name]; ok {
			out = append(out, v)
			continue
		}
		no := false
		out = append(out, types.MatchResult{
			NameInPlan:      types.NameList{s.Name},
			AppearsInReview: &no,
		})
	}
	return out
}

// planLines renders the judged plan one JSON object per line, in an order
// deterministically shuffled by record id so judges cannot key on rank
// position. The verdict set is order-independent, so scoring is
// unaffected.
func planLines(plan *types.Plan, recordID string) (string, error) {
	items := append([]types.AblationSuggestion(nil), plan.Suggestions...)
	h := fnv.New64a()
	h.Write([]byte(recordID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return parse.RenderSuggestionLines(items)
}

// groundTruthLines renders the paper's ablations one JSON object per line.
func groundTruthLines(rec *types.PaperRecord) (string, error) {
	return parse.RenderSuggestionLines(rec.AblationsInPaper)
}

// reviewText wraps each review in a <review> block.
func reviewText(rec *types.PaperRecord) string {
	var b strings.Builder
	for _, r := range rec.ReviewText {
		b.WriteString("<review>\n")
		b.WriteString(strings.TrimSpace(r))
		b.WriteString("\n</review>\n")
	}
	return b.String()
}
