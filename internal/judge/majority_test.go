// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// fakeJudge returns a canned verdict set.
type fakeJudge struct {
	verdicts []types.MatchResult
	usage    types.TokenUsage
	err      error
}

func (f *fakeJudge) Evaluate(context.Context, *types.PaperRecord, *types.Plan) ([]types.MatchResult, types.TokenUsage, error) {
	return f.verdicts, f.usage, f.err
}

func (f *fakeJudge) Name() string { return "fake" }

func verdict(key string, counterpart ...string) types.MatchResult {
	v := types.MatchResult{NameInPaper: key}
	if len(counterpart) > 0 {
		v.NameInPlan = types.NameList(counterpart)
	}
	return v
}

func reviewVerdict(name string, appears bool) types.MatchResult {
	return types.MatchResult{NameInPlan: types.NameList{name}, AppearsInReview: &appears}
}

func newTestMajority(track types.Track, ties types.TiePolicy, members ...Judge) *majority {
	return &majority{
		cfg:     types.JudgeConfig{Kind: types.JudgeMajority, Ties: ties},
		track:   track,
		members: members,
		logger:  zap.NewNop(),
	}
}

func TestMajorityVotePlanning(t *testing.T) {
	j := newTestMajority(types.TrackResearcher, types.TieUnmatched,
		&fakeJudge{
			verdicts: []types.MatchResult{verdict("attention", "p1"), verdict("warmup")},
			usage:    types.TokenUsage{TotalTokens: 10},
		},
		&fakeJudge{
			verdicts: []types.MatchResult{verdict("attention", "p1"), verdict("warmup", "p2")},
			usage:    types.TokenUsage{TotalTokens: 10},
		},
		&fakeJudge{
			verdicts: []types.MatchResult{verdict("attention"), verdict("warmup")},
			usage:    types.TokenUsage{TotalTokens: 10},
		},
	)

	matches, usage, err := j.Evaluate(context.Background(), &types.PaperRecord{ID: "r1"}, testPlan("p1", "p2"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(matches))
	}
	if matches[0].NameInPaper != "attention" || !matches[0].NameInPlan.Contains("p1") {
		t.Errorf("2 of 3 votes should match attention to p1, got %+v", matches[0])
	}
	if matches[1].NameInPaper != "warmup" || matches[1].Matched() {
		t.Errorf("1 of 3 votes is no majority, got %+v", matches[1])
	}
	if usage.TotalTokens != 30 {
		t.Errorf("usage = %+v, want member sum", usage)
	}
}

func TestMajorityTiePolicy(t *testing.T) {
	tests := []struct {
		ties types.TiePolicy
		want bool
	}{
		{types.TieUnmatched, false},
		{types.TieMatched, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.ties), func(t *testing.T) {
			j := newTestMajority(types.TrackResearcher, tt.ties,
				&fakeJudge{verdicts: []types.MatchResult{verdict("attention", "p1")}},
				&fakeJudge{verdicts: []types.MatchResult{verdict("attention")}},
			)

			matches, _, err := j.Evaluate(context.Background(), &types.PaperRecord{ID: "r1"}, testPlan("p1"))
			if err != nil {
				t.Fatal(err)
			}
			if got := matches[0].Matched(); got != tt.want {
				t.Errorf("1v1 split under %s = %v, want %v", tt.ties, got, tt.want)
			}
			if tt.want && !matches[0].NameInPlan.Contains("p1") {
				t.Errorf("matched tie lost its counterpart: %+v", matches[0])
			}
		})
	}
}

func TestMajorityCounterpartElection(t *testing.T) {
	tests := []struct {
		name    string
		ballots [][]string
		want    []string
	}{
		{
			name:    "most frequent wins",
			ballots: [][]string{{"p2"}, {"p2"}, {"p1"}},
			want:    []string{"p2"},
		},
		{
			name:    "name order does not split the vote",
			ballots: [][]string{{"b", "a"}, {"a", "b"}, {"z"}},
			want:    []string{"a", "b"},
		},
		{
			name:    "frequency tie goes to the smaller list",
			ballots: [][]string{{"p1"}, {"p2"}, nil},
			want:    []string{"p1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := make([]Judge, 0, len(tt.ballots))
			for _, names := range tt.ballots {
				members = append(members, &fakeJudge{
					verdicts: []types.MatchResult{verdict("attention", names...)},
				})
			}
			j := newTestMajority(types.TrackResearcher, types.TieUnmatched, members...)

			matches, _, err := j.Evaluate(context.Background(), &types.PaperRecord{ID: "r1"},
				testPlan("a", "b", "z", "p1", "p2"))
			if err != nil {
				t.Fatal(err)
			}
			got := append([]string(nil), matches[0].NameInPlan...)
			sort.Strings(got)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("counterpart = %v, want %v", matches[0].NameInPlan, tt.want)
			}
		})
	}
}

func TestMajorityReview(t *testing.T) {
	j := newTestMajority(types.TrackReviewer, types.TieUnmatched,
		&fakeJudge{verdicts: []types.MatchResult{reviewVerdict("p1", true), reviewVerdict("p2", false)}},
		&fakeJudge{verdicts: []types.MatchResult{reviewVerdict("p1", true), reviewVerdict("p2", false)}},
		&fakeJudge{verdicts: []types.MatchResult{reviewVerdict("p1", false), reviewVerdict("p2", true)}},
	)

	matches, _, err := j.Evaluate(context.Background(), &types.PaperRecord{ID: "r1"}, testPlan("p1", "p2"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(matches))
	}
	if matches[0].Key() != "p1" || !matches[0].Matched() {
		t.Errorf("verdict 0 = %+v", matches[0])
	}
	if matches[1].Key() != "p2" || matches[1].Matched() {
		t.Errorf("verdict 1 = %+v", matches[1])
	}
	for _, m := range matches {
		if m.AppearsInReview == nil {
			t.Errorf("review verdict lost its flag: %+v", m)
		}
	}
}

func TestMajorityMemberFailure(t *testing.T) {
	j := newTestMajority(types.TrackResearcher, types.TieUnmatched,
		&fakeJudge{verdicts: []types.MatchResult{verdict("attention", "p1")}},
		&fakeJudge{err: &types.EvaluationFailedError{RecordID: "r1", Err: errors.New("judge model gone")}},
		&fakeJudge{verdicts: []types.MatchResult{verdict("attention")}},
	)

	_, _, err := j.Evaluate(context.Background(), &types.PaperRecord{ID: "r1"}, testPlan("p1"))
	if err == nil {
		t.Fatal("Evaluate() = nil error")
	}
	var evalErr *types.EvaluationFailedError
	if !errors.As(err, &evalErr) {
		t.Fatalf("got %T, want the member's EvaluationFailedError", err)
	}
	if evalErr.RecordID != "r1" || !strings.Contains(err.Error(), "judge model gone") {
		t.Errorf("error = %v", err)
	}
}

func TestNewMajorityBuildsMembers(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	member := types.JudgeConfig{
		Kind:    types.JudgeSimpleLM,
		Model:   types.ModelConfig{Name: "openai/gpt-4o", TopP: 1, RequestTimeout: 1},
		Prompts: judgePrompts(types.TrackResearcher),
	}
	cfg := types.JudgeConfig{
		Kind:    types.JudgeMajority,
		Members: []types.JudgeConfig{member, member, member},
		Ties:    types.TieUnmatched,
	}

	j, err := New(cfg, Options{Track: types.TrackResearcher, MaxAttempts: 1, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if j.Name() != "majority" {
		t.Errorf("Name() = %q", j.Name())
	}
	m, ok := j.(*majority)
	if !ok || len(m.members) != 3 {
		t.Fatalf("got %T, want majority with 3 members", j)
	}
}
