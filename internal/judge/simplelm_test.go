// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/llm"
	"github.com/pdiddy/ablation-bench/internal/prompt"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// mockBackend returns a canned completion and records the request.
type mockBackend struct {
	resp    llm.Response
	err     error
	lastReq llm.Request
	calls   int
}

func (m *mockBackend) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return llm.Response{}, m.err
	}
	return m.resp, nil
}

func (m *mockBackend) Model() string { return "openai/gpt-4o" }

func judgePrompts(track types.Track) types.PromptsConfig {
	if track == types.TrackReviewer {
		return types.PromptsConfig{
			System: "Check the reviews.",
			User:   "Title: {{.Title}}\nReviews:\n{{.Review}}\nPlan:\n{{.Plan}}",
		}
	}
	return types.PromptsConfig{
		System: "Match the ablations.",
		User:   "Title: {{.Title}}\nActual:\n{{.AblationsInPaper}}\nPlan:\n{{.Plan}}",
	}
}

func newTestJudge(t *testing.T, track types.Track, backend llm.Backend) *simpleLM {
	t.Helper()
	tmpl, err := prompt.Load(judgePrompts(track), judgeFields(track))
	if err != nil {
		t.Fatal(err)
	}
	return &simpleLM{track: track, backend: backend, tmpl: tmpl, logger: zap.NewNop()}
}

func TestEvaluatePlanning(t *testing.T) {
	backend := &mockBackend{resp: llm.Response{
		Text: `<discussion>
p-att covers the attention ablation; nothing covers warmup.
</discussion>
<predictions>
{"name_in_paper": "attention", "name_in_plan": "p-att"}
{"name_in_paper": "warmup", "name_in_plan": null}
</predictions>`,
		Usage: types.TokenUsage{PromptTokens: 200, CompletionTokens: 40, TotalTokens: 240},
	}}
	j := newTestJudge(t, types.TrackResearcher, backend)

	rec := &types.PaperRecord{
		ID:               "2310.00001",
		Title:            "Paper A",
		Abstract:         "About A.",
		AblationsInPaper: suggestions("attention", "warmup"),
	}
	plan := testPlan("p-att", "p-extra")

	matches, usage, err := j.Evaluate(context.Background(), rec, plan)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("got %d verdicts, want one per ground-truth item", len(matches))
	}
	if matches[0].NameInPaper != "attention" || !matches[0].NameInPlan.Contains("p-att") {
		t.Errorf("verdict 0 = %+v", matches[0])
	}
	if matches[1].NameInPaper != "warmup" || matches[1].Matched() {
		t.Errorf("verdict 1 = %+v", matches[1])
	}
	if usage.TotalTokens != 240 {
		t.Errorf("usage = %+v", usage)
	}

	for _, want := range []string{"Paper A", `"attention"`, `"p-att"`, `"p-extra"`} {
		if !strings.Contains(backend.lastReq.User, want) {
			t.Errorf("user prompt missing %s: %q", want, backend.lastReq.User)
		}
	}
}

func TestEvaluateReview(t *testing.T) {
	backend := &mockBackend{resp: llm.Response{
		Text: `<discussion>
Only p1 is requested by a reviewer.
</discussion>
<predictions>
{"name_in_plan": "p1", "appears_in_review": true}
{"name_in_plan": "p2", "appears_in_review": false}
</predictions>`,
	}}
	j := newTestJudge(t, types.TrackReviewer, backend)

	rec := &types.PaperRecord{
		ID:                     "2310.00002",
		Title:                  "Paper B",
		NumAblationSuggestions: 2,
		ReviewText:             []string{"Please ablate the attention module."},
	}
	plan := testPlan("p1", "p2")

	matches, _, err := j.Evaluate(context.Background(), rec, plan)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("got %d verdicts, want one per plan entry", len(matches))
	}
	if !matches[0].Matched() || matches[0].Key() != "p1" {
		t.Errorf("verdict 0 = %+v", matches[0])
	}
	if matches[1].Matched() || matches[1].Key() != "p2" {
		t.Errorf("verdict 1 = %+v", matches[1])
	}

	if !strings.Contains(backend.lastReq.User, "<review>") {
		t.Errorf("user prompt missing review block: %q", backend.lastReq.User)
	}
	if !strings.Contains(backend.lastReq.User, "Please ablate the attention module.") {
		t.Errorf("user prompt missing review text")
	}
}

func TestEvaluateSkipsDegenerateInputs(t *testing.T) {
	tests := []struct {
		name  string
		track types.Track
		rec   *types.PaperRecord
		plan  *types.Plan
		want  int
	}{
		{
			name:  "empty plan still fills ground truth",
			track: types.TrackResearcher,
			rec:   &types.PaperRecord{ID: "r", AblationsInPaper: suggestions("a", "b")},
			plan:  &types.Plan{},
			want:  2,
		},
		{
			name:  "no ground truth",
			track: types.TrackResearcher,
			rec:   &types.PaperRecord{ID: "r"},
			plan:  testPlan("p1"),
			want:  0,
		},
		{
			name:  "review with no suggestions in review",
			track: types.TrackReviewer,
			rec:   &types.PaperRecord{ID: "r"},
			plan:  testPlan("p1", "p2"),
			want:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			j := newTestJudge(t, tt.track, backend)

			matches, usage, err := j.Evaluate(context.Background(), tt.rec, tt.plan)
			if err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			if backend.calls != 0 {
				t.Errorf("made %d model calls, want none", backend.calls)
			}
			if len(matches) != tt.want {
				t.Errorf("got %d verdicts, want %d", len(matches), tt.want)
			}
			for _, m := range matches {
				if m.Matched() {
					t.Errorf("degenerate input produced a match: %+v", m)
				}
			}
			if usage.TotalTokens != 0 {
				t.Errorf("usage = %+v", usage)
			}
		})
	}
}

func TestEvaluateFailures(t *testing.T) {
	tests := []struct {
		name      string
		backend   *mockBackend
		wantIn    string
		wantClass string
	}{
		{
			name:      "missing predictions block",
			backend:   &mockBackend{resp: llm.Response{Text: "<discussion>only prose</discussion>"}},
			wantIn:    "missing <predictions> block",
			wantClass: "malformed_output",
		},
		{
			name:      "backend exhausted retries",
			backend:   &mockBackend{err: &types.TransientAPIError{Status: 503, Err: errors.New("overloaded")}},
			wantIn:    "overloaded",
			wantClass: "evaluation_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newTestJudge(t, types.TrackResearcher, tt.backend)
			rec := &types.PaperRecord{ID: "r1", AblationsInPaper: suggestions("a")}

			_, _, err := j.Evaluate(context.Background(), rec, testPlan("p1"))
			if err == nil {
				t.Fatal("Evaluate() = nil error")
			}
			var evalErr *types.EvaluationFailedError
			if !errors.As(err, &evalErr) {
				t.Fatalf("got %T, want EvaluationFailedError", err)
			}
			if evalErr.RecordID != "r1" {
				t.Errorf("record id = %q", evalErr.RecordID)
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not contain %q", err, tt.wantIn)
			}
			if got := types.ErrorClass(err); got != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", got, tt.wantClass)
			}
		})
	}
}

func TestEvaluateExcludesBadLines(t *testing.T) {
	backend := &mockBackend{resp: llm.Response{
		Text: `<discussion>d</discussion>
<predictions>
{"name_in_paper": "a", "name_in_plan": "p1"}
not json at all
{"name_in_paper": "b", "name_in_plan": null}
</predictions>`,
	}}
	j := newTestJudge(t, types.TrackResearcher, backend)
	rec := &types.PaperRecord{ID: "r1", AblationsInPaper: suggestions("a", "b")}

	matches, _, err := j.Evaluate(context.Background(), rec, testPlan("p1"))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if len(matches) != 2 || !matches[0].Matched() || matches[1].Matched() {
		t.Errorf("matches = %+v", matches)
	}
}
