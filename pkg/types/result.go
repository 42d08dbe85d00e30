// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TokenUsage counts the tokens an LM call (or a record's worth of calls)
// consumed.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Scores holds one record's match-quality metrics. All values are in
// [0, 1]. Derived by the scoring engine, never hand-constructed.
type Scores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
}

// EvaluationResult is one record's judged outcome: the scores plus the
// verdicts that produced them.
type EvaluationResult struct {
	RecordID string        `json:"record_id"`
	Scores   Scores        `json:"scores"`
	Matches  []MatchResult `json:"matches"`
	Usage    TokenUsage    `json:"usage"`
}

// MetricSummary is the cross-record aggregate of one metric: the
// macro-average (arithmetic mean of per-record values) and the sample
// standard deviation.
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// AggregateResult summarizes a whole run: macro-averaged metrics over
// succeeded records, counts of everything else, and total token usage.
type AggregateResult struct {
	Precision MetricSummary `json:"precision"`
	Recall    MetricSummary `json:"recall"`
	F1        MetricSummary `json:"f1_score"`

	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	Usage TokenUsage `json:"usage"`
}

// Total returns the number of records the run touched.
func (a *AggregateResult) Total() int {
	return a.Succeeded + a.Failed + a.Skipped
}

// HasFailures reports whether any record failed.
func (a *AggregateResult) HasFailures() bool {
	return a.Failed > 0
}
