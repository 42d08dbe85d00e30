// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// newTable builds a markdown-style table writer shared by every report.
func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// renderReport writes one evaluation run's summary: the macro-averaged
// metrics, the record counts and token bill, and a table of failed
// records with their error classes.
func renderReport(w io.Writer, agg *types.AggregateResult, failures []TaskFailure) {
	table := newTable([]string{"Metric", "Mean", "Std Dev"}, w)
	_ = table.Append([]string{"Precision", metric(agg.Precision.Mean), metric(agg.Precision.StdDev)})
	_ = table.Append([]string{"Recall", metric(agg.Recall.Mean), metric(agg.Recall.StdDev)})
	_ = table.Append([]string{"F1", metric(agg.F1.Mean), metric(agg.F1.StdDev)})
	_ = table.Render()

	fmt.Fprintf(w, "\nrecords: %d succeeded, %d failed, %d skipped\n",
		agg.Succeeded, agg.Failed, agg.Skipped)
	fmt.Fprintf(w, "tokens:  %d prompt, %d completion, %d total\n",
		agg.Usage.PromptTokens, agg.Usage.CompletionTokens, agg.Usage.TotalTokens)

	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "\nfailures:\n")
	ftable := newTable([]string{"Record", "Class", "Error"}, w)
	for _, f := range failures {
		_ = ftable.Append([]string{f.ID, f.Class, clip(f.Err, 60)})
	}
	_ = ftable.Render()
}

// renderJudgeReport writes the judge-performance comparison, one row
// per judge-output directory.
func renderJudgeReport(w io.Writer, perf map[string]types.AggregateResult) {
	dirs := make([]string, 0, len(perf))
	for dir := range perf {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	table := newTable([]string{"Judge Output", "Precision", "Recall", "F1", "Graded", "Unreadable"}, w)
	for _, dir := range dirs {
		agg := perf[dir]
		_ = table.Append([]string{
			dir,
			meanStd(agg.Precision),
			meanStd(agg.Recall),
			meanStd(agg.F1),
			strconv.Itoa(agg.Succeeded),
			strconv.Itoa(agg.Failed),
		})
	}
	_ = table.Render()
}

func metric(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func meanStd(m types.MetricSummary) string {
	return fmt.Sprintf("%s ± %s", metric(m.Mean), metric(m.StdDev))
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
