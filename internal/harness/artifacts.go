// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/ablation-bench/internal/parse"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Run directory artifact names. Per-record files sit next to these,
// named {record-id}.jsonl for plans and {record-id}.matches.jsonl for
// judge verdicts.
const (
	plansFile       = "plans.json"
	evaluationsFile = "evaluations.json"
	summaryFile     = "summary.json"
	reportFile      = "report.txt"
	judgePerfFile   = "judge_performance.json"
)

func planPath(dir, id string) string {
	return filepath.Join(dir, id+".jsonl")
}

func matchesPath(dir, id string) string {
	return filepath.Join(dir, id+".matches.jsonl")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSONIfExists loads path into v, treating a missing file as empty.
// A fresh run directory has no index yet; a resumed one does.
func readJSONIfExists(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeLines(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writePlanLines(dir, id string, plan *types.Plan) error {
	text, err := parse.RenderSuggestionLines(plan.Suggestions)
	if err != nil {
		return fmt.Errorf("rendering plan for %s: %w", id, err)
	}
	return writeLines(planPath(dir, id), text)
}

func writeMatchLines(dir, id string, matches []types.MatchResult) error {
	text, err := parse.RenderMatchLines(matches)
	if err != nil {
		return fmt.Errorf("rendering verdicts for %s: %w", id, err)
	}
	return writeLines(matchesPath(dir, id), text)
}

// readMatchLines loads one record's stored judge verdicts. Files this
// module wrote itself are strict JSON, line per verdict.
func readMatchLines(dir, id string) ([]types.MatchResult, error) {
	data, err := os.ReadFile(matchesPath(dir, id))
	if err != nil {
		return nil, fmt.Errorf("reading verdicts for %s: %w", id, err)
	}
	matches, _, err := parse.MatchLines(string(data), parse.Strict)
	if err != nil {
		return nil, fmt.Errorf("parsing verdicts for %s: %w", id, err)
	}
	return matches, nil
}
