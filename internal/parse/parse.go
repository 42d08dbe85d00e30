// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse extracts structured predictions from raw model output.
//
// Planner and judge models reply with two tagged blocks: a free-text
// <discussion> and a <predictions> block holding one JSON object per
// line. Split enforces the block structure; the line decoders turn the
// predictions block into typed values, either excluding bad lines
// (lenient, for direct LM replies) or rejecting the whole batch (strict,
// for sandbox submissions).
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Mode controls how per-line failures are treated.
type Mode int

const (
	// Lenient excludes offending lines and reports them. One strict
	// JSON decode is attempted first, then one repair pass for the
	// near-JSON models produce (trailing commas, single quotes).
	Lenient Mode = iota

	// Strict rejects the whole batch on the first offending line, with
	// no repair pass. Used on the sandbox submit path, where the agent
	// can iterate until its submission is clean.
	Strict
)

// LineError describes one predictions line that failed to decode or
// validate.
type LineError struct {
	// Line is 1-based within the predictions block.
	Line int
	Text string
	Err  error
}

func (e LineError) String() string {
	return fmt.Sprintf("line %d: %v (%s)", e.Line, e.Err, truncate(e.Text, 60))
}

// Response is the two-block shape of a structured model reply.
type Response struct {
	Discussion  string
	Predictions string
}

// Split extracts the discussion and predictions blocks from raw model
// output. Each block must appear exactly once; anything else is a
// *types.MalformedOutputError.
func Split(raw string) (Response, error) {
	discussion, err := block(raw, "discussion")
	if err != nil {
		return Response{}, err
	}
	predictions, err := block(raw, "predictions")
	if err != nil {
		return Response{}, err
	}
	return Response{Discussion: discussion, Predictions: predictions}, nil
}

// block returns the body of the single <tag>...</tag> region in raw.
func block(raw, tag string) (string, error) {
	openTag, closeTag := "<"+tag+">", "</"+tag+">"
	start := strings.Index(raw, openTag)
	if start < 0 {
		return "", &types.MalformedOutputError{Reason: fmt.Sprintf("missing <%s> block", tag)}
	}
	rest := raw[start+len(openTag):]
	if strings.Contains(rest, openTag) {
		return "", &types.MalformedOutputError{Reason: fmt.Sprintf("duplicated <%s> block", tag)}
	}
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return "", &types.MalformedOutputError{Reason: fmt.Sprintf("unterminated <%s> block", tag)}
	}
	return strings.TrimSpace(rest[:end]), nil
}

// Suggestions parses a planner reply: block structure, then one
// AblationSuggestion per predictions line. Duplicate suggestion names
// are schema violations on the later line.
func Suggestions(raw string, mode Mode) (string, []types.AblationSuggestion, []LineError, error) {
	resp, err := Split(raw)
	if err != nil {
		return "", nil, nil, err
	}
	items, lineErrs, err := SuggestionLines(resp.Predictions, mode)
	return resp.Discussion, items, lineErrs, err
}

// SuggestionLines decodes a bare line-delimited document of suggestion
// objects, as found in predictions blocks and sandbox submission files.
func SuggestionLines(text string, mode Mode) ([]types.AblationSuggestion, []LineError, error) {
	seen := make(map[string]struct{})
	return decodeLines(text, mode, func(s *types.AblationSuggestion) error {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate suggestion name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
		return nil
	})
}

// Matches parses a judge reply: block structure, then one MatchResult
// per predictions line.
func Matches(raw string, mode Mode) (string, []types.MatchResult, []LineError, error) {
	resp, err := Split(raw)
	if err != nil {
		return "", nil, nil, err
	}
	items, lineErrs, err := MatchLines(resp.Predictions, mode)
	return resp.Discussion, items, lineErrs, err
}

// MatchLines decodes a bare line-delimited document of match verdicts.
func MatchLines(text string, mode Mode) ([]types.MatchResult, []LineError, error) {
	return decodeLines(text, mode, func(m *types.MatchResult) error {
		if m.Key() == "" {
			return fmt.Errorf("verdict names no ground-truth item")
		}
		return nil
	})
}

// decodeLines runs the per-line decode loop shared by both schemas.
// validate runs after a successful decode and may reject the value.
func decodeLines[T any](text string, mode Mode, validate func(*T) error) ([]T, []LineError, error) {
	var (
		items    []T
		lineErrs []LineError
	)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		item, err := decodeLine[T](line, mode)
		if err == nil {
			err = validate(&item)
		}
		if err != nil {
			if mode == Strict {
				return nil, nil, &types.MalformedOutputError{
					Reason: fmt.Sprintf("line %d: %s", i+1, truncate(line, 60)),
					Err:    err,
				}
			}
			lineErrs = append(lineErrs, LineError{Line: i + 1, Text: line, Err: err})
			continue
		}
		items = append(items, item)
	}
	return items, lineErrs, nil
}

func decodeLine[T any](line string, mode Mode) (T, error) {
	var item T
	strictErr := json.Unmarshal([]byte(line), &item)
	if strictErr == nil {
		return item, nil
	}
	if mode == Strict {
		return item, strictErr
	}
	repaired, repairErr := jsonrepair.JSONRepair(line)
	if repairErr != nil {
		return item, strictErr
	}
	var fixed T
	if err := json.Unmarshal([]byte(repaired), &fixed); err != nil {
		return item, strictErr
	}
	return fixed, nil
}

// RenderSuggestionLines encodes suggestions one JSON object per line,
// the inverse of SuggestionLines.
func RenderSuggestionLines(items []types.AblationSuggestion) (string, error) {
	return renderLines(items)
}

// RenderMatchLines encodes match verdicts one JSON object per line, the
// inverse of MatchLines.
func RenderMatchLines(items []types.MatchResult) (string, error) {
	return renderLines(items)
}

func renderLines[T any](items []T) (string, error) {
	var b strings.Builder
	for i := range items {
		data, err := json.Marshal(items[i])
		if err != nil {
			return "", fmt.Errorf("encoding line %d: %w", i+1, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
