// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the ablation-bench
// pipeline: ablation suggestions and plans, match verdicts, evaluation
// results, stage configuration, and the error taxonomy shared by the
// planner, judge, and harness stages.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Action identifies what an ablation does to the targeted component.
type Action string

const (
	ActionRemove  Action = "REMOVE"
	ActionReplace Action = "REPLACE"
	ActionAdd     Action = "ADD"
)

// ParseAction validates a raw action string, accepting any casing.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionRemove:
		return ActionRemove, nil
	case ActionReplace:
		return ActionReplace, nil
	case ActionAdd:
		return ActionAdd, nil
	default:
		return "", fmt.Errorf("unknown action %q (want REMOVE, REPLACE, or ADD)", s)
	}
}

// RequiresReplacement reports whether suggestions with this action must
// carry at least one replacement candidate.
func (a Action) RequiresReplacement() bool {
	return a == ActionReplace || a == ActionAdd
}

// Replacement is an ordered list of candidate replacement values for a
// REPLACE or ADD ablation. Models emit it as a JSON string, array, or
// object; all three decode into the flattened candidate list.
type Replacement []string

// UnmarshalJSON accepts null, a string, an array of strings, or an object
// whose values are the candidates.
func (r *Replacement) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*r = nil
		return nil
	}
	switch s[0] {
	case '"':
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*r = Replacement{one}
		return nil
	case '[':
		var many []string
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*r = Replacement(many)
		return nil
	case '{':
		var kv map[string]string
		if err := json.Unmarshal(data, &kv); err != nil {
			return err
		}
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		// Object form carries descriptions keyed by candidate name;
		// keys sorted for a stable candidate order.
		sort.Strings(keys)
		*r = Replacement(keys)
		return nil
	default:
		return fmt.Errorf("replacement must be a string, array, or object, got %s", truncate(s, 40))
	}
}

// AblationSuggestion is one proposed ablation experiment.
type AblationSuggestion struct {
	// Name identifies the suggestion. Unique within one Plan.
	Name string `json:"name"`

	// AblatedPart is the component or mechanism the ablation targets.
	AblatedPart string `json:"ablated_part"`

	// Action is what the ablation does to the part: REMOVE, REPLACE, or ADD.
	Action Action `json:"action"`

	// Replacement lists candidate replacement values. Required when
	// Action is REPLACE or ADD, empty otherwise.
	Replacement Replacement `json:"replacement,omitempty"`

	// Metrics names the measurements used to assess the ablation's effect.
	Metrics []string `json:"metrics,omitempty"`
}

// Validate checks the action/replacement invariant for one suggestion.
func (s *AblationSuggestion) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("suggestion has empty name")
	}
	action, err := ParseAction(string(s.Action))
	if err != nil {
		return fmt.Errorf("suggestion %q: %w", s.Name, err)
	}
	s.Action = action
	if action.RequiresReplacement() && len(s.Replacement) == 0 {
		return fmt.Errorf("suggestion %q: action %s requires a replacement", s.Name, action)
	}
	if !action.RequiresReplacement() && len(s.Replacement) > 0 {
		return fmt.Errorf("suggestion %q: action %s forbids a replacement", s.Name, action)
	}
	return nil
}

// PlanProvenance records which planner and model produced a Plan for
// which record.
type PlanProvenance struct {
	Planner  string `json:"planner"`
	Model    string `json:"model"`
	RecordID string `json:"record_id"`
}

// Plan is a ranked list of ablation suggestions for one paper. Order is
// meaningful: earlier entries are higher priority.
type Plan struct {
	Provenance  PlanProvenance       `json:"provenance"`
	Suggestions []AblationSuggestion `json:"suggestions"`
}

// Names returns the suggestion names in rank order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Suggestions))
	for i, s := range p.Suggestions {
		names[i] = s.Name
	}
	return names
}

// Truncate returns a copy keeping only the first k suggestions. k <= 0 or
// k beyond the plan length leaves the plan unchanged.
func (p *Plan) Truncate(k int) Plan {
	out := *p
	if k > 0 && k < len(p.Suggestions) {
		out.Suggestions = p.Suggestions[:k]
	}
	return out
}

// Validate checks every suggestion and the plan-wide name uniqueness
// invariant.
func (p *Plan) Validate() error {
	seen := make(map[string]struct{}, len(p.Suggestions))
	for i := range p.Suggestions {
		s := &p.Suggestions[i]
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate suggestion name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
