// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NameList is the matched-counterpart field of a MatchResult. It carries
// zero names (no match), one name, or several (a merge/split match).
// The JSON forms are null, a bare string, and an array of strings; all
// three appear in judge output and all three round-trip.
type NameList []string

// UnmarshalJSON accepts null, a string, or an array of strings.
func (n *NameList) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = nil
		return nil
	}
	switch s[0] {
	case '"':
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if one == "" {
			*n = nil
			return nil
		}
		*n = NameList{one}
		return nil
	case '[':
		var many []string
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		out := many[:0]
		for _, name := range many {
			if name != "" {
				out = append(out, name)
			}
		}
		if len(out) == 0 {
			*n = nil
			return nil
		}
		*n = NameList(out)
		return nil
	default:
		return fmt.Errorf("counterpart must be null, a string, or an array, got %s", truncate(s, 40))
	}
}

// MarshalJSON emits null for no match, a bare string for a single
// counterpart, and an array otherwise.
func (n NameList) MarshalJSON() ([]byte, error) {
	switch len(n) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(n[0])
	default:
		return json.Marshal([]string(n))
	}
}

// Matched reports whether the list names at least one counterpart.
func (n NameList) Matched() bool { return len(n) > 0 }

// Contains reports whether name is one of the counterparts.
func (n NameList) Contains(name string) bool {
	for _, v := range n {
		if v == name {
			return true
		}
	}
	return false
}

// MatchResult is one judge verdict. On the planning track it links a
// ground-truth paper ablation (NameInPaper) to zero or more plan
// suggestions (NameInPlan). On the review track it records whether a plan
// suggestion (NameInPlan as the key, exactly one name) appears in the
// paper's review (AppearsInReview).
type MatchResult struct {
	NameInPaper string `json:"name_in_paper,omitempty"`

	// NameInPlan has no omitempty: an unmatched verdict must serialize
	// as an explicit null, never vanish.
	NameInPlan NameList `json:"name_in_plan"`

	AppearsInReview *bool `json:"appears_in_review,omitempty"`
}

// Matched reports whether this verdict is a positive match on its track.
func (m *MatchResult) Matched() bool {
	if m.AppearsInReview != nil {
		return *m.AppearsInReview
	}
	return m.NameInPlan.Matched()
}

// Key returns the ground-truth-side identity of the verdict: NameInPaper
// on the planning track, the single NameInPlan entry on the review track.
func (m *MatchResult) Key() string {
	if m.NameInPaper != "" {
		return m.NameInPaper
	}
	if len(m.NameInPlan) > 0 {
		return m.NameInPlan[0]
	}
	return ""
}

// JudgeVerdict is one member judge's boolean decision for one item,
// collected during ensemble voting.
type JudgeVerdict struct {
	Key         string
	Matched     bool
	Counterpart NameList
}
