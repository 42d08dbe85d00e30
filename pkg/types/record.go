// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Track selects which ground truth a benchmark run grades against.
type Track string

const (
	// TrackResearcher grades a proposed plan against the ablations the
	// paper's authors actually ran.
	TrackResearcher Track = "researcher"

	// TrackReviewer grades a proposed plan against the ablations a
	// reviewer asked for.
	TrackReviewer Track = "reviewer"
)

// ParseTrack validates a track tag from configuration or flags.
func ParseTrack(s string) (Track, error) {
	switch Track(s) {
	case TrackResearcher:
		return TrackResearcher, nil
	case TrackReviewer:
		return TrackReviewer, nil
	default:
		return "", fmt.Errorf("unknown track %q (want researcher or reviewer)", s)
	}
}

// Split identifies a dataset split.
type Split string

const (
	SplitDev  Split = "dev"
	SplitTest Split = "test"
)

// ParseSplit validates a split tag from configuration or flags.
func ParseSplit(s string) (Split, error) {
	switch Split(s) {
	case SplitDev:
		return SplitDev, nil
	case SplitTest:
		return SplitTest, nil
	default:
		return "", fmt.Errorf("unknown split %q (want dev or test)", s)
	}
}

// PaperRecord is one benchmark item: a paper with its ablation section
// removed, plus the ground truth used to grade proposals against it.
// Records are loaded once per task and never mutated.
type PaperRecord struct {
	// ID is a slug identifying the paper (e.g. "2310.01798").
	ID string `json:"id"`

	// Title is the paper title.
	Title string `json:"paper_title"`

	// Abstract is the paper abstract.
	Abstract string `json:"paper_abstract"`

	// SourcePath is the directory of paper source files (tex, md, bib),
	// relative to the dataset root.
	SourcePath string `json:"paper_path"`

	// AblationsInPaper is the planning-track ground truth: the ablations
	// the authors ran.
	AblationsInPaper []AblationSuggestion `json:"ablations_in_paper,omitempty"`

	// ReviewText is the review-track ground truth: reviewer comments
	// naming missing ablations.
	ReviewText []string `json:"review_text,omitempty"`

	// Review-track counters describing the review's ablation content.
	NumAblationSuggestions  int `json:"num_ablation_suggestions,omitempty"`
	NumOverlapAblations     int `json:"num_overlap_ablations,omitempty"`
	NumNonExistingAblations int `json:"num_non_existing_ablations,omitempty"`

	// DockerImage optionally overrides the sandbox image for agent
	// episodes on this record.
	DockerImage string `json:"docker_image,omitempty"`
}

// GroundTruthSize returns the number of ground-truth items a judge must
// produce one verdict for on the given track.
func (r *PaperRecord) GroundTruthSize(track Track) int {
	if track == TrackReviewer {
		return r.NumAblationSuggestions
	}
	return len(r.AblationsInPaper)
}

// JudgeLabel is one ground-truth correctness label for judge-performance
// evaluation: whether the named item truly matches.
type JudgeLabel struct {
	Name    string `json:"name"`
	Matched bool   `json:"matched"`
}

// JudgeLabelSet carries the labels for one (model, record) judging task.
type JudgeLabelSet struct {
	// ID is "model/record", matching the judge output directory layout.
	ID     string       `json:"id"`
	Labels []JudgeLabel `json:"labels"`
}
