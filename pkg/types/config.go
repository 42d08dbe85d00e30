// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// ReasoningEffort selects how much deliberation a reasoning model spends.
type ReasoningEffort string

const (
	EffortNone   ReasoningEffort = ""
	EffortLow    ReasoningEffort = "low"
	EffortMedium ReasoningEffort = "medium"
	EffortHigh   ReasoningEffort = "high"
)

// ModelConfig holds the settings for one LM.
type ModelConfig struct {
	// Name is the provider-prefixed model identifier
	// (e.g. "openai/gpt-4o", "anthropic/claude-sonnet-4-5", "openrouter/...").
	Name string `json:"name" yaml:"name"`

	// Temperature is the sampling temperature in [0, 1] (default 0).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// TopP is the nucleus sampling cutoff (default 1).
	TopP float64 `json:"top_p" yaml:"top_p"`

	// MaxTokens caps the completion length. 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// ReasoningEffort is passed to reasoning models: low, medium, or high.
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty" yaml:"reasoning_effort,omitempty"`

	// RequestTimeout bounds one completion call (default 10m).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// RequestsPerMinute paces calls to the provider. 0 disables pacing.
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
}

// Validate checks ranges and applies defaults.
func (c *ModelConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature %v out of range [0, 1]", c.Temperature)
	}
	if c.TopP == 0 {
		c.TopP = 1
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("top_p %v out of range [0, 1]", c.TopP)
	}
	switch c.ReasoningEffort {
	case EffortNone, EffortLow, EffortMedium, EffortHigh:
	default:
		return fmt.Errorf("unknown reasoning_effort %q (want low, medium, or high)", c.ReasoningEffort)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Minute
	}
	return nil
}

// PromptsConfig holds the template text for one LM stage.
type PromptsConfig struct {
	// System is the system prompt template.
	System string `json:"system" yaml:"system"`

	// User is the user prompt template.
	User string `json:"user" yaml:"user"`
}

// SandboxConfig holds settings for agent episodes.
type SandboxConfig struct {
	// Image is the container image episodes run in. A record's
	// DockerImage overrides it.
	Image string `json:"image" yaml:"image"`

	// Runtime forces a container runtime ("docker" or "podman");
	// empty autodetects.
	Runtime string `json:"runtime,omitempty" yaml:"runtime,omitempty"`

	// Timeout bounds one episode end to end (default 30m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// PlannerKind selects the planner implementation.
type PlannerKind string

const (
	PlannerSimpleLM PlannerKind = "simple_lm"
	PlannerSWEAgent PlannerKind = "sweagent"
)

// PlannerConfig holds settings for the planning stage, loaded from a
// standalone YAML file.
type PlannerConfig struct {
	// Kind selects the implementation: simple_lm or sweagent.
	Kind PlannerKind `json:"kind" yaml:"kind"`

	Model   ModelConfig   `json:"model" yaml:"model"`
	Prompts PromptsConfig `json:"prompts" yaml:"prompts"`

	// NumAblations is the maximum plan length (default 5).
	NumAblations int `json:"num_ablations" yaml:"num_ablations"`

	// Sandbox configures agent episodes (sweagent only).
	Sandbox SandboxConfig `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`

	// MaxSourceBytes caps the paper source included in prompts
	// (default 400KiB).
	MaxSourceBytes int `json:"max_source_bytes" yaml:"max_source_bytes"`
}

// Validate checks the planner configuration and applies defaults.
func (c *PlannerConfig) Validate() error {
	switch c.Kind {
	case PlannerSimpleLM, PlannerSWEAgent:
	default:
		return fmt.Errorf("unknown planner kind %q (want simple_lm or sweagent)", c.Kind)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("planner model: %w", err)
	}
	if c.NumAblations <= 0 {
		c.NumAblations = 5
	}
	if c.MaxSourceBytes <= 0 {
		c.MaxSourceBytes = 400 << 10
	}
	if c.Kind == PlannerSimpleLM {
		if c.Prompts.System == "" || c.Prompts.User == "" {
			return fmt.Errorf("planner %s requires system and user prompts", c.Kind)
		}
	}
	if c.Kind == PlannerSWEAgent {
		if err := c.Sandbox.validate(); err != nil {
			return fmt.Errorf("planner sandbox: %w", err)
		}
	}
	return nil
}

// JudgeKind selects the judge implementation.
type JudgeKind string

const (
	JudgeSimpleLM JudgeKind = "simple_lm"
	JudgeSWEAgent JudgeKind = "sweagent"
	JudgeMajority JudgeKind = "majority"
)

// TiePolicy decides an ensemble item when the vote splits evenly.
type TiePolicy string

const (
	// TieUnmatched treats an even split as no match. Conservative:
	// favors precision of the benchmark over recall.
	TieUnmatched TiePolicy = "unmatched"

	// TieMatched treats an even split as a match.
	TieMatched TiePolicy = "matched"
)

// JudgeConfig holds settings for the judging stage, loaded from a
// standalone YAML file. Majority judges nest their members under Members.
type JudgeConfig struct {
	// Kind selects the implementation: simple_lm, sweagent, or majority.
	Kind JudgeKind `json:"kind" yaml:"kind"`

	Model   ModelConfig   `json:"model,omitempty" yaml:"model,omitempty"`
	Prompts PromptsConfig `json:"prompts,omitempty" yaml:"prompts,omitempty"`

	// Sandbox configures agent episodes (sweagent only).
	Sandbox SandboxConfig `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`

	// Members are the ensemble's member judges (majority only).
	Members []JudgeConfig `json:"members,omitempty" yaml:"members,omitempty"`

	// Ties selects the even-split policy (majority only, default unmatched).
	Ties TiePolicy `json:"ties,omitempty" yaml:"ties,omitempty"`
}

// Validate checks the judge configuration tree and applies defaults.
func (c *JudgeConfig) Validate() error {
	switch c.Kind {
	case JudgeSimpleLM:
		if err := c.Model.Validate(); err != nil {
			return fmt.Errorf("judge model: %w", err)
		}
		if c.Prompts.System == "" || c.Prompts.User == "" {
			return fmt.Errorf("judge %s requires system and user prompts", c.Kind)
		}
	case JudgeSWEAgent:
		if err := c.Model.Validate(); err != nil {
			return fmt.Errorf("judge model: %w", err)
		}
		if err := c.Sandbox.validate(); err != nil {
			return fmt.Errorf("judge sandbox: %w", err)
		}
	case JudgeMajority:
		if len(c.Members) < 2 {
			return fmt.Errorf("majority judge requires at least 2 members, got %d", len(c.Members))
		}
		for i := range c.Members {
			if c.Members[i].Kind == JudgeMajority {
				return fmt.Errorf("majority judge members cannot be majority judges")
			}
			if err := c.Members[i].Validate(); err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
		}
		switch c.Ties {
		case "":
			c.Ties = TieUnmatched
		case TieUnmatched, TieMatched:
		default:
			return fmt.Errorf("unknown tie policy %q (want unmatched or matched)", c.Ties)
		}
	default:
		return fmt.Errorf("unknown judge kind %q (want simple_lm, sweagent, or majority)", c.Kind)
	}
	return nil
}

func (c *SandboxConfig) validate() error {
	if strings.TrimSpace(c.Image) == "" {
		return fmt.Errorf("sandbox image is required")
	}
	switch c.Runtime {
	case "", "docker", "podman":
	default:
		return fmt.Errorf("unknown sandbox runtime %q (want docker or podman)", c.Runtime)
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Minute
	}
	return nil
}

// HarnessConfig holds the run-level settings shared by every stage.
type HarnessConfig struct {
	// Parallelism is the worker pool size (default 4).
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// MaxAttempts bounds retries of transient failures per record (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// TaskTimeout bounds one record end to end (default 1h).
	TaskTimeout time.Duration `json:"task_timeout" yaml:"task_timeout"`

	// DataDir is the dataset root (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OutputDir is the run directory. Empty generates runs/<ts>-<id>.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Validate applies harness defaults.
func (c *HarnessConfig) Validate() error {
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.TaskTimeout == 0 {
		c.TaskTimeout = time.Hour
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	return nil
}

// BenchConfig groups the application-level configuration read by viper.
type BenchConfig struct {
	Harness HarnessConfig `json:"harness" yaml:"harness"`
}
