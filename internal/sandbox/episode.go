// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

const (
	// SubmissionFile is the artifact the agent must leave in its work
	// directory when the episode ends.
	SubmissionFile = "predictions.jsonl"

	// ContainerWorkDir is where the episode work directory is mounted
	// inside the container. Agent images read the task description from
	// task.md under this directory and write SubmissionFile next to it.
	ContainerWorkDir = "/submission"

	taskFile = "task.md"
)

// Spec describes one agent episode.
type Spec struct {
	// ID names the episode log file; callers use the record id.
	ID string

	// Image overrides the configured default image when set.
	Image string

	// Task is the task description, written to task.md in the work
	// directory before the run.
	Task string

	// Files are seeded into the work directory before the run, keyed by
	// file name relative to the work directory.
	Files map[string]string

	// Mounts are bound into the container in addition to the work
	// directory.
	Mounts []Mount

	// Env is passed to the container environment.
	Env map[string]string
}

// Result is what a finished episode leaves behind.
type Result struct {
	// Artifact is the raw content of the submission file.
	Artifact []byte

	// LogPath is the file holding the episode's combined stdout and stderr.
	LogPath string
}

// Runner executes agent episodes against a container runtime. Each episode
// owns a fresh work directory and container; nothing is shared between
// concurrent episodes except the log directory.
type Runner struct {
	runtime Runtime
	cfg     types.SandboxConfig
	logDir  string
	logger  *zap.Logger
}

// NewRunner verifies the default image exists and returns a Runner writing
// episode logs under logDir.
func NewRunner(rt Runtime, cfg types.SandboxConfig, logDir string, logger *zap.Logger) (*Runner, error) {
	if cfg.Image != "" {
		if err := rt.ImageExists(cfg.Image); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating episode log directory: %w", err)
	}
	return &Runner{runtime: rt, cfg: cfg, logDir: logDir, logger: logger}, nil
}

// Run executes one episode to completion and returns the submission
// artifact. An episode that exits without leaving a submission file fails
// with SandboxProtocolError; validation of the artifact content is the
// caller's concern.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	image := spec.Image
	if image == "" {
		image = r.cfg.Image
	}
	if image == "" {
		return nil, fmt.Errorf("episode %s: no sandbox image configured", spec.ID)
	}

	workDir, err := os.MkdirTemp("", "episode-")
	if err != nil {
		return nil, fmt.Errorf("creating episode work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := seedWorkDir(workDir, spec); err != nil {
		return nil, fmt.Errorf("episode %s: %w", spec.ID, err)
	}

	logPath := filepath.Join(r.logDir, spec.ID+".episode.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating episode log: %w", err)
	}
	defer logFile.Close()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	r.logger.Info("starting episode",
		zap.String("id", spec.ID),
		zap.String("image", image),
		zap.String("runtime", r.runtime.Name()))

	mounts := append([]Mount{{Host: workDir, Container: ContainerWorkDir}}, spec.Mounts...)
	runErr := r.runtime.Run(ctx, RunSpec{
		Image:  image,
		User:   "root",
		Mounts: mounts,
		Env:    spec.Env,
		Output: logFile,
	})
	if runErr != nil {
		return nil, fmt.Errorf("episode %s failed (log: %s): %w", spec.ID, logPath, runErr)
	}

	artifact, err := os.ReadFile(filepath.Join(workDir, SubmissionFile))
	if err != nil {
		return nil, &types.SandboxProtocolError{
			Reason: fmt.Sprintf("episode %s left no %s (log: %s)", spec.ID, SubmissionFile, logPath),
		}
	}

	r.logger.Debug("episode finished",
		zap.String("id", spec.ID),
		zap.Int("artifact_bytes", len(artifact)))
	return &Result{Artifact: artifact, LogPath: logPath}, nil
}

// providerKeyEnvs are forwarded into episodes so the agent can reach the
// same model providers as the host.
var providerKeyEnvs = []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY", "ANTHROPIC_API_KEY"}

// AgentEnv builds the environment for an agent episode: the model it
// should use plus whichever provider keys the host environment carries.
func AgentEnv(model string) map[string]string {
	env := map[string]string{"MODEL_NAME": model}
	for _, key := range providerKeyEnvs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			env[key] = v
		}
	}
	return env
}

func seedWorkDir(workDir string, spec Spec) error {
	if err := os.WriteFile(filepath.Join(workDir, taskFile), []byte(spec.Task), 0o644); err != nil {
		return fmt.Errorf("writing task file: %w", err)
	}
	for name, content := range spec.Files {
		path := filepath.Join(workDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("seeding %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("seeding %s: %w", name, err)
		}
	}
	return nil
}
