// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ablation-bench/internal/harness"
	"github.com/pdiddy/ablation-bench/internal/planner"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate ablation plans for a dataset split",
	Long: `Plan runs the configured planner over every record of a dataset split
and writes one ranked ablation plan per paper into the run directory.
Re-running with the same --output-dir resumes: records already planned
are skipped and failed ones are retried.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().String("planner", "", "planner kind: simple_lm or sweagent (overrides config)")
	planCmd.Flags().String("planner-config", "", "planner YAML config file (required)")
	planCmd.Flags().String("model", "", "model identifier, e.g. openai/gpt-4o (overrides config)")
	planCmd.Flags().String("dataset", "researcher", "benchmark track: researcher or reviewer")
	planCmd.Flags().String("split", "dev", "dataset split: dev or test")
	planCmd.Flags().Int("num-ablations", 0, "maximum plan length (default 5)")
	planCmd.Flags().Int("parallelism", 0, "worker pool size (default 4)")
	planCmd.Flags().String("output-dir", "", "run directory (default runs/<ts>-<id>)")
	planCmd.Flags().String("data-dir", "", "dataset root (default data)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := plannerConfig(cmd)
	if err != nil {
		return err
	}
	hcfg, err := harnessConfig(cmd)
	if err != nil {
		return err
	}
	track, records, err := loadRecords(cmd, hcfg.DataDir)
	if err != nil {
		return err
	}

	runDir, err := harness.NewRunDir(hcfg.OutputDir)
	if err != nil {
		return err
	}
	manifest, err := harness.OpenManifest(runDir)
	if err != nil {
		return err
	}
	defer manifest.Close()

	p, err := planner.New(cfg, planner.Options{
		DataDir:     hcfg.DataDir,
		CacheDir:    runDir,
		RunDir:      runDir,
		MaxAttempts: hcfg.MaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "planning %d %s records with %s into %s\n",
		len(records), track, p.Name(), runDir)

	o := harness.NewOrchestrator(hcfg, manifest, logger)
	summary, err := harness.RunPlanning(cmd.Context(), o, harness.PlanningJob{
		Planner: p,
		Records: records,
		RunDir:  runDir,
	}, os.Stdout)
	if err != nil {
		return err
	}

	// Per-record failures are data, not a command failure.
	fmt.Fprintf(os.Stdout, "planned %d records: %d succeeded, %d failed, %d skipped\n",
		summary.Total(), summary.Succeeded, summary.Failed, summary.Skipped)
	return nil
}

func plannerConfig(cmd *cobra.Command) (types.PlannerConfig, error) {
	path, _ := cmd.Flags().GetString("planner-config")
	if path == "" {
		return types.PlannerConfig{}, fmt.Errorf("--planner-config is required")
	}
	var cfg types.PlannerConfig
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if kind, _ := cmd.Flags().GetString("planner"); kind != "" {
		cfg.Kind = types.PlannerKind(kind)
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model.Name = model
	}
	if n, _ := cmd.Flags().GetInt("num-ablations"); n > 0 {
		cfg.NumAblations = n
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
