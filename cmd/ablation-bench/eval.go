// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ablation-bench/internal/harness"
	"github.com/pdiddy/ablation-bench/internal/judge"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Grade generated plans against ground-truth ablations",
	Long: `Eval loads the plans a previous plan run produced, grades each one
against the record's ground truth with the configured judge, and writes
per-record verdicts, aggregate precision/recall/F1, and a report into
the run directory. Re-running with the same --output-dir resumes.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().String("judge", "", "judge kind: simple_lm, sweagent or majority (overrides config)")
	evalCmd.Flags().String("judge-config", "", "judge YAML config file (required)")
	evalCmd.Flags().String("model", "", "model identifier, e.g. openai/gpt-4o (overrides config)")
	evalCmd.Flags().String("plans-dir", "", "run directory holding plans.json (required)")
	evalCmd.Flags().String("dataset", "researcher", "benchmark track: researcher or reviewer")
	evalCmd.Flags().String("split", "dev", "dataset split: dev or test")
	evalCmd.Flags().Int("top-k", 0, "grade only the first k suggestions (0 keeps all)")
	evalCmd.Flags().Int("parallelism", 0, "worker pool size (default 4)")
	evalCmd.Flags().String("output-dir", "", "run directory (default runs/<ts>-<id>)")
	evalCmd.Flags().String("data-dir", "", "dataset root (default data)")

	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := judgeConfig(cmd)
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

	plansDir, _ := cmd.Flags().GetString("plans-dir")
	if plansDir == "" {
		return fmt.Errorf("--plans-dir is required")
	}
	plans, err := harness.LoadPlans(plansDir)
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

	j, err := judge.New(cfg, judge.Options{
		Track:       track,
		DataDir:     hcfg.DataDir,
		CacheDir:    runDir,
		RunDir:      runDir,
		MaxAttempts: hcfg.MaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	fmt.Fprintf(os.Stdout, "evaluating %d plans with %s into %s\n",
		len(plans), j.Name(), runDir)

	o := harness.NewOrchestrator(hcfg, manifest, logger)
	// RunEvaluation prints the metrics report; failed records show up
	// there rather than failing the command.
	_, err = harness.RunEvaluation(cmd.Context(), o, harness.EvaluationJob{
		Judge:   j,
		Track:   track,
		Records: records,
		Plans:   plans,
		TopK:    topK,
		RunDir:  runDir,
	}, os.Stdout)
	return err
}

func judgeConfig(cmd *cobra.Command) (types.JudgeConfig, error) {
	path, _ := cmd.Flags().GetString("judge-config")
	if path == "" {
		return types.JudgeConfig{}, fmt.Errorf("--judge-config is required")
	}
	var cfg types.JudgeConfig
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if kind, _ := cmd.Flags().GetString("judge"); kind != "" {
		cfg.Kind = types.JudgeKind(kind)
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model.Name = model
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
