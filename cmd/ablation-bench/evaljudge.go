// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ablation-bench/internal/dataset"
	"github.com/pdiddy/ablation-bench/internal/harness"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

var evalJudgeCmd = &cobra.Command{
	Use:   "eval-judge",
	Short: "Grade judge verdicts against human correctness labels",
	Long: `Eval-judge measures how well LM judges agree with human annotators.
Each --judge-outputs directory holds the per-record verdict files an
eval run produced; the command grades every directory against the
labeled verdicts and writes judge_performance.json plus a comparison
report into the run directory.`,
	RunE: runEvalJudge,
}

func init() {
	evalJudgeCmd.Flags().String("dataset", "researcher", "benchmark track: researcher or reviewer")
	evalJudgeCmd.Flags().String("split", "dev", "dataset split: dev or test")
	evalJudgeCmd.Flags().StringSlice("judge-outputs", nil, "run directories holding judge verdict files (required)")
	evalJudgeCmd.Flags().String("labels", "", "labeled verdicts JSONL (default <data-dir>/<track>-judge/<split>.jsonl)")
	evalJudgeCmd.Flags().String("output-dir", "", "run directory (default runs/<ts>-<id>)")
	evalJudgeCmd.Flags().String("data-dir", "", "dataset root (default data)")

	rootCmd.AddCommand(evalJudgeCmd)
}

func runEvalJudge(cmd *cobra.Command, args []string) error {
	track, split, err := trackAndSplit(cmd)
	if err != nil {
		return err
	}
	hcfg, err := harnessConfig(cmd)
	if err != nil {
		return err
	}

	dirs, _ := cmd.Flags().GetStringSlice("judge-outputs")
	if len(dirs) == 0 {
		return fmt.Errorf("--judge-outputs is required")
	}

	labels, err := loadJudgeLabels(cmd, hcfg.DataDir, track, split)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("no judge labels for %s/%s", track, split)
	}

	runDir, err := harness.NewRunDir(hcfg.OutputDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "grading %d judge outputs against %d labeled records into %s\n",
		len(dirs), len(labels), runDir)

	_, err = harness.RunJudgeEval(cmd.Context(), harness.JudgeEvalJob{
		Labels:     labels,
		OutputDirs: dirs,
		RunDir:     runDir,
	}, logger, os.Stdout)
	return err
}

func loadJudgeLabels(cmd *cobra.Command, dataDir string, track types.Track, split types.Split) ([]types.JudgeLabelSet, error) {
	if path, _ := cmd.Flags().GetString("labels"); path != "" {
		return dataset.LoadJudgeLabelFile(path)
	}
	return dataset.LoadJudgeLabels(dataDir, track, split)
}
