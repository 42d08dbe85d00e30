// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ablation-bench/internal/dataset"
	"github.com/pdiddy/ablation-bench/pkg/types"
)

// readYAML loads a standalone YAML config file into out.
func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// harnessConfig layers the run-level settings: config file and
// environment first, then flags, then defaults from Validate.
func harnessConfig(cmd *cobra.Command) (types.HarnessConfig, error) {
	cfg := types.HarnessConfig{
		Parallelism: viper.GetInt("harness.parallelism"),
		MaxAttempts: viper.GetInt("harness.max_attempts"),
		TaskTimeout: viper.GetDuration("harness.task_timeout"),
		DataDir:     viper.GetString("harness.data_dir"),
		OutputDir:   viper.GetString("harness.output_dir"),
	}
	if v, _ := cmd.Flags().GetInt("parallelism"); v > 0 {
		cfg.Parallelism = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadRecords resolves the track and split flags and loads the dataset.
func loadRecords(cmd *cobra.Command, dataDir string) (types.Track, []types.PaperRecord, error) {
	track, split, err := trackAndSplit(cmd)
	if err != nil {
		return "", nil, err
	}
	records, err := dataset.Load(dataDir, track, split)
	if err != nil {
		return "", nil, err
	}
	if len(records) == 0 {
		return "", nil, fmt.Errorf("dataset %s/%s is empty", track, split)
	}
	return track, records, nil
}

func trackAndSplit(cmd *cobra.Command) (types.Track, types.Split, error) {
	trackName, _ := cmd.Flags().GetString("dataset")
	track, err := types.ParseTrack(trackName)
	if err != nil {
		return "", "", err
	}
	splitName, _ := cmd.Flags().GetString("split")
	split, err := types.ParseSplit(splitName)
	if err != nil {
		return "", "", err
	}
	return track, split, nil
}
