// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ablation-bench CLI: planning
// ablation experiments for research papers with an LM, judging the
// plans against ground truth, and grading the judges themselves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/ablation-bench/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in the root PersistentPreRunE and shared by every
// subcommand. Structured logs go to stderr; progress lines and reports
// go to stdout.
var logger = zap.NewNop()

// rootCmd is the base command for the ablation-bench CLI.
var rootCmd = &cobra.Command{
	Use:   "ablation-bench",
	Short: "Benchmark LMs on proposing and judging ablation experiments",
	Long: `ablation-bench measures how well language models propose ablation
experiments for research papers, and how well LM judges grade those
proposals against what the papers actually ran (researcher track) or
what reviewers asked for (reviewer track).

Each stage is a subcommand: plan generates ablation plans for a dataset
split, eval judges stored plans and reports precision/recall/F1, and
eval-judge grades stored judge outputs against human labels.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		if err := secrets.Export(s); err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./ablation-bench.yaml or ~/.config/ablation-bench/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ablation-bench")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ablation-bench"))
		}
	}

	viper.SetEnvPrefix("ABLATION_BENCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
