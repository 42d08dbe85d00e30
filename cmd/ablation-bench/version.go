// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ablation-bench",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ablation-bench %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
