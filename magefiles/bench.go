// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Smoke builds the CLI and checks that it starts.
func Smoke() error {
	mg.Deps(Build)
	return run(filepath.Join(binDir, binName), "version")
}

// PlanDev runs the simple LM planner over the researcher dev split.
func PlanDev() error {
	mg.Deps(Build)
	return run(filepath.Join(binDir, binName), "plan",
		"--planner-config", "configs/planner/simple_lm.yaml",
		"--dataset", "researcher", "--split", "dev")
}

// EvalDev grades the plans under plansDir with the simple LM judge on the
// researcher dev split.
func EvalDev(plansDir string) error {
	mg.Deps(Build)
	return run(filepath.Join(binDir, binName), "eval",
		"--judge-config", "configs/judge/simple_lm.yaml",
		"--plans-dir", plansDir,
		"--dataset", "researcher", "--split", "dev")
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
