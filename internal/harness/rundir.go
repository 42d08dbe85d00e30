// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// NewRunDir resolves the directory for one invocation. An empty dir
// picks a fresh runs/<timestamp>-<id> path; naming an existing
// directory reuses its manifest, which is how runs resume.
func NewRunDir(dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join("runs", fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.NewString()[:8]))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return dir, nil
}
