// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset loads benchmark records and assembles paper sources.
//
// Datasets live under a root directory as line-delimited JSON, one
// record per line:
//
//	<root>/researcher/dev.jsonl
//	<root>/reviewer/test.jsonl
//	<root>/researcher-judge/dev.jsonl   (judge-performance labels)
//
// Paper source trees referenced by records sit under the same root.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Scanner buffer for one record line. Abstracts and reviews are long.
const maxLineBytes = 4 << 20

// Load reads every record of one track and split.
func Load(dataDir string, track types.Track, split types.Split) ([]types.PaperRecord, error) {
	path := filepath.Join(dataDir, string(track), string(split)+".jsonl")
	var records []types.PaperRecord
	err := readLines(path, func(lineNo int, data []byte) error {
		var rec types.PaperRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("record at line %d: %w", lineNo, err)
		}
		if rec.ID == "" {
			return fmt.Errorf("record at line %d has no id", lineNo)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := checkUniqueIDs(records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadJudgeLabels reads the ground-truth verdict labels used to grade a
// judge's own performance from their conventional dataset location.
func LoadJudgeLabels(dataDir string, track types.Track, split types.Split) ([]types.JudgeLabelSet, error) {
	return LoadJudgeLabelFile(filepath.Join(dataDir, string(track)+"-judge", string(split)+".jsonl"))
}

// LoadJudgeLabelFile reads judge labels from an explicit JSONL file.
func LoadJudgeLabelFile(path string) ([]types.JudgeLabelSet, error) {
	var sets []types.JudgeLabelSet
	err := readLines(path, func(lineNo int, data []byte) error {
		var set types.JudgeLabelSet
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("label set at line %d: %w", lineNo, err)
		}
		if set.ID == "" {
			return fmt.Errorf("label set at line %d has no id", lineNo)
		}
		sets = append(sets, set)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func readLines(path string, handle func(int, []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := handle(lineNo, []byte(line)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func checkUniqueIDs(records []types.PaperRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("duplicate record id %q", rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}
	return nil
}

// Source file extensions included in assembled paper text.
var sourceExts = map[string]bool{
	".tex":  true,
	".text": true,
	".txt":  true,
	".bib":  true,
	".bbl":  true,
	".md":   true,
}

// PaperSource concatenates the record's source files, each wrapped in a
// <file name="relative/path"> tag. Files are visited in sorted path
// order; output is truncated at maxBytes (0 means no cap). Records
// without a source path yield the empty string.
func PaperSource(dataDir string, rec *types.PaperRecord, maxBytes int) (string, error) {
	if rec.SourcePath == "" {
		return "", nil
	}
	root := filepath.Join(dataDir, rec.SourcePath)
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && sourceExts[filepath.Ext(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking paper source %s: %w", root, err)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading paper source: %w", err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("relativizing %s: %w", path, err)
		}
		fmt.Fprintf(&b, "<file name=%q>\n", filepath.ToSlash(rel))
		b.Write(content)
		b.WriteString("\n</file>\n")
		if maxBytes > 0 && b.Len() >= maxBytes {
			return b.String()[:maxBytes], nil
		}
	}
	return b.String(), nil
}
