// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt loads and renders the prompt templates planner and
// judge stages send to models.
//
// Templates come from stage configuration files, so a typo in a
// placeholder is a misconfiguration, not a runtime surprise: Load walks
// each template's parse tree and rejects any field reference the stage
// does not provide, before the first record is ever processed.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// Data carries every field a stage can expose to its templates. Which
// fields a given stage allows is declared at Load time.
type Data struct {
	// Title and Abstract identify the paper.
	Title    string
	Abstract string

	// Source is the paper's full text, assembled from its source files.
	Source string

	// Review is the review text (review track).
	Review string

	// AblationsInPaper is the ground-truth ablation list, one JSON
	// object per line (judge stages).
	AblationsInPaper string

	// Plan is the judged plan, one JSON object per line (judge stages).
	Plan string

	// NumAblations is the requested plan length (planner stages).
	NumAblations int
}

// Template is a validated system/user prompt pair.
type Template struct {
	system *template.Template
	user   *template.Template
}

// Load parses both prompts and validates their placeholders against the
// allowed field names.
func Load(prompts types.PromptsConfig, allowed []string) (*Template, error) {
	sys, err := parseOne("system", prompts.System, allowed)
	if err != nil {
		return nil, err
	}
	usr, err := parseOne("user", prompts.User, allowed)
	if err != nil {
		return nil, err
	}
	return &Template{system: sys, user: usr}, nil
}

func parseOne(name, text string, allowed []string) (*template.Template, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s prompt: %w", name, err)
	}
	fields := referencedFields(tmpl)
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		allowedSet[f] = struct{}{}
	}
	var bad []string
	for f := range fields {
		if _, ok := allowedSet[f]; !ok {
			bad = append(bad, f)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("%s prompt references unavailable fields: %s (available: %s)",
			name, strings.Join(bad, ", "), strings.Join(allowed, ", "))
	}
	return tmpl, nil
}

// System renders the system prompt.
func (t *Template) System(d Data) (string, error) {
	return render(t.system, d)
}

// User renders the user prompt.
func (t *Template) User(d Data) (string, error) {
	return render(t.user, d)
}

func render(tmpl *template.Template, d Data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// referencedFields collects the top-level field names a parsed template
// reads, e.g. {{.Title}} yields "Title".
func referencedFields(tmpl *template.Template) map[string]struct{} {
	fields := make(map[string]struct{})
	for _, t := range tmpl.Templates() {
		if t.Tree != nil && t.Tree.Root != nil {
			walkNode(t.Tree.Root, fields)
		}
	}
	return fields
}

func walkNode(node parse.Node, fields map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkNode(child, fields)
		}
	case *parse.ActionNode:
		walkPipe(n.Pipe, fields)
	case *parse.IfNode:
		walkBranch(&n.BranchNode, fields)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, fields)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, fields)
	case *parse.TemplateNode:
		walkPipe(n.Pipe, fields)
	}
}

func walkBranch(n *parse.BranchNode, fields map[string]struct{}) {
	walkPipe(n.Pipe, fields)
	walkNode(n.List, fields)
	if n.ElseList != nil {
		walkNode(n.ElseList, fields)
	}
}

func walkPipe(pipe *parse.PipeNode, fields map[string]struct{}) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				if len(a.Ident) > 0 {
					fields[a.Ident[0]] = struct{}{}
				}
			case *parse.PipeNode:
				walkPipe(a, fields)
			}
		}
	}
}
