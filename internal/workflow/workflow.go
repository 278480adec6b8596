// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package workflow runs a file of oc steps in order. A step may wait for
// a condition before running its commands.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/ocpipe/internal/condition"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

// Workflow is a named list of steps.
type Workflow struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one unit of a workflow. At least one of Cmd, Cmds and
// Condition is set. The condition, if any, is waited for first.
type Step struct {
	Name       string         `yaml:"name"`
	Cmd        string         `yaml:"cmd"`
	Cmds       string         `yaml:"cmds"` // one command per non-empty line
	IgnoreFlag bool           `yaml:"ignore_flag"`
	Condition  *ConditionStep `yaml:"condition"`
}

// ConditionStep gates a step on a resource condition.
type ConditionStep struct {
	Kind           string `yaml:"kind"` // exists or not_exists
	Resource       string `yaml:"resource"`
	Timeout        string `yaml:"timeout"` // milliseconds ("10000") or a Go duration ("90s"); empty means the runner default
	NoTimeoutError bool   `yaml:"no_timeout_error"`
}

// Label names a step for messages.
func (s Step) Label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d", i+1)
}

// Commands returns the command lines the step runs, in order.
func (s Step) Commands() []string {
	var cmds []string
	if c := strings.TrimSpace(s.Cmd); c != "" {
		cmds = append(cmds, c)
	}
	return append(cmds, pipeline.SplitCommands(s.Cmds)...)
}

// Query converts the step's condition. fallback applies when the step
// gives no timeout.
func (c *ConditionStep) Query(fallback time.Duration) (condition.Query, error) {
	kind, err := condition.ParseKind(c.Kind)
	if err != nil {
		return condition.Query{}, err
	}
	if strings.TrimSpace(c.Resource) == "" {
		return condition.Query{}, errors.New("condition needs a resource")
	}
	timeout := fallback
	if c.Timeout != "" {
		if timeout, err = parseTimeout(c.Timeout); err != nil {
			return condition.Query{}, fmt.Errorf("condition timeout: %w", err)
		}
	}
	return condition.Query{
		Kind:           kind,
		Resource:       c.Resource,
		Timeout:        timeout,
		NoTimeoutError: c.NoTimeoutError,
	}, nil
}

// parseTimeout accepts a bare integer as milliseconds, like the wait
// command, or a Go duration such as "90s".
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.Trim(s, "0123456789") == "" {
		return condition.ParseTimeout(s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// Load reads and validates a workflow file. Files ending in .json or
// .jsonc may carry comments and trailing commas; anything else is YAML.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", path, err)
	}
	return wf, nil
}

// Parse decodes and validates workflow YAML (or JSON, which YAML
// accepts). Unknown fields are rejected.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Validate checks every step.
func (wf *Workflow) Validate() error {
	if len(wf.Steps) == 0 {
		return errors.New("no steps")
	}
	for i, s := range wf.Steps {
		if s.Condition == nil && len(s.Commands()) == 0 {
			return fmt.Errorf("%s: needs cmd, cmds or condition", s.Label(i))
		}
		if s.Condition != nil {
			if _, err := s.Condition.Query(condition.DefaultTimeout); err != nil {
				return fmt.Errorf("%s: %w", s.Label(i), err)
			}
		}
	}
	return nil
}
