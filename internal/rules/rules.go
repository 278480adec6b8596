// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package rules vets resolved stages before a pipeline launches.
package rules

import (
	"errors"
	"strings"
)

// ErrRejected reports a stage blocked by a rule.
var ErrRejected = errors.New("rejected by rule")

// CheckFunc validates the arguments of one stage. program is "oc" for oc
// stages and the base name of the executable otherwise. A non-nil error
// blocks the whole pipeline.
type CheckFunc func(program string, args []string) error

// RuleSet holds an ordered list of rules. Hardcoded rules run first and
// cannot be removed. Config rules are appended after.
type RuleSet struct {
	hardcoded []CheckFunc
	config    []CheckFunc
}

// NewRuleSet creates a RuleSet with the given hardcoded rules.
func NewRuleSet(hardcoded ...CheckFunc) *RuleSet {
	return &RuleSet{hardcoded: hardcoded}
}

// AddConfig appends config-driven rules.
func (rs *RuleSet) AddConfig(fns ...CheckFunc) {
	rs.config = append(rs.config, fns...)
}

// Check runs every rule against one stage, hardcoded rules first.
func (rs *RuleSet) Check(program string, args []string) error {
	if rs == nil {
		return nil
	}
	for _, fn := range rs.hardcoded {
		if err := fn(program, args); err != nil {
			return err
		}
	}
	for _, fn := range rs.config {
		if err := fn(program, args); err != nil {
			return err
		}
	}
	return nil
}

// valueFlags are oc global flags whose value may follow as a separate
// argument.
var valueFlags = map[string]bool{
	"-n": true, "--namespace": true,
	"-s": true, "--server": true,
	"--context": true, "--cluster": true, "--user": true,
	"--kubeconfig": true, "--token": true,
	"--as": true, "--as-group": true, "--as-uid": true,
	"--certificate-authority": true, "--client-certificate": true, "--client-key": true,
	"--tls-server-name": true, "--request-timeout": true,
	"--cache-dir": true, "--loglevel": true, "-v": true, "--v": true,
}

// subcommand returns the first non-flag argument before any "--",
// skipping the separate values of global flags, or "" if there is none.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return ""
		case len(arg) > 1 && arg[0] == '-':
			if valueFlags[arg] {
				i++
			}
		default:
			return arg
		}
	}
	return ""
}

// hasAnyFlag reports whether any argument before a "--" terminator sets
// one of flags. It matches:
//   - Exact: "-A" matches "-A"
//   - Short flag with attached value: "-nprod" matches "-n"
//   - Long flag with =: "--all-namespaces=true" matches "--all-namespaces"
func hasAnyFlag(args []string, flags ...string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}
		for _, flag := range flags {
			if arg == flag {
				return true
			}
			if len(flag) == 2 && flag[1] != '-' && arg[1] != '-' && strings.HasPrefix(arg, flag) {
				return true
			}
			if strings.HasPrefix(flag, "--") && strings.HasPrefix(arg, flag+"=") {
				return true
			}
		}
	}
	return false
}

// flagSet reports whether a long boolean flag is set and not explicitly
// false.
func flagSet(args []string, flag string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == flag {
			return true
		}
		if v, ok := strings.CutPrefix(arg, flag+"="); ok {
			return v != "false"
		}
	}
	return false
}
