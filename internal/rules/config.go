// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"maps"
	"slices"
)

// ProgramRule is one program's rules from the YAML config, keyed by
// program ("oc", "grep", ...).
type ProgramRule struct {
	RejectFlags []string           `yaml:"reject_flags"`
	Subcommands map[string]SubRule `yaml:"subcommands"`
}

// SubRule holds the rules for one subcommand, e.g. oc delete. The
// subcommand is the first non-flag argument, so global flags before it
// do not hide it.
type SubRule struct {
	Deny        bool     `yaml:"deny"`
	RejectFlags []string `yaml:"reject_flags"`
}

// Compile turns one program's config into CheckFuncs. Subcommands are
// compiled in name order.
func Compile(program string, cfg ProgramRule) []CheckFunc {
	var fns []CheckFunc

	if len(cfg.RejectFlags) > 0 {
		flags := cfg.RejectFlags
		fns = append(fns, func(p string, args []string) error {
			if p != program {
				return nil
			}
			if hasAnyFlag(args, flags...) {
				return fmt.Errorf("%w: %s: flag not allowed (config rule, one of %v)", ErrRejected, program, flags)
			}
			return nil
		})
	}

	for _, sub := range slices.Sorted(maps.Keys(cfg.Subcommands)) {
		rule := cfg.Subcommands[sub]
		if !rule.Deny && len(rule.RejectFlags) == 0 {
			continue
		}
		fns = append(fns, func(p string, args []string) error {
			if p != program || subcommand(args) != sub {
				return nil
			}
			if rule.Deny {
				return fmt.Errorf("%w: %s %s is not allowed (config rule)", ErrRejected, program, sub)
			}
			if hasAnyFlag(args, rule.RejectFlags...) {
				return fmt.Errorf("%w: %s %s: flag not allowed (config rule, one of %v)", ErrRejected, program, sub, rule.RejectFlags)
			}
			return nil
		})
	}
	return fns
}

// FromConfig builds a RuleSet from the hardcoded rules plus every
// configured program, in program order.
func FromConfig(cfg map[string]ProgramRule) *RuleSet {
	rs := NewRuleSet(Hardcoded()...)
	for _, program := range slices.Sorted(maps.Keys(cfg)) {
		rs.AddConfig(Compile(program, cfg[program])...)
	}
	return rs
}
