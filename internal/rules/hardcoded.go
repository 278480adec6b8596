// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package rules

import "fmt"

// Hardcoded returns the built-in rules that are always enforced regardless
// of configuration or --ignore-flag.
func Hardcoded() []CheckFunc {
	return []CheckFunc{
		checkDeleteEverywhere,
	}
}

// checkDeleteEverywhere blocks "oc delete --all" across every namespace.
func checkDeleteEverywhere(program string, args []string) error {
	if program != "oc" || subcommand(args) != "delete" {
		return nil
	}
	if flagSet(args, "--all") && (flagSet(args, "--all-namespaces") || hasAnyFlag(args, "-A")) {
		return fmt.Errorf("%w: refusing to delete every resource in every namespace. This operation is permanently blocked", ErrRejected)
	}
	return nil
}
