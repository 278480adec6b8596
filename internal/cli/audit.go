// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/marcelocantos/ocpipe/internal/audit"
)

// RunAudit handles the ocpipe audit subcommand.
func (a *App) RunAudit(args []string) int {
	w := a.Stdout
	logPath := a.Config.Audit.Path
	if len(args) == 0 {
		fmt.Fprintln(a.Stderr, "usage: ocpipe audit <verify|show> [-n N] [--run ID]")
		return 2
	}

	switch args[0] {
	case "verify":
		n, err := audit.Verify(logPath)
		if err != nil {
			a.failure("audit verification FAILED: %v", err)
			return 1
		}
		a.success("audit log integrity verified (%d entries)", n)
		return 0

	case "show", "tail":
		fs := a.flagSet("audit show", nil)
		n := fs.IntP("lines", "n", 20, "number of entries to show")
		runID := fs.String("run", "", "only entries with this run ID")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		entries, err := audit.Tail(logPath, *n, *runID)
		if err != nil {
			fmt.Fprintf(a.Stderr, "ocpipe audit: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no audit entries")
			return 0
		}
		for _, e := range entries {
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintf(w, "%s\n", data)
		}
		return 0

	default:
		fmt.Fprintf(a.Stderr, "ocpipe audit: unknown subcommand %q\n", args[0])
		return 2
	}
}
