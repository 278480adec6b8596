// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
)

// RunHelp prints general usage.
func RunHelp(w io.Writer) int {
	fmt.Fprintln(w, "ocpipe: run oc command lines with pipes, redirects and condition waits")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  ocpipe exec [flags] '<cmd>'               run one command line")
	fmt.Fprintln(w, "  ocpipe exec-list [flags] --cmds TEXT      run one command per line, stop at first failure")
	fmt.Fprintln(w, "  ocpipe exec-list [flags] --file PATH")
	fmt.Fprintln(w, "  ocpipe wait --condition exists|not_exists --resource R")
	fmt.Fprintln(w, "              [--timeout MS] [--no-timeout-error] [-- cmd...]")
	fmt.Fprintln(w, "  ocpipe run [flags] FILE                   run a workflow (.yaml, .json, .jsonc)")
	fmt.Fprintln(w, "  ocpipe audit <verify|show> [-n N] [--run ID]")
	fmt.Fprintln(w, "  ocpipe mcp                                serve MCP tools on stdio")
	fmt.Fprintln(w, "  ocpipe version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags for exec, exec-list, wait, run and mcp:")
	fmt.Fprintln(w, "  --oc PATH       oc binary (default: config oc.path, then oc on PATH)")
	fmt.Fprintln(w, "  --ignore-flag   do not fail on stderr output or a non-zero exit")
	fmt.Fprintln(w, "  --silent        do not echo command output")
	fmt.Fprintln(w, "  --dir DIR       working directory for commands and relative redirects")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "command lines:")
	fmt.Fprintln(w, "  get pods                     the leading oc is optional on the first command")
	fmt.Fprintln(w, "  get pods | grep Running      pipe into a local tool")
	fmt.Fprintln(w, "  get pods > pods.txt          write stdout to a file (>> appends)")
	fmt.Fprintln(w, "  get pods 2> err.log          write stderr to a file (2>> appends)")
	fmt.Fprintln(w, "  get pod $(get pods -o name)  substitute the output of another oc command")
	fmt.Fprintln(w, "  get pods -n ${NAMESPACE}     interpolate the environment")
	return 0
}
