// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

// RunExec runs one command line: ocpipe exec [flags] <cmd...>
// The remaining arguments are joined with spaces, so a line containing
// pipes or redirects is best passed as a single quoted argument.
func (a *App) RunExec(ctx context.Context, args []string) int {
	var common commonFlags
	fs := a.flagSet("exec", &common)
	fs.SetInterspersed(false)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	line := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if line == "" {
		fmt.Fprintln(a.Stderr, "usage: ocpipe exec [flags] <command line>")
		return 2
	}
	return a.resolveError(a.runLine(ctx, a.executor(common.oc), audit.KindExec, line, common.options()))
}

// RunExecList runs several command lines in order, stopping at the first
// failure: ocpipe exec-list [flags] --cmds TEXT | --file PATH
func (a *App) RunExecList(ctx context.Context, args []string) int {
	var common commonFlags
	fs := a.flagSet("exec-list", &common)
	cmdsText := fs.String("cmds", "", "commands, one per line")
	file := fs.String("file", "", "read commands from a file, one per line")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	text := *cmdsText
	switch {
	case text != "" && *file != "":
		fmt.Fprintln(a.Stderr, "ocpipe exec-list: give --cmds or --file, not both")
		return 2
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			return a.resolveError(err)
		}
		text = string(data)
	}
	lines := pipeline.SplitCommands(text)
	if len(lines) == 0 {
		fmt.Fprintln(a.Stderr, "usage: ocpipe exec-list [flags] --cmds TEXT | --file PATH")
		return 2
	}

	e := a.executor(common.oc)
	for i, line := range lines {
		if err := a.runLine(ctx, e, audit.KindExecList, line, common.options()); err != nil {
			a.failure("command %d of %d failed: %s", i+1, len(lines), line)
			return a.resolveError(err)
		}
	}
	a.success("%d commands completed", len(lines))
	return 0
}

// runLine runs one command line and audits it.
func (a *App) runLine(ctx context.Context, e *pipeline.Executor, kind, line string, opts pipeline.Options) error {
	rep, err := e.RunReport(ctx, line, opts)
	a.logAudit(audit.Record{
		RunID:    rep.RunID,
		Kind:     kind,
		Command:  line,
		Programs: rep.Programs,
		ExitCode: pipeline.ExitCode(err),
		Err:      err,
		Duration: rep.Duration,
		Cwd:      opts.Dir,
	})
	return err
}
