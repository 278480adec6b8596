// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
	"github.com/marcelocantos/ocpipe/internal/workflow"
)

// RunWorkflow runs a workflow file: ocpipe run [flags] FILE
func (a *App) RunWorkflow(ctx context.Context, args []string) int {
	var common commonFlags
	fs := a.flagSet("run", &common)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.Stderr, "usage: ocpipe run [flags] FILE")
		return 2
	}

	wf, err := workflow.Load(fs.Arg(0))
	if err != nil {
		return a.resolveError(err)
	}

	e := a.executor(common.oc)
	runID := uuid.NewString()
	r := &workflow.Runner{
		Pipelines: e,
		Waiter:    a.waiter(e),
		Options:   common.options(),
		Timeout:   a.Config.Condition.Timeout,
		Logger:    a.Logger.With("run_id", runID),
		OnEvent: func(ev workflow.StepEvent) {
			rec := audit.Record{
				RunID:    runID,
				Kind:     audit.KindWorkflow,
				Command:  ev.Command,
				ExitCode: pipeline.ExitCode(ev.Err),
				Err:      ev.Err,
				Duration: ev.Duration,
				Cwd:      common.dir,
			}
			if ev.Outcome != nil {
				rec.Outcome = ev.Outcome.Status.String()
			}
			a.logAudit(rec)
			if ev.Err == nil {
				a.success("%s: %s", ev.Name, ev.Command)
			}
		},
	}
	if err := r.Run(ctx, wf); err != nil {
		return a.resolveError(err)
	}
	a.success("workflow %s completed (%d steps)", workflowName(wf, fs.Arg(0)), len(wf.Steps))
	return 0
}

func workflowName(wf *workflow.Workflow, path string) string {
	if wf.Name != "" {
		return wf.Name
	}
	return path
}
