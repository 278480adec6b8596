// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/condition"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

// RunWait waits for a condition and then, if a command follows "--",
// runs it: ocpipe wait --condition K --resource R [--timeout MS] [-- cmd...]
// A failed or timed-out condition aborts; a skipped one lets the command
// run.
func (a *App) RunWait(ctx context.Context, args []string) int {
	var common commonFlags
	fs := a.flagSet("wait", &common)
	kindArg := fs.String("condition", "", "exists or not_exists")
	resource := fs.String("resource", "", "resource to check, e.g. pod/web")
	timeoutArg := fs.String("timeout", "", "timeout in milliseconds (default: config condition.timeout)")
	noTimeoutError := fs.Bool("no-timeout-error", false, "treat a timeout as skipped instead of an error")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	kind, err := condition.ParseKind(*kindArg)
	if err != nil {
		fmt.Fprintf(a.Stderr, "ocpipe wait: %v\n", err)
		return 2
	}
	if strings.TrimSpace(*resource) == "" {
		fmt.Fprintln(a.Stderr, "ocpipe wait: --resource is required")
		return 2
	}
	timeout := a.Config.Condition.Timeout
	if fs.Changed("timeout") {
		if timeout, err = condition.ParseTimeout(*timeoutArg); err != nil {
			fmt.Fprintf(a.Stderr, "ocpipe wait: %v\n", err)
			return 2
		}
	}

	e := a.executor(common.oc)
	q := condition.Query{
		Kind:           kind,
		Resource:       *resource,
		Timeout:        timeout,
		NoTimeoutError: *noTimeoutError,
		RunID:          uuid.NewString(),
	}
	start := time.Now()
	out := a.waiter(e).Wait(ctx, q)
	a.logAudit(audit.Record{
		RunID:    q.RunID,
		Kind:     audit.KindWait,
		Command:  kind.String() + " " + q.Resource,
		ExitCode: pipeline.ExitCode(out.Err()),
		Outcome:  out.Status.String(),
		Err:      out.Err(),
		Duration: time.Since(start),
		Cwd:      common.dir,
	})

	switch out.Status {
	case condition.OK:
		a.success("%s %s", q.Resource, conditionPhrase(kind))
	case condition.Skipped:
		a.warning("%s: timeout elapsed, continuing", q.Resource)
	default:
		return a.resolveError(out.Err())
	}

	line := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if line == "" {
		return 0
	}
	return a.resolveError(a.runLine(ctx, e, audit.KindExec, line, common.options()))
}

func conditionPhrase(k condition.Kind) string {
	if k == condition.NotExists {
		return "does not exist"
	}
	return "exists"
}
