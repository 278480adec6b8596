// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

func checkLine(resource string) string {
	return "get " + resource + " -o name"
}

func watchLine(resource string) string {
	return "get " + resource + " -o name --watch=true"
}

// isNotFound reports whether stderr text is oc's "not found" error.
func isNotFound(stderr string) bool {
	return strings.HasSuffix(strings.TrimRight(stderr, "\r\n"), "not found")
}

// evaluate runs one silent existence query and maps it onto an outcome.
//
//	observed                 Exists      NotExists
//	error, not "not found"   Failed      Failed
//	error, "not found"       inProgress  OK
//	output                   OK          inProgress
//	no output                inProgress  OK
func (w *Waiter) evaluate(ctx context.Context, kind Kind, resource string) Outcome {
	res := w.launcher.RunOnce(ctx, checkLine(resource), true)
	if res.Failed() {
		if isNotFound(res.Stderr) {
			if kind == NotExists {
				return Outcome{Status: OK}
			}
			return Outcome{Status: inProgress}
		}
		return failed(failureReason(res))
	}
	if strings.TrimSpace(res.Stdout) != "" {
		if kind == Exists {
			return Outcome{Status: OK}
		}
		return Outcome{Status: inProgress}
	}
	if kind == NotExists {
		return Outcome{Status: OK}
	}
	return Outcome{Status: inProgress}
}

func failureReason(res pipeline.Result) string {
	switch {
	case res.Err != nil:
		return res.Err.Error()
	case strings.TrimSpace(res.Stderr) != "":
		return strings.TrimSpace(res.Stderr)
	default:
		return fmt.Sprintf("exited with code %d", res.ExitCode)
	}
}
