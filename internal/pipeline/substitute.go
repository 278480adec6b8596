// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Substitute replaces every $(...) in line with the trimmed stdout of
// running its contents through RunOnce. Each occurrence runs separately,
// left to right. Nesting is not supported: the first ')' closes.
func (e *Executor) Substitute(ctx context.Context, line string) (string, error) {
	for _, inner := range findSubstitutions(line) {
		res := e.RunOnce(ctx, inner, true)
		out := strings.TrimSpace(res.Stdout)
		switch {
		case res.Err != nil:
			return "", fmt.Errorf("%w: $(%s): %w", ErrSubstitutionFailed, inner, res.Err)
		case res.ExitCode != 0:
			return "", fmt.Errorf("%w: $(%s) exited with code %d", ErrSubstitutionFailed, inner, res.ExitCode)
		case out == "":
			return "", fmt.Errorf("%w: $(%s) printed nothing", ErrSubstitutionFailed, inner)
		}
		e.logger().Debug("substituted", "command", inner, "value", out)
		line = strings.Replace(line, "$("+inner+")", out, 1)
	}
	return line, nil
}

// findSubstitutions returns the contents of each $(...) in line, in order.
// An unterminated $( is left alone.
func findSubstitutions(line string) []string {
	var found []string
	for i := 0; i < len(line); {
		open := strings.Index(line[i:], "$(")
		if open < 0 {
			break
		}
		start := i + open + 2
		end := strings.IndexByte(line[start:], ')')
		if end < 0 {
			break
		}
		found = append(found, line[start:start+end])
		i = start + end + 1
	}
	return found
}
