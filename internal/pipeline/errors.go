// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed reports a command line that cannot be segmented.
	ErrMalformed = errors.New("malformed command line")

	// ErrToolNotFound reports a non-oc program that is not on PATH.
	ErrToolNotFound = errors.New("tool not found")

	// ErrSubstitutionFailed reports a $(...) command that errored or
	// printed nothing. The outer command is never started.
	ErrSubstitutionFailed = errors.New("command substitution failed")
)

// ProcessError reports a launched process that exited non-zero or wrote
// to stderr while the run was strict.
type ProcessError struct {
	Program  string
	ExitCode int    // 0 when the failure is stderr output alone
	Stderr   string // captured stderr, trimmed
}

func (e *ProcessError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s exited with code %d", e.Program, e.ExitCode)
	}
	return fmt.Sprintf("%s wrote to stderr: %s", e.Program, firstLine(e.Stderr))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// ExitCode maps an error to a process exit status: 0 for nil, the child's
// code for a *ProcessError (1 when it only wrote to stderr), 2 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe *ProcessError
	if errors.As(err, &pe) {
		if pe.ExitCode > 0 {
			return pe.ExitCode
		}
		return 1
	}
	return 2
}
