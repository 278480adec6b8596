// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package condition waits for a resource to exist or to disappear. A
// one-shot check runs first; only when it is inconclusive does the waiter
// start a watch stream and race it against a timer.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a wait when the query gives no timeout.
const DefaultTimeout = 5 * time.Minute

// Kind is the predicate a wait checks.
type Kind int

const (
	Exists Kind = iota
	NotExists
)

func (k Kind) String() string {
	if k == NotExists {
		return "not_exists"
	}
	return "exists"
}

// ParseKind accepts "exists", "not_exists" and "not-exists".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exists":
		return Exists, nil
	case "not_exists", "not-exists":
		return NotExists, nil
	}
	return 0, fmt.Errorf("unknown condition %q (want exists or not_exists)", s)
}

// ParseTimeout reads a timeout given in milliseconds. An empty string
// means DefaultTimeout.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeout, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return 0, errors.New("timeout has not a valid value; express it in milliseconds (e.g. 10000)")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Query describes one wait.
type Query struct {
	Kind     Kind
	Resource string // passed to "get" verbatim, e.g. "pod/web" or "deployment/api -n prod"

	// Timeout bounds the watch. Zero or negative means DefaultTimeout.
	Timeout time.Duration

	// NoTimeoutError turns a timeout into Skipped instead of TimedOut.
	NoTimeoutError bool

	// RunID correlates log records for this wait. Generated when empty.
	RunID string
}

// Status is the terminal state of a wait.
type Status int

const (
	OK Status = iota
	Skipped
	TimedOut
	Failed

	// inProgress is the evaluator's "not yet" answer. Wait never
	// returns it.
	inProgress
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Skipped:
		return "skipped"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	case inProgress:
		return "in_progress"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

var (
	// ErrTimedOut wraps the reason of a TimedOut outcome.
	ErrTimedOut = errors.New("condition timed out")

	// ErrFailed wraps the reason of a Failed outcome.
	ErrFailed = errors.New("condition check failed")
)

// Outcome is the result of a wait. Reason is set for TimedOut and Failed.
type Outcome struct {
	Status Status
	Reason string
}

// Proceed reports whether work gated on this outcome should run. Skipped
// proceeds: the caller asked for timeouts not to be errors.
func (o Outcome) Proceed() bool {
	return o.Status == OK || o.Status == Skipped
}

// Err returns nil when the outcome proceeds, otherwise an error wrapping
// ErrTimedOut or ErrFailed.
func (o Outcome) Err() error {
	switch o.Status {
	case OK, Skipped:
		return nil
	case TimedOut:
		return fmt.Errorf("%w: %s", ErrTimedOut, o.Reason)
	default:
		return fmt.Errorf("%w: %s", ErrFailed, o.Reason)
	}
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Status.String()
	}
	return o.Status.String() + ": " + o.Reason
}

func failed(reason string) Outcome {
	return Outcome{Status: Failed, Reason: reason}
}
