// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package condition

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/marcelocantos/ocpipe/internal/clock"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

// TimeoutReason is the reason of every TimedOut outcome.
const TimeoutReason = "the timeout elapsed before the condition was met"

// Launcher runs oc for the waiter. *pipeline.Executor implements it.
type Launcher interface {
	RunOnce(ctx context.Context, line string, silent bool) pipeline.Result
	Start(ctx context.Context, line string) (*pipeline.Stream, error)
}

// Waiter waits for conditions.
type Waiter struct {
	launcher Launcher
	clock    clock.Clock
	logger   *slog.Logger
}

// NewWaiter returns a waiter. A nil clock means the real clock; a nil
// logger means slog.Default().
func NewWaiter(launcher Launcher, clk clock.Clock, logger *slog.Logger) *Waiter {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{launcher: launcher, clock: clk, logger: logger}
}

// Wait blocks until q's condition holds, the timeout elapses, the watch
// reports an error, or ctx is done. It never returns an in-progress
// outcome. The watch process and the timer exist only when the first
// check is inconclusive, and both are torn down before Wait returns.
func (w *Waiter) Wait(ctx context.Context, q Query) Outcome {
	if q.RunID == "" {
		q.RunID = uuid.NewString()
	}
	logger := w.logger.With("run_id", q.RunID, "condition", q.Kind, "resource", q.Resource)
	start := w.clock.Now()

	out := w.wait(ctx, q, logger)
	logger.Info("condition wait finished", "outcome", out.Status, "reason", out.Reason,
		"duration", w.clock.Now().Sub(start))
	return out
}

func (w *Waiter) wait(ctx context.Context, q Query, logger *slog.Logger) Outcome {
	if out := w.evaluate(ctx, q.Kind, q.Resource); out.Status != inProgress {
		return out
	}

	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := w.launcher.Start(ctx, watchLine(q.Resource))
	if err != nil {
		return failed(err.Error())
	}
	defer func() {
		if err := stream.Kill(); err != nil {
			logger.Warn("kill watch process", "err", err)
		}
	}()

	expired := make(chan struct{})
	timer := w.clock.AfterFunc(timeout, func() { close(expired) })
	defer timer.Stop()
	logger.Debug("watching", "timeout", timeout)

	result := make(chan Outcome, 1)
	go w.watch(ctx, q, stream, result)

	select {
	case <-expired:
		if q.NoTimeoutError {
			return Outcome{Status: Skipped}
		}
		return Outcome{Status: TimedOut, Reason: TimeoutReason}
	case out := <-result:
		return out
	case <-ctx.Done():
		return failed(ctx.Err().Error())
	}
}

// watch re-evaluates on every stdout chunk and decides on the first
// stderr chunk. It sends at most one outcome. If the stream ends without
// a decision it sends nothing and the timer decides.
func (w *Waiter) watch(ctx context.Context, q Query, s *pipeline.Stream, result chan<- Outcome) {
	stdout, stderr := s.Stdout(), s.Stderr()
	for stdout != nil || stderr != nil {
		select {
		case _, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			if out := w.evaluate(ctx, q.Kind, q.Resource); out.Status != inProgress {
				result <- out
				return
			}
		case chunk, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			text := string(chunk)
			if q.Kind == NotExists && isNotFound(text) {
				result <- Outcome{Status: OK}
			} else {
				result <- failed(strings.TrimSpace(text))
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
