// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelocantos/ocpipe/internal/condition"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

// PipelineRunner runs one command line. *pipeline.Executor implements it.
type PipelineRunner interface {
	Run(ctx context.Context, line string, opts pipeline.Options) error
}

// ConditionWaiter waits for a condition. *condition.Waiter implements it.
type ConditionWaiter interface {
	Wait(ctx context.Context, q condition.Query) condition.Outcome
}

// StepEvent reports one finished unit of work: a condition wait or a
// single command line.
type StepEvent struct {
	Step     int
	Name     string
	Command  string             // command line, or "<kind> <resource>" for a wait
	Outcome  *condition.Outcome // set for waits
	Err      error
	Duration time.Duration
}

// Runner executes workflows.
type Runner struct {
	Pipelines PipelineRunner
	Waiter    ConditionWaiter

	// Options is the base for every command; IgnoreFlag on a step relaxes
	// it further.
	Options pipeline.Options

	// Timeout applies to conditions that give none.
	Timeout time.Duration

	// OnEvent, if set, is called after every wait and command.
	OnEvent func(StepEvent)

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) emit(ev StepEvent) {
	if r.OnEvent != nil {
		r.OnEvent(ev)
	}
}

// Run executes the steps of wf in order and stops at the first failure.
// A condition that fails or times out aborts the workflow; one that is
// skipped lets the step's commands run.
func (r *Runner) Run(ctx context.Context, wf *Workflow) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = condition.DefaultTimeout
	}

	for i, step := range wf.Steps {
		label := step.Label(i)
		logger := r.logger().With("workflow", wf.Name, "step", label)

		if step.Condition != nil {
			q, err := step.Condition.Query(timeout)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			start := time.Now()
			out := r.Waiter.Wait(ctx, q)
			r.emit(StepEvent{
				Step:     i,
				Name:     label,
				Command:  q.Kind.String() + " " + q.Resource,
				Outcome:  &out,
				Err:      out.Err(),
				Duration: time.Since(start),
			})
			if err := out.Err(); err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			logger.Info("condition passed", "outcome", out.Status)
		}

		opts := r.Options
		if step.IgnoreFlag {
			opts.FailOnStderr = false
			opts.IgnoreExitCode = true
		}
		for _, line := range step.Commands() {
			start := time.Now()
			err := r.Pipelines.Run(ctx, line, opts)
			r.emit(StepEvent{Step: i, Name: label, Command: line, Err: err, Duration: time.Since(start)})
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
		}
		logger.Debug("step finished")
	}
	return nil
}
