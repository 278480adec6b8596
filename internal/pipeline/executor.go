// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marcelocantos/ocpipe/internal/argv"
	"github.com/marcelocantos/ocpipe/internal/environ"
)

// stderrCaptureLimit bounds how much stderr per stage is kept for error
// reporting. Everything still reaches the parent stream and any sink.
const stderrCaptureLimit = 64 << 10

// Options control how one pipeline run treats its children.
type Options struct {
	// Dir is the working directory for every stage and the base for
	// relative redirect paths. Empty means the current directory.
	Dir string

	// Env overrides the executor's environment for this run when non-nil.
	Env environ.Environment

	// FailOnStderr turns any stderr output into a failure.
	FailOnStderr bool

	// IgnoreExitCode logs a non-zero exit instead of failing.
	IgnoreExitCode bool

	// Silent suppresses echoing child output to the parent streams.
	// Redirect files are still written.
	Silent bool

	// Stdout and Stderr override the executor's parent streams.
	Stdout io.Writer
	Stderr io.Writer

	// RunID correlates log records for this run. Generated when empty.
	RunID string
}

// NewOptions returns the options for a run. Without ignoreFlag the run is
// strict: stderr output or a non-zero exit fails it. With ignoreFlag both
// are logged and the run succeeds.
func NewOptions(ignoreFlag bool) Options {
	if ignoreFlag {
		return Options{IgnoreExitCode: true}
	}
	return Options{FailOnStderr: true}
}

// Executor launches oc command lines.
type Executor struct {
	// BinaryPath is the oc executable. Empty means "oc" on PATH.
	BinaryPath string

	// Env supplies ${NAME} interpolation and the child environment.
	Env environ.Environment

	// LookPath resolves non-oc programs. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	// CommandFunc creates commands. Defaults to exec.CommandContext.
	// Tests substitute it to observe or fake launches.
	CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

	// Stdout and Stderr are the parent streams. Default to os.Stdout and
	// os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Rules vets every stage before anything is launched. Nil allows all.
	Rules Checker

	Logger *slog.Logger
}

// Checker vets one resolved stage.
type Checker interface {
	Check(program string, args []string) error
}

// New returns an executor for the given oc binary and environment.
func New(binaryPath string, env environ.Environment) *Executor {
	return &Executor{BinaryPath: binaryPath, Env: env}
}

func (e *Executor) binaryPath() string {
	if e.BinaryPath == "" {
		return DefaultProgram
	}
	return e.BinaryPath
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Executor) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	if e.CommandFunc != nil {
		return e.CommandFunc(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...)
}

func (e *Executor) parentStreams(opts Options) (stdout, stderr io.Writer) {
	if opts.Silent {
		return io.Discard, io.Discard
	}
	stdout, stderr = opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = e.Stdout
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = e.Stderr
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

// Prepare resolves a command line into a pipeline without launching
// anything except $(...) substitutions. Rules vet each substitution
// before it runs and every stage of the result.
func (e *Executor) Prepare(ctx context.Context, line string, env environ.Environment) (*Pipeline, error) {
	if env == nil {
		env = e.Env
	}
	resolved, err := e.Substitute(ctx, line)
	if err != nil {
		return nil, err
	}
	segs, err := Segmentize(resolved)
	if err != nil {
		return nil, err
	}
	b := &Builder{BinaryPath: e.binaryPath(), Env: env, LookPath: e.LookPath}
	invs, err := b.BuildAll(segs)
	if err != nil {
		return nil, err
	}
	p, err := Assemble(segs, invs)
	if err != nil {
		return nil, err
	}
	for i, st := range p.Stages {
		if err := e.check(st.Name(), st.Args); err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
	}
	return p, nil
}

// check vets one invocation against Rules, if any.
func (e *Executor) check(program string, args []string) error {
	if e.Rules == nil {
		return nil
	}
	return e.Rules.Check(program, args)
}

// Report describes a finished run.
type Report struct {
	RunID    string
	Programs []string // empty when the line was rejected before launch
	Duration time.Duration
}

// Run resolves and executes a command line, returning once every stage
// has exited. A line with a stderr redirect never fails on stderr output.
func (e *Executor) Run(ctx context.Context, line string, opts Options) error {
	_, err := e.RunReport(ctx, line, opts)
	return err
}

// RunReport is Run, also reporting what was launched.
func (e *Executor) RunReport(ctx context.Context, line string, opts Options) (Report, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	rep := Report{RunID: opts.RunID}
	logger := e.logger().With("run_id", opts.RunID)
	start := time.Now()

	p, err := e.Prepare(ctx, line, opts.Env)
	if err != nil {
		rep.Duration = time.Since(start)
		logger.Debug("command line rejected", "line", line, "err", err)
		return rep, err
	}
	if p.HasStderrRedirect() {
		opts.FailOnStderr = false
	}
	rep.Programs = p.Programs()
	logger.Debug("pipeline assembled", "programs", rep.Programs,
		"fail_on_stderr", opts.FailOnStderr, "ignore_exit_code", opts.IgnoreExitCode)

	err = e.Execute(ctx, p, opts, logger)
	rep.Duration = time.Since(start)
	logger.Debug("pipeline finished", "duration", rep.Duration, "err", err)
	return rep, err
}

// Execute runs an assembled pipeline. Each stage runs in its own process
// group, connected to its neighbours by io.Pipe.
func (e *Executor) Execute(ctx context.Context, p *Pipeline, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = e.logger()
	}
	env := opts.Env
	if env == nil {
		env = e.Env
	}
	parentOut, parentErr := e.parentStreams(opts)

	n := len(p.Stages)
	type pipeEnd struct {
		r *io.PipeReader
		w *io.PipeWriter
	}
	pipes := make([]pipeEnd, n-1)
	for i := range pipes {
		pipes[i].r, pipes[i].w = io.Pipe()
	}

	var (
		wg       sync.WaitGroup
		errs     = make([]error, n)
		captures = make([]*captureBuffer, n)
		// consumerGone[i] is set once stage i+1 has exited.
		consumerGone = make([]atomic.Bool, n)
	)

	for i, stage := range p.Stages {
		captures[i] = newCaptureBuffer(stderrCaptureLimit)

		var outs, errOuts []io.Writer
		if i < n-1 {
			outs = append(outs, pipes[i].w)
		} else {
			outs = append(outs, parentOut)
		}
		errOuts = append(errOuts, parentErr, captures[i])
		for _, r := range stage.Redirects {
			sink := &fileSink{path: resolvePath(opts.Dir, r.Path), appendAll: r.Append, logger: logger}
			if r.Stream == Stderr {
				errOuts = append(errOuts, sink)
			} else {
				outs = append(outs, sink)
			}
		}

		cmd := e.command(ctx, stage.Program, stage.Args...)
		cmd.Dir = opts.Dir
		cmd.Env = env.Slice()
		cmd.Stdout = io.MultiWriter(outs...)
		cmd.Stderr = io.MultiWriter(errOuts...)
		if i > 0 {
			cmd.Stdin = pipes[i-1].r
		}
		setProcessGroup(cmd)

		wg.Add(1)
		go func(i int, stage *Stage, cmd *exec.Cmd) {
			defer wg.Done()

			err := cmd.Start()
			if err != nil {
				err = fmt.Errorf("start %s: %w", stage.Program, err)
			} else {
				logger.Debug("stage started", "stage", i, "program", stage.Program, "args", stage.Args, "pid", cmd.Process.Pid)
				err = cmd.Wait()
			}
			errs[i] = err

			// Close pipe writer so downstream sees EOF.
			if i < n-1 {
				if err != nil {
					pipes[i].w.CloseWithError(err)
				} else {
					pipes[i].w.Close()
				}
			}

			// Close pipe reader when done reading.
			if i > 0 {
				consumerGone[i-1].Store(true)
				pipes[i-1].r.Close()
			}
		}(i, stage, cmd)
	}

	wg.Wait()

	for i, stage := range p.Stages {
		if err := e.stageResult(stage, errs[i], captures[i], opts, consumerGone[i].Load(), logger.With("stage", i)); err != nil {
			return err
		}
	}
	return nil
}

// stageResult turns one stage's outcome into the run's error, if any.
func (e *Executor) stageResult(stage *Stage, err error, stderr *captureBuffer, opts Options, consumerGone bool, logger *slog.Logger) error {
	captured := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case consumerGone && (errors.As(err, &exitErr) || errors.Is(err, io.ErrClosedPipe)):
		// The next stage stopped reading; its status is the one that counts.
		logger.Debug("producer ended after its consumer", "program", stage.Program, "err", err)
		return nil
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if opts.IgnoreExitCode {
			logger.Warn("non-zero exit ignored", "program", stage.Program, "exit_code", code)
			return nil
		}
		return &ProcessError{Program: stage.Program, ExitCode: code, Stderr: captured}
	default:
		return err
	}

	if stderr.Seen() {
		if opts.FailOnStderr {
			return &ProcessError{Program: stage.Program, Stderr: captured}
		}
		logger.Info("stderr output", "program", stage.Program, "stderr", firstLine(captured))
	}
	return nil
}

func resolvePath(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Result is the captured outcome of a single synchronous invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// Err is set when the process could not be launched or the line could
	// not be tokenized. ExitCode is -1 in that case.
	Err error
}

// Failed reports whether the invocation errored, exited non-zero or
// wrote to stderr.
func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0 || r.Stderr != ""
}

// RunOnce launches a single oc invocation, without pipes or redirects,
// and returns its captured output. A leading oc token is dropped; the
// executor's binary is always the program. Unless silent, the command and
// its output are echoed to the parent streams.
func (e *Executor) RunOnce(ctx context.Context, line string, silent bool) Result {
	args, err := argv.Split(line, e.Env)
	if err != nil {
		return Result{ExitCode: -1, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	args = argv.StripOC(args)
	if err := e.check(DefaultProgram, args); err != nil {
		return Result{ExitCode: -1, Err: err}
	}

	cmd := e.command(ctx, e.binaryPath(), args...)
	cmd.Env = e.Env.Slice()
	setProcessGroup(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = fmt.Errorf("run %s: %w", e.binaryPath(), err)
	}

	e.logger().Debug("invocation finished", "args", args, "exit_code", res.ExitCode, "err", res.Err)
	if !silent {
		out, errOut := e.parentStreams(Options{})
		fmt.Fprintf(out, "[command]%s %s\n", e.binaryPath(), strings.Join(args, " "))
		io.WriteString(out, res.Stdout)
		io.WriteString(errOut, res.Stderr)
	}
	return res
}

// SplitCommands returns the non-blank lines of text, trimmed.
func SplitCommands(text string) []string {
	var cmds []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			cmds = append(cmds, line)
		}
	}
	return cmds
}
