// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the ocpipe subcommands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/clock"
	"github.com/marcelocantos/ocpipe/internal/condition"
	"github.com/marcelocantos/ocpipe/internal/config"
	"github.com/marcelocantos/ocpipe/internal/environ"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

var (
	colorSuccess = lipgloss.Color("#50C878")
	colorWarning = lipgloss.Color("#FFB347")
	colorError   = lipgloss.Color("#FF6961")
)

// App carries what every subcommand needs.
type App struct {
	Config *config.Config
	Env    environ.Environment
	Logger *slog.Logger
	Audit  *audit.Logger // nil when auditing is off or unavailable
	Clock  clock.Clock   // nil means the real clock

	Stdout io.Writer
	Stderr io.Writer
}

// executor builds an executor for ocPath, or the configured binary when
// ocPath is empty.
func (a *App) executor(ocPath string) *pipeline.Executor {
	if ocPath == "" {
		ocPath = a.Config.OC.Path
	}
	e := pipeline.New(ocPath, a.Env)
	e.Logger = a.Logger
	e.Stdout = a.Stdout
	e.Stderr = a.Stderr
	e.Rules = a.Config.RuleSet()
	return e
}

func (a *App) waiter(e *pipeline.Executor) *condition.Waiter {
	return condition.NewWaiter(e, a.Clock, a.Logger)
}

// commonFlags are shared by the subcommands that run oc.
type commonFlags struct {
	oc         string
	ignoreFlag bool
	silent     bool
	dir        string
}

func (a *App) flagSet(name string, common *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	if common != nil {
		fs.StringVar(&common.oc, "oc", "", "path to the oc binary (default: config oc.path, then oc on PATH)")
		fs.BoolVar(&common.ignoreFlag, "ignore-flag", a.Config.Exec.IgnoreFlag, "do not fail on stderr output or a non-zero exit")
		fs.BoolVar(&common.silent, "silent", false, "do not echo command output")
		fs.StringVar(&common.dir, "dir", "", "working directory for commands and relative redirects")
	}
	return fs
}

func (c *commonFlags) options() pipeline.Options {
	opts := pipeline.NewOptions(c.ignoreFlag)
	opts.Silent = c.silent
	opts.Dir = c.dir
	return opts
}

// parseFlags parses args into fs. ok is false when the command should
// return code immediately.
func parseFlags(fs *pflag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func (a *App) status(color lipgloss.Color, mark, format string, args ...any) {
	style := lipgloss.NewRenderer(a.Stderr).NewStyle().Foreground(color).Bold(true)
	fmt.Fprintf(a.Stderr, "%s %s\n", style.Render(mark), fmt.Sprintf(format, args...))
}

func (a *App) success(format string, args ...any) { a.status(colorSuccess, "✓", format, args...) }
func (a *App) warning(format string, args ...any) { a.status(colorWarning, "!", format, args...) }
func (a *App) failure(format string, args ...any) { a.status(colorError, "✗", format, args...) }

// resolveError maps an error to an exit code. A *ProcessError propagates
// the child's code; everything else is reported and yields 2, except a
// failed or timed-out condition, which yields 1.
func (a *App) resolveError(err error) int {
	if err == nil {
		return 0
	}
	a.failure("%v", err)
	if errors.Is(err, condition.ErrFailed) || errors.Is(err, condition.ErrTimedOut) {
		return 1
	}
	return pipeline.ExitCode(err)
}

// logAudit records r if auditing is on. Audit failures never fail the
// command.
func (a *App) logAudit(r audit.Record) {
	if a.Audit == nil {
		return
	}
	if r.Cwd == "" {
		r.Cwd, _ = os.Getwd()
	}
	if err := a.Audit.Log(r); err != nil {
		a.Logger.Warn("audit log write failed", "err", err)
	}
}
