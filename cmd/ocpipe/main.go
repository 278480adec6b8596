// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/cli"
	"github.com/marcelocantos/ocpipe/internal/config"
	"github.com/marcelocantos/ocpipe/internal/environ"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(os.Stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocpipe: config: %v\n", err)
		return 2
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocpipe: %v\n", err)
		return 2
	}
	slog.SetDefault(logger)

	app := &cli.App{
		Config: cfg,
		Env:    environ.Capture(),
		Logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if cfg.Audit.Enabled {
		al, err := audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			// Continue without audit logging.
			logger.Warn("audit log unavailable", "path", cfg.Audit.Path, "err", err)
		} else {
			defer al.Close()
			app.Audit = al
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "exec":
		return app.RunExec(ctx, args)
	case "exec-list":
		return app.RunExecList(ctx, args)
	case "wait":
		return app.RunWait(ctx, args)
	case "run":
		return app.RunWorkflow(ctx, args)
	case "audit":
		return app.RunAudit(args)
	case "mcp":
		return app.RunMCP(args, version)
	case "help", "--help", "-h":
		return cli.RunHelp(os.Stdout)
	case "version", "--version":
		fmt.Printf("ocpipe %s\n", version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "ocpipe: unknown command %q\n\n", os.Args[1])
		cli.RunHelp(os.Stderr)
		return 2
	}
}
