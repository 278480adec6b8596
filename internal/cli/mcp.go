// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"

	"github.com/marcelocantos/ocpipe/internal/mcpserver"
)

// RunMCP serves the MCP tools on stdio until the client disconnects.
func (a *App) RunMCP(args []string, version string) int {
	var common commonFlags
	fs := a.flagSet("mcp", &common)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	// Stdout carries the protocol; child output must never reach it.
	e := a.executor(common.oc)
	e.Stdout = io.Discard

	s := &mcpserver.Server{
		Exec:    e,
		Waiter:  a.waiter(e),
		Timeout: a.Config.Condition.Timeout,
		Dir:     common.dir,
		Audit:   a.logAudit,
		Logger:  a.Logger,
	}
	a.Logger.Info("serving MCP on stdio", "version", version)
	if err := s.ServeStdio(version); err != nil {
		return a.resolveError(err)
	}
	return 0
}
