// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the pipeline and condition engines as MCP
// tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/condition"
	"github.com/marcelocantos/ocpipe/internal/pipeline"
)

// Executor runs command lines. *pipeline.Executor implements it.
type Executor interface {
	Run(ctx context.Context, line string, opts pipeline.Options) error
	RunOnce(ctx context.Context, line string, silent bool) pipeline.Result
}

// Waiter waits for conditions. *condition.Waiter implements it.
type Waiter interface {
	Wait(ctx context.Context, q condition.Query) condition.Outcome
}

// Server holds the tool handlers.
type Server struct {
	Exec    Executor
	Waiter  Waiter
	Timeout time.Duration // default condition timeout
	Dir     string        // working directory for oc_exec

	// Audit, if set, receives a record for every tool call.
	Audit func(audit.Record)

	Logger *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) record(r audit.Record) {
	if s.Audit != nil {
		r.Cwd = s.Dir
		s.Audit(r)
	}
}

// MCP builds the MCP server with every tool registered.
func (s *Server) MCP(version string) *server.MCPServer {
	srv := server.NewMCPServer("ocpipe", version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("oc_exec",
		mcp.WithDescription("Run an oc command line. Supports | pipes to local tools, "+
			"> and >> file redirects, 2> for stderr, and $(...) substitution. "+
			"The leading 'oc' is optional."),
		mcp.WithString("cmd", mcp.Required(), mcp.Description("Command line, e.g. \"get pods | grep Running\"")),
		mcp.WithBoolean("ignore_flag", mcp.Description("Do not fail on stderr output or a non-zero exit")),
	), s.handleExec)

	srv.AddTool(mcp.NewTool("oc_get",
		mcp.WithDescription("Run a single oc command without pipes and return its exit code, stdout and stderr as JSON."),
		mcp.WithString("cmd", mcp.Required(), mcp.Description("Command, e.g. \"get pod/web -o name\"")),
	), s.handleGet)

	srv.AddTool(mcp.NewTool("oc_wait",
		mcp.WithDescription("Wait until a resource exists or no longer exists. "+
			"Checks once, then watches until the condition holds or the timeout elapses."),
		mcp.WithString("condition", mcp.Required(), mcp.Description("exists or not_exists")),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource, e.g. \"pod/web\"")),
		mcp.WithNumber("timeout_ms", mcp.Description("Timeout in milliseconds")),
		mcp.WithBoolean("no_timeout_error", mcp.Description("Report a timeout as skipped rather than an error")),
	), s.handleWait)

	return srv
}

// ServeStdio serves the tools on stdin and stdout until EOF.
func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCP(version))
}

func (s *Server) handleExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("cmd")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var stdout, stderr bytes.Buffer
	opts := pipeline.NewOptions(req.GetBool("ignore_flag", false))
	opts.Dir = s.Dir
	opts.Stdout, opts.Stderr = &stdout, &stderr
	opts.RunID = uuid.NewString()

	start := time.Now()
	err = s.Exec.Run(ctx, line, opts)
	s.record(audit.Record{
		RunID:    opts.RunID,
		Kind:     audit.KindExec,
		Command:  line,
		ExitCode: pipeline.ExitCode(err),
		Err:      err,
		Duration: time.Since(start),
	})

	text := stdout.String()
	if stderr.Len() > 0 {
		text += "\n[stderr]\n" + stderr.String()
	}
	if err != nil {
		s.logger().Info("oc_exec failed", "run_id", opts.RunID, "err", err)
		return mcp.NewToolResultError(strings.TrimSpace(text + "\n" + err.Error())), nil
	}
	return mcp.NewToolResultText(text), nil
}

// getResult is the JSON shape of an oc_get reply.
type getResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("cmd")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start := time.Now()
	res := s.Exec.RunOnce(ctx, line, true)
	s.record(audit.Record{
		RunID:    uuid.NewString(),
		Kind:     audit.KindGet,
		Command:  line,
		ExitCode: res.ExitCode,
		Err:      res.Err,
		Duration: time.Since(start),
	})

	out := getResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if res.Err != nil {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleWait(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindArg, err := req.RequireString("condition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := condition.ParseKind(kindArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeout := s.Timeout
	if ms := req.GetFloat("timeout_ms", 0); ms != 0 {
		if ms < 0 {
			return mcp.NewToolResultError("timeout has not a valid value; express it in milliseconds (e.g. 10000)"), nil
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	q := condition.Query{
		Kind:           kind,
		Resource:       resource,
		Timeout:        timeout,
		NoTimeoutError: req.GetBool("no_timeout_error", false),
		RunID:          uuid.NewString(),
	}
	start := time.Now()
	out := s.Waiter.Wait(ctx, q)
	s.record(audit.Record{
		RunID:    q.RunID,
		Kind:     audit.KindWait,
		Command:  kind.String() + " " + resource,
		ExitCode: pipeline.ExitCode(out.Err()),
		Outcome:  out.Status.String(),
		Err:      out.Err(),
		Duration: time.Since(start),
	})

	if !out.Proceed() {
		return mcp.NewToolResultError(out.String()), nil
	}
	return mcp.NewToolResultText(out.String()), nil
}
