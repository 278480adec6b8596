package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/marcelocantos/ocpipe/internal/audit"
	"github.com/marcelocantos/ocpipe/internal/config"
)

// ocScript answers the queries the tests make and echoes anything else.
const ocScript = `case "$*" in
  *--watch*) exec sleep 30 ;;
  "get pod/web -o name") echo pod/web ;;
  "get pod/gone -o name") echo 'Error from server (NotFound): pods "gone" not found' >&2; exit 1 ;;
  "get pod/denied -o name") echo 'Error from server (Forbidden): forbidden' >&2; exit 1 ;;
  fail*) echo "failing" >&2; exit 4 ;;
  *) echo "ran $*" ;;
esac`

type testApp struct {
	*App
	stdout, stderr *bytes.Buffer
	auditPath      string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	dir := t.TempDir()
	oc := filepath.Join(dir, "oc")
	if err := os.WriteFile(oc, []byte("#!/bin/sh\n"+ocScript+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.OC.Path = oc
	cfg.Audit.Path = filepath.Join(dir, "audit.jsonl")
	al, err := audit.NewLogger(cfg.Audit.Path)
	if err != nil {
		t.Fatal(err)
	}

	ta := &testApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, auditPath: cfg.Audit.Path}
	ta.App = &App{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Audit:  al,
		Stdout: ta.stdout,
		Stderr: ta.stderr,
	}
	return ta
}

func (ta *testApp) entries(t *testing.T) []audit.Entry {
	t.Helper()
	entries, err := audit.Tail(ta.auditPath, 100, "")
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestRunExec(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunExec(context.Background(), []string{"get pods | grep ran"}); code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, ta.stderr)
	}
	if got := strings.TrimSpace(ta.stdout.String()); got != "ran get pods" {
		t.Errorf("stdout = %q", got)
	}

	entries := ta.entries(t)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Kind != audit.KindExec || e.Command != "get pods | grep ran" || len(e.Programs) != 2 || e.RunID == "" {
		t.Errorf("entry = %+v", e)
	}
}

func TestRunExecPropagatesExitCode(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunExec(context.Background(), []string{"fail now"}); code != 4 {
		t.Errorf("exit = %d, want 4", code)
	}
	if entries := ta.entries(t); len(entries) != 1 || entries[0].ExitCode != 4 || entries[0].Error == "" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRunExecIgnoreFlag(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunExec(context.Background(), []string{"--ignore-flag", "fail now"}); code != 0 {
		t.Errorf("exit = %d, want 0", code)
	}
}

func TestRunExecRejectedByRule(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunExec(context.Background(), []string{"delete pods --all -A"}); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
	if ta.stdout.Len() != 0 {
		t.Errorf("oc was launched: %q", ta.stdout)
	}
}

func TestRunExecUsage(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunExec(context.Background(), nil); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
	if code := ta.RunExec(context.Background(), []string{"--bogus"}); code != 2 {
		t.Errorf("bad flag exit = %d, want 2", code)
	}
}

func TestRunExecListStopsAtFirstFailure(t *testing.T) {
	ta := newTestApp(t)
	code := ta.RunExecList(context.Background(), []string{"--cmds", "get a\n\nfail here\nget b\n"})
	if code != 4 {
		t.Errorf("exit = %d, want 4", code)
	}
	out := ta.stdout.String()
	if !strings.Contains(out, "ran get a") || strings.Contains(out, "ran get b") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(ta.stderr.String(), "command 2 of 3 failed") {
		t.Errorf("stderr = %q", ta.stderr)
	}
	if entries := ta.entries(t); len(entries) != 2 || entries[0].Kind != audit.KindExecList {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRunExecListFromFile(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(t.TempDir(), "cmds.txt")
	if err := os.WriteFile(path, []byte("get a\nget b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := ta.RunExecList(context.Background(), []string{"--file", path}); code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, ta.stderr)
	}
	if got := ta.stdout.String(); got != "ran get a\nran get b\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunExecListRejectsBothSources(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunExecList(context.Background(), []string{"--cmds", "get a", "--file", "x"}); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
}

func TestRunWait(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantRan  bool
		outcome  string
	}{
		{"exists then run", []string{"--condition", "exists", "--resource", "pod/web", "--", "get", "pods"}, 0, true, "ok"},
		{"not exists satisfied", []string{"--condition", "not_exists", "--resource", "pod/gone"}, 0, false, "ok"},
		{"query failure", []string{"--condition", "exists", "--resource", "pod/denied", "--", "get", "pods"}, 1, false, "failed"},
		{"timeout", []string{"--condition", "exists", "--resource", "pod/gone", "--timeout", "50", "--", "get", "pods"}, 1, false, "timed_out"},
		{"timeout suppressed", []string{"--condition", "exists", "--resource", "pod/gone", "--timeout", "50", "--no-timeout-error", "--", "get", "pods"}, 0, true, "skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			if code := ta.RunWait(context.Background(), tt.args); code != tt.wantCode {
				t.Errorf("exit = %d, want %d; stderr = %s", code, tt.wantCode, ta.stderr)
			}
			if ran := strings.Contains(ta.stdout.String(), "ran get pods"); ran != tt.wantRan {
				t.Errorf("command ran = %v, want %v", ran, tt.wantRan)
			}
			entries := ta.entries(t)
			if len(entries) == 0 || entries[0].Kind != audit.KindWait || entries[0].Outcome != tt.outcome {
				t.Errorf("entries = %+v", entries)
			}
		})
	}
}

func TestRunWaitRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"--condition", "maybe", "--resource", "pod/web"},
		{"--condition", "exists"},
		{"--condition", "exists", "--resource", "pod/web", "--timeout", "soon"},
		{"--condition", "exists", "--resource", "pod/web", "--timeout", "0"},
	} {
		ta := newTestApp(t)
		if code := ta.RunWait(context.Background(), args); code != 2 {
			t.Errorf("%v: exit = %d, want 2", args, code)
		}
	}
}

func TestRunWorkflow(t *testing.T) {
	ta := newTestApp(t)
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	data := `name: deploy
steps:
  - name: apply
    cmd: apply -f app.yaml
  - name: ready
    condition:
      kind: exists
      resource: pod/web
    cmds: |
      get pods
      describe pod/web
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := ta.RunWorkflow(context.Background(), []string{path}); code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, ta.stderr)
	}
	want := "ran apply -f app.yaml\nran get pods\nran describe pod/web\n"
	if got := ta.stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if !strings.Contains(ta.stderr.String(), "workflow deploy completed (2 steps)") {
		t.Errorf("stderr = %q", ta.stderr)
	}

	entries := ta.entries(t)
	if len(entries) == 0 {
		t.Fatal("no audit entries")
	}
	for _, e := range entries {
		if e.Kind != audit.KindWorkflow || e.RunID != entries[0].RunID {
			t.Errorf("entry = %+v", e)
		}
	}
}

func TestRunWorkflowMissingFile(t *testing.T) {
	ta := newTestApp(t)
	if code := ta.RunWorkflow(context.Background(), []string{filepath.Join(t.TempDir(), "nope.yaml")}); code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
	if code := ta.RunWorkflow(context.Background(), nil); code != 2 {
		t.Errorf("no file exit = %d, want 2", code)
	}
}

func TestRunAudit(t *testing.T) {
	ta := newTestApp(t)
	ta.RunExec(context.Background(), []string{"get a"})
	ta.RunExec(context.Background(), []string{"get b"})
	ta.stdout.Reset()
	ta.stderr.Reset()

	if code := ta.RunAudit([]string{"verify"}); code != 0 {
		t.Fatalf("verify exit = %d, stderr = %s", code, ta.stderr)
	}
	if !strings.Contains(ta.stderr.String(), "verified (2 entries)") {
		t.Errorf("stderr = %q", ta.stderr)
	}

	if code := ta.RunAudit([]string{"show", "-n", "1"}); code != 0 {
		t.Fatalf("show exit = %d", code)
	}
	out := ta.stdout.String()
	if !strings.Contains(out, `"command": "get b"`) || strings.Contains(out, `"command": "get a"`) {
		t.Errorf("show output = %s", out)
	}

	if code := ta.RunAudit([]string{"bogus"}); code != 2 {
		t.Errorf("bogus exit = %d, want 2", code)
	}
}

func TestRunHelp(t *testing.T) {
	var buf bytes.Buffer
	if code := RunHelp(&buf); code != 0 {
		t.Errorf("exit = %d", code)
	}
	for _, sub := range []string{"exec", "exec-list", "wait", "run", "audit", "mcp"} {
		if !strings.Contains(buf.String(), "ocpipe "+sub) {
			t.Errorf("help does not mention %s", sub)
		}
	}
}
