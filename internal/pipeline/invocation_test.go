package pipeline

import (
	"errors"
	"os/exec"
	"slices"
	"testing"

	"github.com/marcelocantos/ocpipe/internal/environ"
)

func stubLookPath(known ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		if slices.Contains(known, file) {
			return "/usr/bin/" + file, nil
		}
		return "", exec.ErrNotFound
	}
}

func testBuilder() *Builder {
	return &Builder{
		BinaryPath: "/opt/oc",
		Env:        environ.Environment{"NS": "prod"},
		LookPath:   stubLookPath("grep", "wc"),
	}
}

func TestBuildOC(t *testing.T) {
	b := testBuilder()
	for _, text := range []string{"oc get pods -n ${NS}", "oc.exe get pods -n ${NS}"} {
		inv, err := b.Build(Segment{Text: text, Kind: LeadPrimary})
		if err != nil {
			t.Fatal(err)
		}
		if inv.Program != "/opt/oc" || !inv.OC || inv.Name() != "oc" {
			t.Errorf("%q: invocation = %+v, name %q", text, inv, inv.Name())
		}
		if want := []string{"get", "pods", "-n", "prod"}; !slices.Equal(inv.Args, want) {
			t.Errorf("%q: args = %q, want %q", text, inv.Args, want)
		}
	}
}

func TestBuildPipeTool(t *testing.T) {
	inv, err := testBuilder().Build(Segment{Text: "| grep 'Running pod'", Kind: LeadPipe})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Program != "/usr/bin/grep" || inv.OC || inv.Name() != "grep" {
		t.Errorf("invocation = %+v, name %q", inv, inv.Name())
	}
	if want := []string{"Running pod"}; !slices.Equal(inv.Args, want) {
		t.Errorf("args = %q, want %q", inv.Args, want)
	}
}

func TestBuildUnknownVariableKept(t *testing.T) {
	inv, err := testBuilder().Build(Segment{Text: "oc get ${FOO}", Kind: LeadPrimary})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"get", "${FOO}"}; !slices.Equal(inv.Args, want) {
		t.Errorf("args = %q, want %q", inv.Args, want)
	}
}

func TestBuildToolNotFound(t *testing.T) {
	_, err := testBuilder().Build(Segment{Text: "| jq .items", Kind: LeadPipe})
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("error = %v, want ErrToolNotFound", err)
	}
}

func TestBuildAbsent(t *testing.T) {
	b := testBuilder()
	for _, seg := range []Segment{
		{Text: "2", Kind: LeadWriteStderr, Marker: true},
		{Text: ">", Kind: LeadWriteStdout, Marker: true},
		{Text: "> out.txt", Kind: LeadWriteStdout},
	} {
		inv, err := b.Build(seg)
		if err != nil || inv != nil {
			t.Errorf("Build(%q) = %v, %v; want nil, nil", seg.Text, inv, err)
		}
	}
}

func TestBuildAllFailsFast(t *testing.T) {
	segs, err := Segmentize("get pods | jq . | grep x")
	if err != nil {
		t.Fatal(err)
	}
	invs, err := testBuilder().BuildAll(segs)
	if !errors.Is(err, ErrToolNotFound) || invs != nil {
		t.Errorf("BuildAll = %v, %v; want nil, ErrToolNotFound", invs, err)
	}
}

func TestAssemble(t *testing.T) {
	segs, err := Segmentize("get pods | grep Running > out.txt 2>> err.txt")
	if err != nil {
		t.Fatal(err)
	}
	invs, err := testBuilder().BuildAll(segs)
	if err != nil {
		t.Fatal(err)
	}
	p, err := Assemble(segs, invs)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/opt/oc", "/usr/bin/grep"}; !slices.Equal(p.Programs(), want) {
		t.Fatalf("programs = %q, want %q", p.Programs(), want)
	}
	if len(p.Stages[0].Redirects) != 0 {
		t.Errorf("first stage redirects = %+v, want none", p.Stages[0].Redirects)
	}
	want := []Redirect{
		{Path: "out.txt", Stream: Stdout},
		{Path: "err.txt", Stream: Stderr, Append: true},
	}
	if !slices.Equal(p.Stages[1].Redirects, want) {
		t.Errorf("redirects = %+v, want %+v", p.Stages[1].Redirects, want)
	}
	if !p.HasStderrRedirect() {
		t.Error("HasStderrRedirect = false")
	}
}

func TestAssembleOCPrefixEquivalence(t *testing.T) {
	build := func(line string) *Pipeline {
		t.Helper()
		segs, err := Segmentize(line)
		if err != nil {
			t.Fatal(err)
		}
		invs, err := testBuilder().BuildAll(segs)
		if err != nil {
			t.Fatal(err)
		}
		p, err := Assemble(segs, invs)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	a := build("get pods | grep Running")
	b := build("oc get pods | grep Running")
	if len(a.Stages) != len(b.Stages) {
		t.Fatalf("stage counts differ: %d vs %d", len(a.Stages), len(b.Stages))
	}
	for i := range a.Stages {
		if a.Stages[i].Program != b.Stages[i].Program || !slices.Equal(a.Stages[i].Args, b.Stages[i].Args) {
			t.Errorf("stage %d differs: %v vs %v", i, a.Stages[i].Invocation, b.Stages[i].Invocation)
		}
	}
}
