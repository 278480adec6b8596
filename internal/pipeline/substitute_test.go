package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestFindSubstitutions(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"get pods", nil},
		{"get pods -n $(project -q)", []string{"project -q"}},
		{"get $(a) $(b c)", []string{"a", "b c"}},
		{"get $(unterminated", nil},
	}
	for _, tt := range tests {
		if got := findSubstitutions(tt.line); !slices.Equal(got, tt.want) {
			t.Errorf("findSubstitutions(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

const substScript = `case "$1" in
project) echo "  dev-ns  " ;;
whoami) echo alice ;;
empty) ;;
*) echo "args:$*" ;;
esac`

func TestSubstitute(t *testing.T) {
	e := New(fakeOC(t, substScript), nil)
	got, err := e.Substitute(context.Background(), "get pods -n $(project -q) -l owner=$(oc whoami)")
	if err != nil {
		t.Fatal(err)
	}
	if got != "get pods -n dev-ns -l owner=alice" {
		t.Errorf("Substitute = %q", got)
	}
}

func TestSubstituteRunsEachOccurrence(t *testing.T) {
	e, launches := countingExecutor(fakeOC(t, substScript), nil)
	got, err := e.Substitute(context.Background(), "get $(whoami) $(whoami)")
	if err != nil {
		t.Fatal(err)
	}
	if got != "get alice alice" {
		t.Errorf("Substitute = %q", got)
	}
	if n := launches.Load(); n != 2 {
		t.Errorf("launched %d, want 2", n)
	}
}

func TestRunWithSubstitution(t *testing.T) {
	e := New(fakeOC(t, substScript), nil)
	out, _, err := runCapture(t, e, "get pods -n $(project)", NewOptions(false))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "args:get pods -n dev-ns" {
		t.Errorf("stdout = %q", out)
	}
}

func TestSubstitutionEmptyAbortsRun(t *testing.T) {
	e, launches := countingExecutor(fakeOC(t, substScript), nil)
	_, _, err := runCapture(t, e, "delete pod $(empty)", NewOptions(false))
	if !errors.Is(err, ErrSubstitutionFailed) {
		t.Fatalf("error = %v, want ErrSubstitutionFailed", err)
	}
	if n := launches.Load(); n != 1 {
		t.Errorf("launched %d, want only the substitution", n)
	}
}

func TestSubstitutionLaunchFailure(t *testing.T) {
	e := New("/nonexistent/oc", nil)
	_, err := e.Substitute(context.Background(), "get $(whoami)")
	if !errors.Is(err, ErrSubstitutionFailed) {
		t.Errorf("error = %v, want ErrSubstitutionFailed", err)
	}
}
