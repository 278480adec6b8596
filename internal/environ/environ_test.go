// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package environ

import (
	"slices"
	"testing"
)

func TestFromSlice(t *testing.T) {
	env := FromSlice([]string{"A=1", "B=two=parts", "junk", "=nokey", "A=3"})
	if got := env.Get("A"); got != "3" {
		t.Errorf("A = %q, want %q", got, "3")
	}
	if got := env.Get("B"); got != "two=parts" {
		t.Errorf("B = %q, want %q", got, "two=parts")
	}
	if _, ok := env.Lookup("junk"); ok {
		t.Error("entry without '=' should be ignored")
	}
	if len(env) != 2 {
		t.Errorf("len = %d, want 2", len(env))
	}
}

func TestWithCopies(t *testing.T) {
	base := Environment{"A": "1"}
	derived := base.With("B", "2")
	if _, ok := base.Lookup("B"); ok {
		t.Error("With mutated the receiver")
	}
	if derived.Get("A") != "1" || derived.Get("B") != "2" {
		t.Errorf("derived = %v", derived)
	}
}

func TestSlice(t *testing.T) {
	got := Environment{"B": "2", "A": "1"}.Slice()
	want := []string{"A=1", "B=2"}
	if !slices.Equal(got, want) {
		t.Errorf("Slice() = %v, want %v", got, want)
	}
	if Environment(nil).Slice() != nil {
		t.Error("nil environment should render as nil")
	}
}

func TestCaptureSeesProcessEnv(t *testing.T) {
	t.Setenv("OCPIPE_ENVIRON_TEST", "yes")
	if got := Capture().Get("OCPIPE_ENVIRON_TEST"); got != "yes" {
		t.Errorf("Capture() missed variable, got %q", got)
	}
}
