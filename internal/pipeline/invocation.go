// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"os/exec"

	"github.com/marcelocantos/ocpipe/internal/argv"
	"github.com/marcelocantos/ocpipe/internal/environ"
)

// Builder resolves segments into invocations.
type Builder struct {
	// BinaryPath is the program used whenever a segment names oc.
	BinaryPath string

	// Env supplies values for ${NAME} interpolation.
	Env environ.Environment

	// LookPath resolves any other program name. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Build resolves one segment. Marker segments and redirect targets yield
// a nil invocation and no error.
func (b *Builder) Build(seg Segment) (*Invocation, error) {
	if seg.Marker || seg.Kind.IsRedirect() {
		return nil, nil
	}
	args, err := argv.Split(seg.Body(), b.Env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty %s segment", ErrMalformed, seg.Kind)
	}

	if argv.IsOC(args[0]) {
		return &Invocation{Program: b.BinaryPath, Args: args[1:], OC: true}, nil
	}

	lookPath := b.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrToolNotFound, args[0], err)
	}
	return &Invocation{Program: path, Args: args[1:]}, nil
}

// BuildAll resolves every segment, failing on the first error so that
// nothing is launched for a command line that cannot be fully resolved.
// The result is parallel to segs.
func (b *Builder) BuildAll(segs []Segment) ([]*Invocation, error) {
	invs := make([]*Invocation, len(segs))
	for i, seg := range segs {
		inv, err := b.Build(seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		invs[i] = inv
	}
	return invs, nil
}
