// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Markers that split a command line into segments.
const (
	MarkPipe     = '|' // stdout of the previous invocation → stdin of the next
	MarkRedirect = '>' // redirect to file; a bare ">" before a target means append
	MarkStderr   = '2' // as its own segment before '>', selects stderr
)

// DefaultProgram is prepended to the first segment when the user omits it.
const DefaultProgram = "oc"

// LeadKind classifies a segment by its leading marker.
type LeadKind int

const (
	LeadPrimary LeadKind = iota
	LeadPipe
	LeadWriteStdout
	LeadAppendStdout
	LeadWriteStderr
	LeadAppendStderr
)

func (k LeadKind) String() string {
	switch k {
	case LeadPrimary:
		return "primary"
	case LeadPipe:
		return "pipe"
	case LeadWriteStdout:
		return "write-stdout"
	case LeadAppendStdout:
		return "append-stdout"
	case LeadWriteStderr:
		return "write-stderr"
	case LeadAppendStderr:
		return "append-stderr"
	default:
		return fmt.Sprintf("lead(%d)", int(k))
	}
}

// IsRedirect reports whether k sends a stream to a file.
func (k LeadKind) IsRedirect() bool {
	return k >= LeadWriteStdout
}

// Stream returns the stream a redirect kind captures.
func (k LeadKind) Stream() OutStream {
	if k == LeadWriteStderr || k == LeadAppendStderr {
		return Stderr
	}
	return Stdout
}

// Appends reports whether a redirect kind appends from the first write.
func (k LeadKind) Appends() bool {
	return k == LeadAppendStdout || k == LeadAppendStderr
}

// Segment is a piece of a command line between markers.
type Segment struct {
	Text string   // raw text including its leading marker
	Kind LeadKind // derived from the leading marker(s)

	// Marker is set for the bare "2" and bare ">" pieces. They carry no
	// command or path; they only modify the kind of the next segment.
	Marker bool
}

// Body returns the segment text with its leading marker removed and
// surrounding whitespace trimmed.
func (s Segment) Body() string {
	text := s.Text
	if s.Kind != LeadPrimary && !s.Marker && len(text) > 0 &&
		(text[0] == MarkPipe || text[0] == MarkRedirect) {
		text = text[1:]
	}
	return strings.TrimSpace(text)
}

// Invocation is a resolved program and its arguments. A nil *Invocation
// stands for a segment that launches nothing.
type Invocation struct {
	Program string
	Args    []string
	OC      bool // Program is the configured oc binary
}

// Name is the program as rules see it: "oc" for oc stages, otherwise the
// base name of the executable.
func (inv *Invocation) Name() string {
	if inv.OC {
		return DefaultProgram
	}
	return filepath.Base(inv.Program)
}

func (inv *Invocation) String() string {
	if inv == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%s %v", inv.Program, inv.Args)
}

// OutStream selects a child output stream.
type OutStream int

const (
	Stdout OutStream = iota
	Stderr
)

func (s OutStream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Redirect writes a stage's stream to a file. The first chunk truncates
// the file unless Append is set; later chunks always append.
type Redirect struct {
	Path   string
	Stream OutStream
	Append bool
}

// Stage is one invocation in a pipeline with its redirect attachments.
type Stage struct {
	Invocation
	Redirects []Redirect
}

// Pipeline is a linear chain of stages; each stage's stdout feeds the
// next stage's stdin.
type Pipeline struct {
	Stages []*Stage
}

// Programs returns the program of every stage, in order.
func (p *Pipeline) Programs() []string {
	out := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = s.Program
	}
	return out
}

// HasStderrRedirect reports whether any stage sends stderr to a file.
func (p *Pipeline) HasStderrRedirect() bool {
	for _, s := range p.Stages {
		for _, r := range s.Redirects {
			if r.Stream == Stderr {
				return true
			}
		}
	}
	return false
}
