// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "fmt"

// Assemble joins resolved segments into a pipeline. invs must be parallel
// to segs, as returned by Builder.BuildAll. Each pipe segment adds a stage
// fed by the previous one; each redirect target attaches to the stage
// immediately before it.
func Assemble(segs []Segment, invs []*Invocation) (*Pipeline, error) {
	if len(segs) != len(invs) {
		return nil, fmt.Errorf("assemble: %d segments but %d invocations", len(segs), len(invs))
	}

	p := &Pipeline{}
	var current *Stage
	for i, seg := range segs {
		switch {
		case seg.Marker:
			continue

		case seg.Kind == LeadPrimary || seg.Kind == LeadPipe:
			if invs[i] == nil {
				return nil, fmt.Errorf("assemble: segment %d (%s) has no invocation", i, seg.Kind)
			}
			current = &Stage{Invocation: *invs[i]}
			p.Stages = append(p.Stages, current)

		case seg.Kind.IsRedirect():
			if current == nil {
				return nil, fmt.Errorf("%w: redirect %q has no command before it", ErrMalformed, seg.Text)
			}
			current.Redirects = append(current.Redirects, Redirect{
				Path:   seg.Body(),
				Stream: seg.Kind.Stream(),
				Append: seg.Kind.Appends(),
			})
		}
	}
	if len(p.Stages) == 0 {
		return nil, fmt.Errorf("%w: no command to run", ErrMalformed)
	}
	return p, nil
}
