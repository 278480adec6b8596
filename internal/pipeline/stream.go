// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marcelocantos/ocpipe/internal/argv"
)

// Stream is a long-running child whose output is delivered as chunks.
// Chunks are sent until Kill is called; after that the child's output is
// drained and discarded so it never blocks on a full pipe.
type Stream struct {
	stdout chan []byte
	stderr chan []byte
	exited chan struct{}
	quit   chan struct{}
	err    error

	kill     func() error
	killOnce sync.Once
	killErr  error
}

// NewStream wraps a child's output readers. wait is called once both
// readers reach EOF; kill terminates the child.
func NewStream(stdout, stderr io.Reader, wait, kill func() error) *Stream {
	s := &Stream{
		stdout: make(chan []byte),
		stderr: make(chan []byte),
		exited: make(chan struct{}),
		quit:   make(chan struct{}),
		kill:   kill,
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go s.pump(stdout, s.stdout, &wg)
	go s.pump(stderr, s.stderr, &wg)
	go func() {
		wg.Wait()
		s.err = wait()
		close(s.exited)
	}()
	return s
}

func (s *Stream) pump(r io.Reader, ch chan<- []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(ch)
	buf := make([]byte, 32<<10)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case ch <- bytes.Clone(buf[:n]):
			case <-s.quit:
			}
		}
		if err != nil {
			return
		}
	}
}

// Stdout delivers stdout chunks. Closed at EOF.
func (s *Stream) Stdout() <-chan []byte { return s.stdout }

// Stderr delivers stderr chunks. Closed at EOF.
func (s *Stream) Stderr() <-chan []byte { return s.stderr }

// Exited is closed once the child has been reaped.
func (s *Stream) Exited() <-chan struct{} { return s.exited }

// Err returns the child's exit error. Valid after Exited is closed.
func (s *Stream) Err() error {
	<-s.exited
	return s.err
}

// Kill stops chunk delivery and kills the child if it is still running.
// Safe to call more than once.
func (s *Stream) Kill() error {
	s.killOnce.Do(func() {
		close(s.quit)
		select {
		case <-s.exited:
		default:
			s.killErr = s.kill()
		}
	})
	return s.killErr
}

// Start launches a single oc invocation in its own process group and
// streams its output. A leading oc token is dropped.
func (e *Executor) Start(ctx context.Context, line string) (*Stream, error) {
	args, err := argv.Split(line, e.Env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	args = argv.StripOC(args)
	if err := e.check(DefaultProgram, args); err != nil {
		return nil, err
	}

	cmd := e.command(ctx, e.binaryPath(), args...)
	cmd.Env = e.Env.Slice()
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.binaryPath(), err)
	}
	e.logger().Debug("stream started", "args", args, "pid", cmd.Process.Pid)
	return NewStream(stdout, stderr, cmd.Wait, func() error { return killGroup(cmd) }), nil
}
