// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// fileSink writes each chunk it receives to a file, opening and closing
// the file per chunk. The first chunk truncates unless appendAll is set;
// every later chunk appends. No chunk, no file.
type fileSink struct {
	path      string
	appendAll bool
	logger    *slog.Logger

	mu    sync.Mutex
	wrote bool
}

func (f *fileSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !f.appendAll && !f.wrote {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(f.path, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("redirect %s: %w", f.path, err)
	}
	n, err := file.Write(p)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("redirect %s: %w", f.path, err)
	}
	if !f.wrote {
		f.logger.Debug("redirect file written", "path", f.path, "append", f.appendAll)
	}
	f.wrote = true
	return n, nil
}

// captureBuffer keeps the first limit bytes written to it and reports
// whether anything was written at all.
type captureBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
	seen  bool
}

func newCaptureBuffer(limit int) *captureBuffer {
	return &captureBuffer{limit: limit}
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(p) > 0 {
		c.seen = true
	}
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
	}
	return len(p), nil
}

func (c *captureBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}

func (c *captureBuffer) Seen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen
}
