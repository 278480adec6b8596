// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const genesisInput = "ocpipe-genesis"

// Logger appends hash-chained entries to a JSONL file. It is safe for
// concurrent use.
type Logger struct {
	mu       sync.Mutex
	f        *os.File
	seq      uint64
	prevHash string

	now func() time.Time
}

// NewLogger opens or creates the audit log at path and resumes the hash
// chain from its last readable entry.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	l := &Logger{f: f, prevHash: genesisHash(), now: time.Now}
	err = scanEntries(f, func(_ int, entry Entry, err error) error {
		if err == nil {
			l.seq, l.prevHash = entry.Seq, entry.Hash
		}
		return nil
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return l, nil
}

// Log appends one entry. The chain only advances once the entry is on
// disk, so a failed write can be retried.
func (l *Logger) Log(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Seq:      l.seq + 1,
		Time:     l.now().UTC(),
		PrevHash: l.prevHash,
		RunID:    r.RunID,
		Kind:     r.Kind,
		Command:  r.Command,
		Programs: r.Programs,
		ExitCode: r.ExitCode,
		Outcome:  r.Outcome,
		Duration: float64(r.Duration.Microseconds()) / 1000.0,
		Cwd:      r.Cwd,
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}
	entry.Hash = computeHash(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	l.seq, l.prevHash = entry.Seq, entry.Hash
	return nil
}

// Path returns the audit log file path.
func (l *Logger) Path() string {
	return l.f.Name()
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return hex.EncodeToString(h[:])
}

// computeHash hashes e with its Hash field empty.
func computeHash(e Entry) string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
