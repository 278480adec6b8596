// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLine bounds a single audit line. Commands are short; this is ample.
const maxLine = 1 << 20

// Verify reads the audit log and checks the hash chain integrity. It
// returns the number of entries checked, and an error describing the
// first violation if the chain is broken.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read audit log: %w", err)
	}
	defer f.Close()

	expectedPrev := genesisHash()
	var prevSeq uint64
	n := 0
	err = scanEntries(f, func(line int, entry Entry, err error) error {
		if err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}
		if entry.Seq != prevSeq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", line, prevSeq+1, entry.Seq)
		}
		if entry.PrevHash != expectedPrev {
			return fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", line, short(expectedPrev), short(entry.PrevHash))
		}
		if computed := computeHash(entry); entry.Hash != computed {
			return fmt.Errorf("line %d: hash mismatch: expected %s, got %s", line, short(computed), short(entry.Hash))
		}
		expectedPrev = entry.Hash
		prevSeq = entry.Seq
		n++
		return nil
	})
	return n, err
}

// Tail returns the last n entries from the audit log, optionally only
// those with the given run ID. Unparseable lines are skipped.
func Tail(path string, n int, runID string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	err = scanEntries(f, func(_ int, entry Entry, err error) error {
		if err != nil || (runID != "" && entry.RunID != runID) {
			return nil
		}
		entries = append(entries, entry)
		if len(entries) > n {
			entries = entries[1:]
		}
		return nil
	})
	return entries, err
}

// scanEntries calls fn for each non-empty line, stopping at fn's first
// error.
func scanEntries(r io.Reader, fn func(line int, entry Entry, err error) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var entry Entry
		err := json.Unmarshal(sc.Bytes(), &entry)
		if err := fn(line, entry, err); err != nil {
			return err
		}
	}
	return sc.Err()
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}
