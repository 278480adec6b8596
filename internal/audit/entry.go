// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package audit

import "time"

// Kinds of audited operation.
const (
	KindExec     = "exec"
	KindGet      = "get"
	KindWait     = "wait"
	KindWorkflow = "workflow"
	KindExecList = "exec-list"
)

// Entry represents a single audit log record.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	RunID    string    `json:"run_id"`
	Kind     string    `json:"kind"`               // exec, get, wait, exec-list, workflow
	Command  string    `json:"command"`            // command line or condition query as given
	Programs []string  `json:"programs,omitempty"` // resolved program of each stage
	ExitCode int       `json:"exit_code"`          // 0 = success
	Outcome  string    `json:"outcome,omitempty"`  // condition outcome for waits
	Error    string    `json:"error,omitempty"`    // error message if failed
	Duration float64   `json:"duration_ms"`        // execution time in milliseconds
	Cwd      string    `json:"cwd"`                // working directory
	Hash     string    `json:"hash"`               // SHA-256 of this entry (with hash field empty)
}

// Record is what a caller supplies for one entry. The logger fills in the
// sequence, timestamp and hash chain.
type Record struct {
	RunID    string
	Kind     string
	Command  string
	Programs []string
	ExitCode int
	Outcome  string
	Err      error
	Duration time.Duration
	Cwd      string
}
