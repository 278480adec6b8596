// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package environ holds the environment snapshot that is threaded into the
// pipeline and condition engines instead of reading process state.
package environ

import (
	"os"
	"sort"
	"strings"
)

// Environment is an immutable-by-convention snapshot of environment
// variables. Use With to derive a modified copy.
type Environment map[string]string

// Capture snapshots the current process environment.
func Capture() Environment {
	return FromSlice(os.Environ())
}

// FromSlice builds an Environment from KEY=VALUE pairs. Entries without
// an '=' are ignored; later duplicates win.
func FromSlice(kvs []string) Environment {
	env := make(Environment, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Lookup returns the value of key and whether it is set.
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Get returns the value of key, or "" if unset.
func (e Environment) Get(key string) string {
	return e[key]
}

// With returns a copy of e with key set to value.
func (e Environment) With(key, value string) Environment {
	out := make(Environment, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[key] = value
	return out
}

// Slice renders the environment as sorted KEY=VALUE pairs, the form
// exec.Cmd.Env expects. A nil Environment renders as nil so a child
// inherits the parent environment.
func (e Environment) Slice() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e))
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
