// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package argv splits command text into arguments with POSIX shell quoting
// and interpolates environment references. It performs no globbing and no
// command substitution; $(...) must be resolved before Split is called.
package argv

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/marcelocantos/ocpipe/internal/environ"
)

// Split tokenizes line and interpolates $NAME and ${NAME} references
// against env. A plain reference to a variable that env does not define is
// kept as written: with FOO unset, "get ${FOO} $FOO" yields
// ["get", "${FOO}", "$FOO"]. Operator forms such as ${FOO:-x} are expanded
// with FOO unset.
func Split(line string, env environ.Environment) ([]string, error) {
	var words []*syntax.Word
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	err := parser.Words(strings.NewReader(line), func(w *syntax.Word) bool {
		words = append(words, w)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %w", line, err)
	}
	if len(words) == 0 {
		return nil, nil
	}

	for _, w := range words {
		keepUnknown(w, env)
	}
	cfg := &expand.Config{Env: expand.FuncEnviron(func(name string) string {
		v, _ := env.Lookup(name)
		return v
	})}
	fields, err := expand.Fields(cfg, words...)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", line, err)
	}
	return fields, nil
}

// keepUnknown replaces each plain reference to a name env does not define
// with a literal of its source text, so expansion leaves it untouched.
func keepUnknown(w *syntax.Word, env environ.Environment) {
	syntax.Walk(w, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.Word:
			keepUnknownParts(n.Parts, env)
		case *syntax.DblQuoted:
			keepUnknownParts(n.Parts, env)
		}
		return true
	})
}

func keepUnknownParts(parts []syntax.WordPart, env environ.Environment) {
	for i, part := range parts {
		pe, ok := part.(*syntax.ParamExp)
		if !ok || !isPlain(pe) {
			continue
		}
		name := pe.Param.Value
		if _, ok := env.Lookup(name); ok {
			continue
		}
		text := "${" + name + "}"
		if pe.Short {
			text = "$" + name
		}
		parts[i] = &syntax.Lit{Value: text}
	}
}

// isPlain reports whether pe is $NAME or ${NAME} with no operator.
func isPlain(pe *syntax.ParamExp) bool {
	return pe.Param != nil && !pe.Excl && !pe.Length && !pe.Width &&
		pe.Index == nil && pe.Slice == nil && pe.Repl == nil && pe.Exp == nil
}

// IsOC reports whether a program token names the oc CLI itself.
func IsOC(token string) bool {
	return token == "oc" || token == "oc.exe"
}

// StripOC drops a leading oc or oc.exe token.
func StripOC(args []string) []string {
	if len(args) > 0 && IsOC(args[0]) {
		return args[1:]
	}
	return args
}
