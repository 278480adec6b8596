// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/marcelocantos/ocpipe/internal/argv"
)

// SplitLine cuts line immediately before every '|' and '>', and before a
// '2' that starts a word and is directly followed by '>'. The markers stay
// at the head of the piece they introduce, so "get pods 2> err.log" yields
// ["get pods ", "2", "> err.log"] and "get pods >> all.log" yields
// ["get pods ", ">", "> all.log"].
//
// Quoting is not consulted; a marker inside quotes still splits.
func SplitLine(line string) []string {
	var pieces []string
	start := 0
	for i := 0; i < len(line); i++ {
		if !isSplitPoint(line, i) || i == start {
			continue
		}
		pieces = append(pieces, line[start:i])
		start = i
	}
	if start < len(line) {
		pieces = append(pieces, line[start:])
	}
	return pieces
}

// isSplitPoint looks at most one byte behind and one ahead of i.
func isSplitPoint(line string, i int) bool {
	switch line[i] {
	case MarkPipe, MarkRedirect:
		return true
	case MarkStderr:
		if i+1 >= len(line) || line[i+1] != MarkRedirect {
			return false
		}
		return i == 0 || line[i-1] == ' ' || line[i-1] == '\t'
	}
	return false
}

// Segmentize splits line into classified segments. The first segment is
// prefixed with "oc " unless its first word already names oc.
func Segmentize(line string) ([]Segment, error) {
	pieces := SplitLine(line)
	if len(pieces) == 0 || strings.TrimSpace(pieces[0]) == "" {
		return nil, fmt.Errorf("%w: empty command", ErrMalformed)
	}
	first := strings.TrimSpace(pieces[0])
	if first[0] == MarkPipe || first[0] == MarkRedirect {
		return nil, fmt.Errorf("%w: command starts with %q", ErrMalformed, first[:1])
	}
	if words := strings.Fields(first); !argv.IsOC(words[0]) {
		pieces[0] = DefaultProgram + " " + pieces[0]
	}

	segs := []Segment{{Text: pieces[0], Kind: LeadPrimary}}
	var toStderr, appendNext bool
	rest := pieces[1:]
	for i, piece := range rest {
		switch {
		case piece == string(MarkStderr):
			segs = append(segs, Segment{Text: piece, Kind: LeadWriteStderr, Marker: true})
			toStderr = true

		case piece[0] == MarkPipe:
			if toStderr || appendNext {
				return nil, fmt.Errorf("%w: redirect without a file path before %q", ErrMalformed, piece)
			}
			if strings.TrimSpace(piece[1:]) == "" {
				return nil, fmt.Errorf("%w: empty command after %q", ErrMalformed, string(MarkPipe))
			}
			segs = append(segs, Segment{Text: piece, Kind: LeadPipe})

		case piece[0] == MarkRedirect:
			target := strings.TrimSpace(piece[1:])
			if target == "" {
				if appendNext || i+1 >= len(rest) || rest[i+1][0] != MarkRedirect {
					return nil, fmt.Errorf("%w: %q requires a file path", ErrMalformed, string(MarkRedirect))
				}
				segs = append(segs, Segment{Text: piece, Kind: redirectKind(toStderr, false), Marker: true})
				appendNext = true
				continue
			}
			if target[0] == '&' {
				return nil, fmt.Errorf("%w: descriptor duplication %q is not supported", ErrMalformed, target)
			}
			segs = append(segs, Segment{Text: piece, Kind: redirectKind(toStderr, appendNext)})
			toStderr, appendNext = false, false
		}
	}
	if toStderr || appendNext {
		return nil, fmt.Errorf("%w: redirect at end of command has no file path", ErrMalformed)
	}
	return segs, nil
}

func redirectKind(toStderr, appendMode bool) LeadKind {
	switch {
	case toStderr && appendMode:
		return LeadAppendStderr
	case toStderr:
		return LeadWriteStderr
	case appendMode:
		return LeadAppendStdout
	default:
		return LeadWriteStdout
	}
}
