// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/search.go
// Summary: Pattern search over a screen's retained rows.

package term

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/wbeeftink/muxel/mux"
)

// Search scans every retained row — scrollback first, then the viewport —
// and returns all matches in row order. Cell indices are inclusive of the
// start and exclusive of the end.
func (s *Screen) Search(pattern mux.Pattern) ([]mux.SearchResult, error) {
	match, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []mux.SearchResult
	scan := func(idx mux.StableRowIndex, row []mux.Cell) {
		text := lineText(row)
		if text == "" {
			return
		}
		for _, span := range match(text) {
			results = append(results, mux.SearchResult{
				StartY: idx,
				EndY:   idx,
				StartX: span[0],
				EndX:   span[1],
			})
		}
	}

	for i, row := range s.scrollback {
		scan(s.stableOffset+mux.StableRowIndex(i), row)
	}
	viewportBase := s.stableOffset + mux.StableRowIndex(len(s.scrollback))
	for y, row := range s.cells {
		scan(viewportBase+mux.StableRowIndex(y), row)
	}
	return results, nil
}

// matcher returns the rune-index spans of all matches within one line.
type matcher func(text string) [][2]int

func compilePattern(pattern mux.Pattern) (matcher, error) {
	switch pattern.Kind {
	case mux.PatternCaseSensitive:
		return literalMatcher(pattern.Text, false), nil
	case mux.PatternCaseInsensitive:
		return literalMatcher(pattern.Text, true), nil
	case mux.PatternRegex:
		re, err := regexp.Compile(pattern.Text)
		if err != nil {
			return nil, fmt.Errorf("compile search pattern: %w", err)
		}
		return func(text string) [][2]int {
			var spans [][2]int
			for _, loc := range re.FindAllStringIndex(text, -1) {
				if loc[1] == loc[0] {
					continue
				}
				spans = append(spans, [2]int{runeIndex(text, loc[0]), runeIndex(text, loc[1])})
			}
			return spans
		}, nil
	}
	return nil, fmt.Errorf("unknown pattern kind %d", pattern.Kind)
}

func literalMatcher(needle string, foldCase bool) matcher {
	if foldCase {
		needle = strings.ToLower(needle)
	}
	return func(text string) [][2]int {
		if needle == "" {
			return nil
		}
		haystack := text
		if foldCase {
			haystack = strings.ToLower(haystack)
		}
		var spans [][2]int
		offset := 0
		for {
			i := strings.Index(haystack[offset:], needle)
			if i < 0 {
				return spans
			}
			start := offset + i
			end := start + len(needle)
			spans = append(spans, [2]int{runeIndex(text, start), runeIndex(text, end)})
			offset = end
		}
	}
}

// runeIndex converts a byte offset into the rune (cell) offset within
// the same string. Case folding can grow a handful of exotic runes, so
// the offset is clamped rather than trusted.
func runeIndex(text string, byteOff int) int {
	if byteOff > len(text) {
		byteOff = len(text)
	}
	return utf8.RuneCountInString(text[:byteOff])
}
