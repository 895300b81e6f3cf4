// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/screen_test.go

package term

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/wbeeftink/muxel/mux"
)

func rowText(t *testing.T, s *Screen, y int) string {
	t.Helper()
	cells := s.RenderCells()
	if y >= len(cells) {
		t.Fatalf("row %d out of range (%d rows)", y, len(cells))
	}
	return lineText(cells[y])
}

func TestAdvancePlainText(t *testing.T) {
	s := NewScreen(3, 10, 100)
	s.Advance([]byte("hello"))

	if got := rowText(t, s, 0); got != "hello" {
		t.Errorf("row 0 = %q, want hello", got)
	}
	x, y := s.CursorPosition()
	if x != 5 || y != 0 {
		t.Errorf("cursor = (%d,%d), want (5,0)", x, y)
	}
}

func TestCarriageReturnLineFeed(t *testing.T) {
	s := NewScreen(3, 10, 100)
	s.Advance([]byte("ab\r\ncd"))

	if got := rowText(t, s, 0); got != "ab" {
		t.Errorf("row 0 = %q, want ab", got)
	}
	if got := rowText(t, s, 1); got != "cd" {
		t.Errorf("row 1 = %q, want cd", got)
	}
}

func TestWrapAtRightEdge(t *testing.T) {
	s := NewScreen(3, 5, 100)
	s.Advance([]byte("abcdefg"))

	if got := rowText(t, s, 0); got != "abcde" {
		t.Errorf("row 0 = %q, want abcde", got)
	}
	if got := rowText(t, s, 1); got != "fg" {
		t.Errorf("row 1 = %q, want fg", got)
	}
}

func TestWideRuneOccupiesTwoCells(t *testing.T) {
	s := NewScreen(2, 10, 100)
	s.Advance([]byte("世x"))

	cells := s.RenderCells()
	if cells[0][0].Ch != '世' {
		t.Errorf("cell 0 = %q, want 世", cells[0][0].Ch)
	}
	if cells[0][1].Ch != 0 {
		t.Errorf("cell 1 = %q, want continuation", cells[0][1].Ch)
	}
	if cells[0][2].Ch != 'x' {
		t.Errorf("cell 2 = %q, want x", cells[0][2].Ch)
	}
}

func TestScrollbackStableIndices(t *testing.T) {
	s := NewScreen(2, 10, 100)

	var gotIdx []mux.StableRowIndex
	var gotText []string
	s.SetLineOutHook(func(idx mux.StableRowIndex, text string) {
		gotIdx = append(gotIdx, idx)
		gotText = append(gotText, text)
	})

	s.Advance([]byte("l0\r\nl1\r\nl2\r\nl3"))

	// Two rows scrolled out of the two-row viewport.
	if len(gotIdx) != 2 {
		t.Fatalf("scrolled out %d rows, want 2", len(gotIdx))
	}
	if gotIdx[0] != 0 || gotIdx[1] != 1 {
		t.Errorf("stable indices = %v, want [0 1]", gotIdx)
	}
	if gotText[0] != "l0" || gotText[1] != "l1" {
		t.Errorf("texts = %v, want [l0 l1]", gotText)
	}
	if got := rowText(t, s, 0); got != "l2" {
		t.Errorf("viewport row 0 = %q, want l2", got)
	}
}

func TestScrollbackCapAdvancesOffset(t *testing.T) {
	s := NewScreen(1, 10, 2)
	s.Advance([]byte("a\r\nb\r\nc\r\nd\r\ne"))

	// Four rows scrolled out; only two are retained.
	if len(s.scrollback) != 2 {
		t.Fatalf("len(scrollback) = %d, want 2", len(s.scrollback))
	}
	if s.stableOffset != 2 {
		t.Errorf("stableOffset = %d, want 2", s.stableOffset)
	}
	if got := lineText(s.scrollback[0]); got != "c" {
		t.Errorf("oldest retained = %q, want c", got)
	}
}

func TestEraseScrollbackKeepsOffsetMonotonic(t *testing.T) {
	s := NewScreen(1, 10, 100)
	s.Advance([]byte("a\r\nb\r\nc"))

	if len(s.scrollback) != 2 {
		t.Fatalf("len(scrollback) = %d, want 2", len(s.scrollback))
	}
	s.EraseScrollback()
	if len(s.scrollback) != 0 {
		t.Error("scrollback not erased")
	}
	if s.stableOffset != 2 {
		t.Errorf("stableOffset = %d, want 2", s.stableOffset)
	}
}

func TestModes(t *testing.T) {
	s := NewScreen(2, 10, 100)

	if s.BracketedPaste() || s.MouseGrabbed() || s.FocusEvents() {
		t.Fatal("modes should start disabled")
	}
	s.Advance([]byte("\x1b[?2004h\x1b[?1000h\x1b[?1004h"))
	if !s.BracketedPaste() || !s.MouseGrabbed() || !s.FocusEvents() {
		t.Fatal("modes not enabled")
	}
	s.Advance([]byte("\x1b[?2004l\x1b[?1000l\x1b[?1004l"))
	if s.BracketedPaste() || s.MouseGrabbed() || s.FocusEvents() {
		t.Fatal("modes not disabled")
	}
}

func TestTitleOSC(t *testing.T) {
	s := NewScreen(2, 10, 100)
	s.Advance([]byte("\x1b]2;build: ok\x07"))
	if got := s.Title(); got != "build: ok" {
		t.Errorf("title = %q, want %q", got, "build: ok")
	}
	// ST-terminated form.
	s.Advance([]byte("\x1b]0;done\x1b\\"))
	if got := s.Title(); got != "done" {
		t.Errorf("title = %q, want done", got)
	}
}

func TestClipboardOSC52(t *testing.T) {
	s := NewScreen(2, 10, 100)
	var got string
	s.SetClipboardHook(func(text string) { got = text })

	// base64("hi") == "aGk="
	s.Advance([]byte("\x1b]52;c;aGk=\x07"))
	if got != "hi" {
		t.Errorf("clipboard = %q, want hi", got)
	}
}

func TestCursorAddressing(t *testing.T) {
	s := NewScreen(5, 10, 100)
	s.Advance([]byte("\x1b[2;3Hab"))

	if got := rowText(t, s, 1); got != "  ab" {
		t.Errorf("row 1 = %q, want %q", got, "  ab")
	}
	x, y := s.CursorPosition()
	if x != 4 || y != 1 {
		t.Errorf("cursor = (%d,%d), want (4,1)", x, y)
	}

	s.Advance([]byte("\x1b[A\x1b[2D"))
	x, y = s.CursorPosition()
	if x != 2 || y != 0 {
		t.Errorf("cursor after moves = (%d,%d), want (2,0)", x, y)
	}
}

func TestEraseLineAndDisplay(t *testing.T) {
	s := NewScreen(3, 5, 100)
	s.Advance([]byte("aaaaa\r\nbbbbb\r\nccccc"))

	// Erase to end of line from the middle of row 1.
	s.Advance([]byte("\x1b[2;3H\x1b[K"))
	if got := rowText(t, s, 1); got != "bb" {
		t.Errorf("row 1 = %q, want bb", got)
	}

	s.Advance([]byte("\x1b[2J"))
	for y := 0; y < 3; y++ {
		if got := rowText(t, s, y); got != "" {
			t.Errorf("row %d = %q after ED2, want empty", y, got)
		}
	}
}

func TestSGRForeground(t *testing.T) {
	s := NewScreen(1, 5, 100)
	s.Advance([]byte("\x1b[31mX\x1b[0mY"))

	cells := s.RenderCells()
	fg, _, _ := cells[0][0].Style.Decompose()
	if fg != tcell.PaletteColor(1) {
		t.Errorf("X foreground = %v, want palette red", fg)
	}
	fg, _, _ = cells[0][1].Style.Decompose()
	if fg != tcell.ColorDefault {
		t.Errorf("Y foreground = %v, want default", fg)
	}
}

func TestResizeShrinkPushesRowsToScrollback(t *testing.T) {
	s := NewScreen(4, 10, 100)
	s.Advance([]byte("r0\r\nr1\r\nr2\r\nr3"))

	s.Resize(2, 10)
	rows, cols := s.Size()
	if rows != 2 || cols != 10 {
		t.Fatalf("size = %dx%d, want 2x10", rows, cols)
	}
	if got := rowText(t, s, 0); got != "r2" {
		t.Errorf("viewport row 0 = %q, want r2", got)
	}
	if len(s.scrollback) != 2 {
		t.Errorf("len(scrollback) = %d, want 2", len(s.scrollback))
	}

	s.Resize(4, 20)
	rows, cols = s.Size()
	if rows != 4 || cols != 20 {
		t.Fatalf("size after grow = %dx%d, want 4x20", rows, cols)
	}
}

func TestLongOutputDoesNotGrowUnbounded(t *testing.T) {
	s := NewScreen(2, 4, 10)
	s.Advance([]byte(strings.Repeat("line\r\n", 500)))
	if len(s.scrollback) > 10 {
		t.Fatalf("len(scrollback) = %d, want <= 10", len(s.scrollback))
	}
}
