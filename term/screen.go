// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/screen.go
// Summary: Cell-grid screen model fed by the pty byte stream.
// Usage: Owned by LocalPane; implements the Renderable view the frontend
//        draws and the line store search runs over.
// Notes: The escape parser covers the sequences interactive shells emit;
//        unknown sequences are consumed and ignored.

package term

import (
	"encoding/base64"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/wbeeftink/muxel/mux"
)

type parseState int

const (
	stateGround parseState = iota
	stateEsc
	stateCSI
	stateOSC
	stateOSCEsc
	stateCharset
)

// Screen is the in-memory terminal state of one pane: the visible cell
// grid, a bounded scrollback, and the modes the embedded application has
// toggled. Rows that scroll out of the viewport receive a stable index
// that stays valid until the scrollback cap pushes them out entirely.
type Screen struct {
	mu sync.Mutex

	rows, cols int
	cells      [][]mux.Cell
	curX, curY int
	savedX     int
	savedY     int
	pen        tcell.Style

	scrollback    [][]mux.Cell
	maxScrollback int
	// stableOffset is the stable index of scrollback[0]; it only grows.
	stableOffset mux.StableRowIndex

	title          string
	bracketedPaste bool
	mouseGrabbed   bool
	focusEvents    bool

	onLineOut   func(idx mux.StableRowIndex, text string)
	onClipboard func(text string)

	state    parseState
	params   []int
	curParam int
	hasParam bool
	private  bool
	oscBuf   []byte
	pending  []byte
}

// NewScreen creates a blank screen of the given size retaining up to
// maxScrollback scrolled-out rows.
func NewScreen(rows, cols, maxScrollback int) *Screen {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	s := &Screen{
		rows:          rows,
		cols:          cols,
		maxScrollback: maxScrollback,
		pen:           tcell.StyleDefault,
	}
	s.cells = blankGrid(rows, cols)
	return s
}

func blankGrid(rows, cols int) [][]mux.Cell {
	grid := make([][]mux.Cell, rows)
	for i := range grid {
		grid[i] = make([]mux.Cell, cols)
	}
	return grid
}

// SetLineOutHook installs a callback invoked whenever a row scrolls out
// of the viewport. Used to feed the history index.
func (s *Screen) SetLineOutHook(hook func(idx mux.StableRowIndex, text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLineOut = hook
}

// SetClipboardHook installs a callback invoked when the application sets
// the clipboard through OSC 52.
func (s *Screen) SetClipboardHook(hook func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClipboard = hook
}

// RenderCells returns a copy of the visible grid.
func (s *Screen) RenderCells() [][]mux.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]mux.Cell, s.rows)
	for i, row := range s.cells {
		out[i] = append([]mux.Cell(nil), row...)
	}
	return out
}

// CursorPosition returns the cursor cell within the viewport.
func (s *Screen) CursorPosition() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curX, s.curY
}

// Size returns the viewport dimensions.
func (s *Screen) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// Title returns the window title set through OSC 0/2, if any.
func (s *Screen) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// BracketedPaste reports whether the application enabled mode 2004.
func (s *Screen) BracketedPaste() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bracketedPaste
}

// MouseGrabbed reports whether the application enabled mouse reporting.
func (s *Screen) MouseGrabbed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mouseGrabbed
}

// FocusEvents reports whether the application enabled mode 1004.
func (s *Screen) FocusEvents() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusEvents
}

// EraseScrollback drops all retained rows. Stable indices stay monotonic:
// the offset jumps past the erased range.
func (s *Screen) EraseScrollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stableOffset += mux.StableRowIndex(len(s.scrollback))
	s.scrollback = nil
}

// Resize adjusts the viewport, preserving content where it fits. Rows
// lost to a shrinking viewport move into the scrollback.
func (s *Screen) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.rows > rows {
		s.pushScrollbackLocked(s.cells[0])
		s.cells = s.cells[1:]
		s.rows--
		s.curY--
	}
	for s.rows < rows {
		s.cells = append(s.cells, make([]mux.Cell, s.cols))
		s.rows++
	}

	if cols != s.cols {
		for i, row := range s.cells {
			next := make([]mux.Cell, cols)
			copy(next, row)
			s.cells[i] = next
		}
		s.cols = cols
	}

	s.curX = clamp(s.curX, 0, s.cols-1)
	s.curY = clamp(s.curY, 0, s.rows-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Advance feeds pty output through the escape parser into the grid.
func (s *Screen) Advance(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range buf {
		s.advanceByte(b)
	}
}

func (s *Screen) advanceByte(b byte) {
	switch s.state {
	case stateGround:
		s.groundByte(b)
	case stateEsc:
		s.escByte(b)
	case stateCSI:
		s.csiByte(b)
	case stateOSC:
		if b == 0x07 {
			s.dispatchOSC()
			s.state = stateGround
		} else if b == 0x1b {
			s.state = stateOSCEsc
		} else {
			s.oscBuf = append(s.oscBuf, b)
		}
	case stateOSCEsc:
		if b == '\\' {
			s.dispatchOSC()
		}
		s.state = stateGround
	case stateCharset:
		s.state = stateGround
	}
}

func (s *Screen) groundByte(b byte) {
	switch b {
	case 0x1b:
		s.pending = s.pending[:0]
		s.state = stateEsc
	case '\r':
		s.curX = 0
	case '\n', 0x0b, 0x0c:
		s.lineFeedLocked()
	case '\b':
		if s.curX > 0 {
			s.curX--
		}
	case '\t':
		s.curX = clamp(((s.curX/8)+1)*8, 0, s.cols-1)
	case 0x07, 0x00, 0x0e, 0x0f:
		// Bell and charset shifts are not rendered.
	default:
		if b < 0x20 {
			return
		}
		s.pending = append(s.pending, b)
		if !utf8.FullRune(s.pending) && len(s.pending) < utf8.UTFMax {
			return
		}
		r, _ := utf8.DecodeRune(s.pending)
		s.pending = s.pending[:0]
		if r == utf8.RuneError {
			return
		}
		s.printRuneLocked(r)
	}
}

func (s *Screen) printRuneLocked(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if s.curX+w > s.cols {
		s.curX = 0
		s.lineFeedLocked()
	}
	s.cells[s.curY][s.curX] = mux.Cell{Ch: r, Style: s.pen}
	if w == 2 && s.curX+1 < s.cols {
		s.cells[s.curY][s.curX+1] = mux.Cell{Ch: 0, Style: s.pen}
	}
	s.curX += w
}

func (s *Screen) lineFeedLocked() {
	if s.curY < s.rows-1 {
		s.curY++
		return
	}
	s.pushScrollbackLocked(s.cells[0])
	copy(s.cells, s.cells[1:])
	s.cells[s.rows-1] = make([]mux.Cell, s.cols)
}

func (s *Screen) pushScrollbackLocked(row []mux.Cell) {
	s.scrollback = append(s.scrollback, row)
	if s.onLineOut != nil {
		idx := s.stableOffset + mux.StableRowIndex(len(s.scrollback)) - 1
		s.onLineOut(idx, lineText(row))
	}
	if s.maxScrollback >= 0 {
		for len(s.scrollback) > s.maxScrollback {
			s.scrollback = s.scrollback[1:]
			s.stableOffset++
		}
	}
}

func (s *Screen) escByte(b byte) {
	switch b {
	case '[':
		s.params = s.params[:0]
		s.curParam = 0
		s.hasParam = false
		s.private = false
		s.state = stateCSI
	case ']':
		s.oscBuf = s.oscBuf[:0]
		s.state = stateOSC
	case '(', ')', '*', '+':
		s.state = stateCharset
	case '7':
		s.savedX, s.savedY = s.curX, s.curY
		s.state = stateGround
	case '8':
		s.curX = clamp(s.savedX, 0, s.cols-1)
		s.curY = clamp(s.savedY, 0, s.rows-1)
		s.state = stateGround
	case 'D':
		s.lineFeedLocked()
		s.state = stateGround
	case 'E':
		s.curX = 0
		s.lineFeedLocked()
		s.state = stateGround
	case 'M':
		if s.curY > 0 {
			s.curY--
		}
		s.state = stateGround
	case 'c':
		s.resetLocked()
		s.state = stateGround
	default:
		s.state = stateGround
	}
}

func (s *Screen) resetLocked() {
	s.cells = blankGrid(s.rows, s.cols)
	s.curX, s.curY = 0, 0
	s.pen = tcell.StyleDefault
	s.bracketedPaste = false
	s.mouseGrabbed = false
	s.focusEvents = false
}

func (s *Screen) csiByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		s.curParam = s.curParam*10 + int(b-'0')
		s.hasParam = true
	case b == ';':
		s.params = append(s.params, s.curParam)
		s.curParam = 0
		s.hasParam = false
	case b == '?':
		s.private = true
	case b >= 0x20 && b <= 0x2f:
		// Intermediate bytes are not needed for any handled sequence.
	case b >= 0x40 && b <= 0x7e:
		if s.hasParam || len(s.params) > 0 {
			s.params = append(s.params, s.curParam)
		}
		s.dispatchCSI(b)
		s.state = stateGround
	default:
		s.state = stateGround
	}
}

func (s *Screen) param(i, def int) int {
	if i >= len(s.params) || s.params[i] == 0 {
		return def
	}
	return s.params[i]
}

func (s *Screen) dispatchCSI(final byte) {
	if s.private {
		s.dispatchPrivate(final)
		return
	}
	switch final {
	case 'A':
		s.curY = clamp(s.curY-s.param(0, 1), 0, s.rows-1)
	case 'B', 'e':
		s.curY = clamp(s.curY+s.param(0, 1), 0, s.rows-1)
	case 'C', 'a':
		s.curX = clamp(s.curX+s.param(0, 1), 0, s.cols-1)
	case 'D':
		s.curX = clamp(s.curX-s.param(0, 1), 0, s.cols-1)
	case 'E':
		s.curX = 0
		s.curY = clamp(s.curY+s.param(0, 1), 0, s.rows-1)
	case 'F':
		s.curX = 0
		s.curY = clamp(s.curY-s.param(0, 1), 0, s.rows-1)
	case 'G', '`':
		s.curX = clamp(s.param(0, 1)-1, 0, s.cols-1)
	case 'd':
		s.curY = clamp(s.param(0, 1)-1, 0, s.rows-1)
	case 'H', 'f':
		s.curY = clamp(s.param(0, 1)-1, 0, s.rows-1)
		s.curX = clamp(s.param(1, 1)-1, 0, s.cols-1)
	case 'J':
		s.eraseDisplay(s.paramRaw(0))
	case 'K':
		s.eraseLine(s.paramRaw(0))
	case 'L':
		s.insertLines(s.param(0, 1))
	case 'M':
		s.deleteLines(s.param(0, 1))
	case 'P':
		s.deleteChars(s.param(0, 1))
	case '@':
		s.insertChars(s.param(0, 1))
	case 'X':
		n := s.param(0, 1)
		for i := 0; i < n && s.curX+i < s.cols; i++ {
			s.cells[s.curY][s.curX+i] = mux.Cell{}
		}
	case 'm':
		s.applySGR()
	case 's':
		s.savedX, s.savedY = s.curX, s.curY
	case 'u':
		s.curX = clamp(s.savedX, 0, s.cols-1)
		s.curY = clamp(s.savedY, 0, s.rows-1)
	}
}

func (s *Screen) paramRaw(i int) int {
	if i >= len(s.params) {
		return 0
	}
	return s.params[i]
}

func (s *Screen) dispatchPrivate(final byte) {
	set := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	for _, p := range s.params {
		switch p {
		case 2004:
			s.bracketedPaste = set
		case 1000, 1002, 1003, 1006:
			s.mouseGrabbed = set
		case 1004:
			s.focusEvents = set
		}
	}
}

func (s *Screen) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.eraseLine(0)
		for y := s.curY + 1; y < s.rows; y++ {
			s.cells[y] = make([]mux.Cell, s.cols)
		}
	case 1:
		s.eraseLine(1)
		for y := 0; y < s.curY; y++ {
			s.cells[y] = make([]mux.Cell, s.cols)
		}
	case 2:
		s.cells = blankGrid(s.rows, s.cols)
	case 3:
		s.cells = blankGrid(s.rows, s.cols)
		s.stableOffset += mux.StableRowIndex(len(s.scrollback))
		s.scrollback = nil
	}
}

func (s *Screen) eraseLine(mode int) {
	row := s.cells[s.curY]
	switch mode {
	case 0:
		for x := s.curX; x < s.cols; x++ {
			row[x] = mux.Cell{}
		}
	case 1:
		for x := 0; x <= s.curX && x < s.cols; x++ {
			row[x] = mux.Cell{}
		}
	case 2:
		s.cells[s.curY] = make([]mux.Cell, s.cols)
	}
}

func (s *Screen) insertLines(n int) {
	for i := 0; i < n; i++ {
		s.cells = append(s.cells[:s.curY], append([][]mux.Cell{make([]mux.Cell, s.cols)}, s.cells[s.curY:s.rows-1]...)...)
	}
}

func (s *Screen) deleteLines(n int) {
	for i := 0; i < n && s.curY < s.rows; i++ {
		copy(s.cells[s.curY:], s.cells[s.curY+1:])
		s.cells[s.rows-1] = make([]mux.Cell, s.cols)
	}
}

func (s *Screen) deleteChars(n int) {
	row := s.cells[s.curY]
	for i := 0; i < n; i++ {
		copy(row[s.curX:], row[s.curX+1:])
		row[s.cols-1] = mux.Cell{}
	}
}

func (s *Screen) insertChars(n int) {
	row := s.cells[s.curY]
	for i := 0; i < n; i++ {
		copy(row[s.curX+1:], row[s.curX:s.cols-1])
		row[s.curX] = mux.Cell{}
	}
}

func (s *Screen) applySGR() {
	if len(s.params) == 0 {
		s.pen = tcell.StyleDefault
		return
	}
	for i := 0; i < len(s.params); i++ {
		p := s.params[i]
		switch {
		case p == 0:
			s.pen = tcell.StyleDefault
		case p == 1:
			s.pen = s.pen.Bold(true)
		case p == 2:
			s.pen = s.pen.Dim(true)
		case p == 3:
			s.pen = s.pen.Italic(true)
		case p == 4:
			s.pen = s.pen.Underline(true)
		case p == 7:
			s.pen = s.pen.Reverse(true)
		case p == 22:
			s.pen = s.pen.Bold(false).Dim(false)
		case p == 23:
			s.pen = s.pen.Italic(false)
		case p == 24:
			s.pen = s.pen.Underline(false)
		case p == 27:
			s.pen = s.pen.Reverse(false)
		case p >= 30 && p <= 37:
			s.pen = s.pen.Foreground(tcell.PaletteColor(p - 30))
		case p == 38:
			if color, skip, ok := extendedColor(s.params[i+1:]); ok {
				s.pen = s.pen.Foreground(color)
				i += skip
			}
		case p == 39:
			s.pen = s.pen.Foreground(tcell.ColorDefault)
		case p >= 40 && p <= 47:
			s.pen = s.pen.Background(tcell.PaletteColor(p - 40))
		case p == 48:
			if color, skip, ok := extendedColor(s.params[i+1:]); ok {
				s.pen = s.pen.Background(color)
				i += skip
			}
		case p == 49:
			s.pen = s.pen.Background(tcell.ColorDefault)
		case p >= 90 && p <= 97:
			s.pen = s.pen.Foreground(tcell.PaletteColor(p - 90 + 8))
		case p >= 100 && p <= 107:
			s.pen = s.pen.Background(tcell.PaletteColor(p - 100 + 8))
		}
	}
}

// extendedColor decodes the tail of a 38/48 SGR: 5;n or 2;r;g;b.
func extendedColor(rest []int) (tcell.Color, int, bool) {
	if len(rest) >= 2 && rest[0] == 5 {
		return tcell.PaletteColor(rest[1] & 0xff), 2, true
	}
	if len(rest) >= 4 && rest[0] == 2 {
		return tcell.NewRGBColor(int32(rest[1]), int32(rest[2]), int32(rest[3])), 4, true
	}
	return 0, 0, false
}

func (s *Screen) dispatchOSC() {
	payload := string(s.oscBuf)
	code, rest, ok := strings.Cut(payload, ";")
	if !ok {
		return
	}
	switch code {
	case "0", "2":
		s.title = rest
	case "52":
		// OSC 52: clipboard write, "c;<base64 data>".
		if _, data, ok := strings.Cut(rest, ";"); ok && s.onClipboard != nil {
			if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
				s.onClipboard(string(decoded))
			}
		}
	}
}

// lineText flattens a row to its trimmed textual content.
func lineText(row []mux.Cell) string {
	runes := make([]rune, len(row))
	for i, cell := range row {
		if cell.Ch == 0 {
			runes[i] = ' '
		} else {
			runes[i] = cell.Ch
		}
	}
	return strings.TrimRight(string(runes), " ")
}
