// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/pane.go
// Summary: The capability set the layout engine requires from a pane.
// Usage: Implemented by term.LocalPane; layout code only relies on the
//        narrow subset documented on the interface.

package mux

import (
	"io"
	"net/url"

	"github.com/gdamore/tcell/v2"
)

// StableRowIndex is a monotonic row identifier that stays valid while
// lines scroll through a pane's scrollback.
type StableRowIndex int64

// PatternKind selects how a search pattern is interpreted.
type PatternKind int

const (
	PatternCaseSensitive PatternKind = iota
	PatternCaseInsensitive
	PatternRegex
)

// Pattern is a search pattern. Text is the literal string or regular
// expression source, accessible without inspecting Kind.
type Pattern struct {
	Kind PatternKind
	Text string
}

// SearchResult is a single match, cell-indexed. StartX is inclusive,
// EndX exclusive.
type SearchResult struct {
	StartY StableRowIndex
	EndY   StableRowIndex
	StartX int
	EndX   int
}

// Cell is a single rendered character cell.
type Cell struct {
	Ch    rune
	Style tcell.Style
}

// Renderable is the view a frontend draws: the visible cell grid and the
// cursor position within it.
type Renderable interface {
	RenderCells() [][]Cell
	CursorPosition() (int, int)
}

// Clipboard receives text a pane wants published to the system clipboard.
type Clipboard interface {
	SetContents(text string) error
}

// ColorPalette is the color scheme a pane renders with.
type ColorPalette struct {
	Foreground tcell.Color
	Background tcell.Color
	Ansi       [16]tcell.Color
}

// Pane represents a view on a terminal. The tab layout engine relies only
// on PaneID, Resize, IsDead and SendPaste; the remaining capabilities are
// consumed by input routing, rendering and search.
type Pane interface {
	// PaneID returns a unique, stable identifier for this pane.
	PaneID() PaneId
	Renderer() Renderable
	GetTitle() string
	// SendPaste transmits literal bytes to the pane's input channel.
	SendPaste(text string) error
	Reader() (io.Reader, error)
	Writer() io.Writer
	// Resize applies new interior dimensions. An I/O error is reported
	// to the caller; it does not invalidate the layout.
	Resize(size PtySize) error
	KeyDown(ev *tcell.EventKey) error
	MouseEvent(ev *tcell.EventMouse) error
	AdvanceBytes(buf []byte)
	// IsDead reports whether the underlying process has exited. It is
	// idempotent: once true it stays true.
	IsDead() bool
	Palette() ColorPalette
	DomainID() DomainId
	EraseScrollback()
	// FocusChanged advises the pane whether its tab has focus.
	FocusChanged(focused bool)
	// Search returns all matches for the pattern; an empty result means
	// no match.
	Search(pattern Pattern) ([]SearchResult, error)
	// IsMouseGrabbed reports whether the embedded application wants to
	// process mouse events itself, bypassing local handling.
	IsMouseGrabbed() bool
	SetClipboard(c Clipboard)
	GetCurrentWorkingDir() *url.URL
}
