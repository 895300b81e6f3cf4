// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/paste_test.go
// Summary: Paste trickling tests: chunking, ordering, cancellation.

package mux

import (
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gdamore/tcell/v2"
)

// manualExecutor queues tasks for the test to pump by hand, standing in
// for the cooperative scheduler.
type manualExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (e *manualExecutor) Spawn(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
}

func (e *manualExecutor) runAll() {
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return
		}
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		e.mu.Unlock()
		task()
	}
}

// pastePane records every SendPaste chunk it receives.
type pastePane struct {
	id PaneId

	mu     sync.Mutex
	chunks []string
}

func (p *pastePane) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.chunks...)
}

func (p *pastePane) PaneID() PaneId { return p.id }

func (p *pastePane) SendPaste(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, text)
	return nil
}

func (p *pastePane) Resize(PtySize) error              { return nil }
func (p *pastePane) IsDead() bool                      { return false }
func (p *pastePane) DomainID() DomainId                { return 1 }
func (p *pastePane) IsMouseGrabbed() bool              { return false }
func (p *pastePane) GetCurrentWorkingDir() *url.URL   { return nil }
func (p *pastePane) Renderer() Renderable              { return nil }
func (p *pastePane) GetTitle() string                  { return "" }
func (p *pastePane) Reader() (io.Reader, error)        { return nil, nil }
func (p *pastePane) Writer() io.Writer                 { return nil }
func (p *pastePane) KeyDown(*tcell.EventKey) error     { return nil }
func (p *pastePane) MouseEvent(*tcell.EventMouse) error { return nil }
func (p *pastePane) AdvanceBytes([]byte)               {}
func (p *pastePane) Palette() ColorPalette             { return ColorPalette{} }
func (p *pastePane) EraseScrollback()                  {}
func (p *pastePane) FocusChanged(bool)                 {}
func (p *pastePane) SetClipboard(Clipboard)            {}
func (p *pastePane) Search(Pattern) ([]SearchResult, error) {
	return nil, nil
}

func TestTricklePasteChunks(t *testing.T) {
	exec := &manualExecutor{}
	m := NewMux(exec)
	SetMux(m)
	defer SetMux(nil)

	pane := &pastePane{id: 201}
	m.AddPane(pane)

	text := strings.Repeat("x", 1024) + strings.Repeat("y", 1024) + strings.Repeat("z", 452)
	if len(text) != 2500 {
		t.Fatalf("test text length = %d, want 2500", len(text))
	}

	if err := TricklePaste(pane, text); err != nil {
		t.Fatalf("TricklePaste: %v", err)
	}

	// The first chunk is delivered synchronously; the rest wait on the
	// scheduler.
	if got := pane.received(); len(got) != 1 {
		t.Fatalf("chunks before pumping = %d, want 1", len(got))
	}
	exec.runAll()

	chunks := pane.received()
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	want := []string{text[0:1024], text[1024:2048], text[2048:2500]}
	for i, chunk := range chunks {
		if len(chunk) > PasteChunkSize {
			t.Errorf("chunk %d is %d bytes, exceeds %d", i, len(chunk), PasteChunkSize)
		}
		if chunk != want[i] {
			t.Errorf("chunk %d mismatch (%d bytes, want %d)", i, len(chunk), len(want[i]))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("concatenated chunks do not reproduce the pasted text")
	}
}

func TestTricklePasteSmallIsSynchronous(t *testing.T) {
	exec := &manualExecutor{}
	m := NewMux(exec)
	SetMux(m)
	defer SetMux(nil)

	pane := &pastePane{id: 202}
	m.AddPane(pane)

	if err := TricklePaste(pane, "hello"); err != nil {
		t.Fatalf("TricklePaste: %v", err)
	}
	if got := pane.received(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("chunks = %v, want [hello]", got)
	}
	exec.mu.Lock()
	pending := len(exec.tasks)
	exec.mu.Unlock()
	if pending != 0 {
		t.Fatalf("%d tasks scheduled for a single-chunk paste, want 0", pending)
	}
}

func TestTricklePasteStopsWhenPaneRemoved(t *testing.T) {
	exec := &manualExecutor{}
	m := NewMux(exec)
	SetMux(m)
	defer SetMux(nil)

	pane := &pastePane{id: 203}
	m.AddPane(pane)

	text := strings.Repeat("a", 3000)
	if err := TricklePaste(pane, text); err != nil {
		t.Fatalf("TricklePaste: %v", err)
	}

	// The pane disappears before the scheduler gets a turn; the trickle
	// must stop silently.
	m.RemovePane(pane.PaneID())
	exec.runAll()

	if got := pane.received(); len(got) != 1 {
		t.Fatalf("chunks delivered after removal = %d, want just the synchronous first", len(got))
	}
}
