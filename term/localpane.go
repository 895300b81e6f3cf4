// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/localpane.go
// Summary: A mux.Pane backed by a shell child process on a local pty.
// Usage: Spawned by the frontend for the root pane and for every split.

package term

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/gdamore/tcell/v2"

	"github.com/wbeeftink/muxel/config"
	"github.com/wbeeftink/muxel/mux"
)

var localDomain = mux.AllocDomainID()

// LocalDomain identifies panes hosted by this process.
func LocalDomain() mux.DomainId {
	return localDomain
}

// LocalPane runs a shell on a pty and adapts it to the mux.Pane
// capability set.
type LocalPane struct {
	id       mux.PaneId
	title    string
	cmd      *exec.Cmd
	ptmx     *os.File
	screen   *Screen
	history  *HistoryIndex
	dead     atomic.Bool
	onUpdate func()

	writeMu sync.Mutex

	mu        sync.Mutex
	size      mux.PtySize
	clipboard mux.Clipboard
	wrapPaste bool
}

// NewLocalPane spawns the configured shell sized to the given area.
// onUpdate is invoked (from pane-owned goroutines) whenever output
// arrives or the process exits; frontends use it to schedule a redraw.
func NewLocalPane(cfg *config.Config, size mux.PtySize, onUpdate func()) (*LocalPane, error) {
	shell := cfg.ShellCommand()
	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: size.Rows,
		Cols: size.Cols,
		X:    size.PixelWidth,
		Y:    size.PixelHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("start shell %s: %w", shell, err)
	}

	p := &LocalPane{
		id:        mux.AllocPaneID(),
		title:     filepath.Base(shell),
		cmd:       cmd,
		ptmx:      ptmx,
		screen:    NewScreen(int(size.Rows), int(size.Cols), cfg.ScrollbackLines),
		onUpdate:  onUpdate,
		size:      size,
		wrapPaste: cfg.BracketedPaste,
	}
	p.screen.SetClipboardHook(p.publishClipboard)

	if cfg.HistoryDB != "" {
		history, err := OpenHistoryIndex(cfg.HistoryDB)
		if err != nil {
			log.Printf("LocalPane %d: history index disabled: %v", p.id, err)
		} else {
			p.history = history
			p.screen.SetLineOutHook(func(idx mux.StableRowIndex, text string) {
				if err := history.IndexLine(int64(idx), text); err != nil {
					log.Printf("LocalPane %d: index line %d: %v", p.id, idx, err)
				}
			})
		}
	}

	go p.readLoop()
	go p.waitLoop()

	log.Printf("LocalPane %d: spawned %s (pid %d)", p.id, shell, cmd.Process.Pid)
	return p, nil
}

func (p *LocalPane) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			p.screen.Advance(buf[:n])
			p.notify()
		}
		if err != nil {
			return
		}
	}
}

func (p *LocalPane) waitLoop() {
	err := p.cmd.Wait()
	p.dead.Store(true)
	log.Printf("LocalPane %d: process exited: %v", p.id, err)
	if p.history != nil {
		if err := p.history.Close(); err != nil {
			log.Printf("LocalPane %d: close history: %v", p.id, err)
		}
	}
	p.notify()
}

func (p *LocalPane) notify() {
	if p.onUpdate != nil {
		p.onUpdate()
	}
}

func (p *LocalPane) publishClipboard(text string) {
	p.mu.Lock()
	clipboard := p.clipboard
	p.mu.Unlock()
	if clipboard == nil {
		return
	}
	if err := clipboard.SetContents(text); err != nil {
		log.Printf("LocalPane %d: set clipboard: %v", p.id, err)
	}
}

func (p *LocalPane) write(buf []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.ptmx.Write(buf)
	return err
}

// PaneID returns this pane's identifier.
func (p *LocalPane) PaneID() mux.PaneId {
	return p.id
}

// DomainID returns the local domain.
func (p *LocalPane) DomainID() mux.DomainId {
	return localDomain
}

// Renderer exposes the screen model for drawing.
func (p *LocalPane) Renderer() mux.Renderable {
	return p.screen
}

// GetTitle returns the OSC-set title, falling back to the shell name.
func (p *LocalPane) GetTitle() string {
	if title := p.screen.Title(); title != "" {
		return title
	}
	return p.title
}

// SendPaste writes pasted text to the shell's input, framed in
// bracketed-paste escapes when the application asked for them.
func (p *LocalPane) SendPaste(text string) error {
	p.mu.Lock()
	wrap := p.wrapPaste && p.screen.BracketedPaste()
	p.mu.Unlock()
	if wrap {
		return p.write([]byte("\x1b[200~" + text + "\x1b[201~"))
	}
	return p.write([]byte(text))
}

// Reader exposes the raw pty output stream.
func (p *LocalPane) Reader() (io.Reader, error) {
	return p.ptmx, nil
}

// Writer exposes the raw pty input stream.
func (p *LocalPane) Writer() io.Writer {
	return p.ptmx
}

// Resize applies new dimensions to the pty and the screen model. The
// screen is resized even when the pty ioctl fails so that layout and
// rendering stay consistent.
func (p *LocalPane) Resize(size mux.PtySize) error {
	p.mu.Lock()
	p.size = size
	p.mu.Unlock()

	p.screen.Resize(int(size.Rows), int(size.Cols))

	err := pty.Setsize(p.ptmx, &pty.Winsize{
		Rows: size.Rows,
		Cols: size.Cols,
		X:    size.PixelWidth,
		Y:    size.PixelHeight,
	})
	if err != nil {
		return fmt.Errorf("pty resize: %w", err)
	}
	return nil
}

// KeyDown translates a key event into the byte sequence the application
// expects and writes it to the pty.
func (p *LocalPane) KeyDown(ev *tcell.EventKey) error {
	buf := encodeKey(ev)
	if len(buf) == 0 {
		return nil
	}
	return p.write(buf)
}

// MouseEvent forwards a pane-relative mouse event when the application
// has grabbed the mouse, using SGR encoding.
func (p *LocalPane) MouseEvent(ev *tcell.EventMouse) error {
	if !p.IsMouseGrabbed() {
		return nil
	}
	buf := encodeMouse(ev)
	if len(buf) == 0 {
		return nil
	}
	return p.write(buf)
}

// AdvanceBytes feeds bytes through the screen model as if they arrived
// from the pty.
func (p *LocalPane) AdvanceBytes(buf []byte) {
	p.screen.Advance(buf)
}

// IsDead reports whether the shell has exited.
func (p *LocalPane) IsDead() bool {
	return p.dead.Load()
}

// Palette returns the pane's color scheme.
func (p *LocalPane) Palette() mux.ColorPalette {
	return defaultPalette()
}

// EraseScrollback drops the pane's retained scrollback.
func (p *LocalPane) EraseScrollback() {
	p.screen.EraseScrollback()
}

// FocusChanged reports focus transitions to applications that enabled
// focus events.
func (p *LocalPane) FocusChanged(focused bool) {
	if !p.screen.FocusEvents() {
		return
	}
	seq := "\x1b[O"
	if focused {
		seq = "\x1b[I"
	}
	if err := p.write([]byte(seq)); err != nil {
		log.Printf("LocalPane %d: focus report: %v", p.id, err)
	}
}

// Search runs the pattern over the pane's retained rows.
func (p *LocalPane) Search(pattern mux.Pattern) ([]mux.SearchResult, error) {
	return p.screen.Search(pattern)
}

// IsMouseGrabbed reports whether the application enabled mouse
// reporting.
func (p *LocalPane) IsMouseGrabbed() bool {
	return p.screen.MouseGrabbed()
}

// SetClipboard installs the clipboard OSC 52 writes go to.
func (p *LocalPane) SetClipboard(c mux.Clipboard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clipboard = c
}

// GetCurrentWorkingDir resolves the shell's working directory as a
// file:// URL, or nil when it cannot be determined.
func (p *LocalPane) GetCurrentWorkingDir() *url.URL {
	if p.cmd.Process == nil {
		return nil
	}
	cwd, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", p.cmd.Process.Pid))
	if err != nil {
		return nil
	}
	return &url.URL{Scheme: "file", Path: cwd}
}

// History returns the pane's history index, or nil when disabled.
func (p *LocalPane) History() *HistoryIndex {
	return p.history
}

// Kill terminates the shell and releases the pty.
func (p *LocalPane) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.ptmx.Close()
}
