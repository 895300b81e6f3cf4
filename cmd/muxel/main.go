// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/muxel/main.go
// Summary: tcell frontend: draws the tab, routes input, drives the mux
//          thread through the cooperative scheduler.
// Usage: muxel [-config path]
// Notes: Prefix key is Ctrl-A: | or % splits side by side, - or " splits
//        top/bottom, n/p cycle panes, x kills the active pane, q quits.

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	xterm "golang.org/x/term"

	"github.com/wbeeftink/muxel/config"
	"github.com/wbeeftink/muxel/internal/sched"
	"github.com/wbeeftink/muxel/mux"
	"github.com/wbeeftink/muxel/term"
)

func init() {
	// Keep log output away from the terminal we are drawing on. If
	// MUXEL_DEBUG is set, log to file; otherwise discard.
	if os.Getenv("MUXEL_DEBUG") != "" {
		logFile, err := os.OpenFile("/tmp/muxel-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			log.SetOutput(logFile)
			log.SetFlags(log.Ltime | log.Lmicroseconds)
			return
		}
	}
	log.SetOutput(io.Discard)
}

type app struct {
	screen    tcell.Screen
	scheduler *sched.Scheduler
	cfg       *config.Config
	tab       *mux.Tab

	prefix   bool
	pasting  bool
	pasteBuf []rune
}

// hostClipboard forwards OSC 52 clipboard writes to the host terminal.
type hostClipboard struct {
	screen tcell.Screen
}

func (c hostClipboard) SetContents(text string) error {
	c.screen.SetClipboard([]byte(text))
	return nil
}

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/muxel/config.toml)")
	flag.Parse()

	if !xterm.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "muxel: stdin is not a terminal")
		os.Exit(1)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "muxel: load config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "muxel: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnablePaste()
	screen.EnableMouse()

	scheduler := sched.New()
	mux.SetMux(mux.NewMux(scheduler))
	defer mux.SetMux(nil)

	a := &app{
		screen:    screen,
		scheduler: scheduler,
		cfg:       cfg,
	}

	width, height := screen.Size()
	size := ptySizeFor(width, height)
	a.tab = mux.NewTab(size)

	root, err := a.spawnPane(size)
	if err != nil {
		return err
	}
	a.tab.AssignPane(root)
	root.FocusChanged(true)

	go a.eventLoop()

	a.requestRedraw()
	scheduler.Run()

	a.killPanes()
	return nil
}

// ptySizeFor synthesizes pixel dimensions for a cell grid; the host
// terminal does not report real pixel geometry through tcell.
func ptySizeFor(cols, rows int) mux.PtySize {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return mux.PtySize{
		Rows:        uint16(rows),
		Cols:        uint16(cols),
		PixelWidth:  uint16(cols) * 8,
		PixelHeight: uint16(rows) * 16,
	}
}

func (a *app) spawnPane(size mux.PtySize) (*term.LocalPane, error) {
	pane, err := term.NewLocalPane(a.cfg, size, a.requestRedraw)
	if err != nil {
		return nil, err
	}
	pane.SetClipboard(hostClipboard{screen: a.screen})
	mux.Get().AddPane(pane)
	return pane, nil
}

// requestRedraw is safe to call from any goroutine; the actual work runs
// on the mux thread.
func (a *app) requestRedraw() {
	a.scheduler.Spawn(a.reapAndDraw)
}

func (a *app) reapAndDraw() {
	a.tab.PruneDeadPanes()
	if a.tab.IsDead() {
		a.scheduler.Close()
		return
	}
	a.draw()
}

func (a *app) eventLoop() {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			a.scheduler.Spawn(a.handleResize)
		case *tcell.EventKey:
			a.scheduler.Spawn(func() { a.handleKey(ev) })
		case *tcell.EventPaste:
			start := ev.Start()
			a.scheduler.Spawn(func() { a.handlePasteBoundary(start) })
		case *tcell.EventMouse:
			a.scheduler.Spawn(func() { a.handleMouse(ev) })
		}
	}
}

func (a *app) handleResize() {
	width, height := a.screen.Size()
	if err := a.tab.Resize(ptySizeFor(width, height)); err != nil {
		log.Printf("muxel: resize: %v", err)
	}
	a.screen.Sync()
	a.draw()
}

func (a *app) handleKey(ev *tcell.EventKey) {
	if a.pasting {
		switch ev.Key() {
		case tcell.KeyRune:
			a.pasteBuf = append(a.pasteBuf, ev.Rune())
		case tcell.KeyEnter:
			a.pasteBuf = append(a.pasteBuf, '\n')
		case tcell.KeyTab:
			a.pasteBuf = append(a.pasteBuf, '\t')
		}
		return
	}

	if a.prefix {
		a.prefix = false
		a.handlePrefixKey(ev)
		return
	}
	if ev.Key() == tcell.KeyCtrlA {
		a.prefix = true
		return
	}

	if pane := a.tab.GetActivePane(); pane != nil {
		if err := pane.KeyDown(ev); err != nil {
			log.Printf("muxel: key to pane: %v", err)
		}
	}
}

func (a *app) handlePrefixKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyCtrlA {
		// Double prefix sends a literal Ctrl-A through.
		if pane := a.tab.GetActivePane(); pane != nil {
			_ = pane.KeyDown(ev)
		}
		return
	}
	if ev.Key() != tcell.KeyRune {
		return
	}
	switch ev.Rune() {
	case '|', '%':
		a.splitActive(mux.SplitHorizontal)
	case '-', '"':
		a.splitActive(mux.SplitVertical)
	case 'n':
		a.cycleActive(1)
	case 'p':
		a.cycleActive(-1)
	case 'x':
		a.killActive()
	case 'q':
		a.scheduler.Close()
	}
}

func (a *app) handlePasteBoundary(start bool) {
	if start {
		a.pasting = true
		a.pasteBuf = a.pasteBuf[:0]
		return
	}
	a.pasting = false
	text := string(a.pasteBuf)
	a.pasteBuf = a.pasteBuf[:0]
	if text == "" {
		return
	}
	if pane := a.tab.GetActivePane(); pane != nil {
		if err := mux.TricklePaste(pane, text); err != nil {
			log.Printf("muxel: paste: %v", err)
		}
	}
}

func (a *app) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	for _, pos := range a.tab.IterPanes() {
		if x < pos.Left || x >= pos.Left+pos.Width || y < pos.Top || y >= pos.Top+pos.Height {
			continue
		}
		if !pos.IsActive && ev.Buttons() != tcell.ButtonNone && !pos.Pane.IsMouseGrabbed() {
			a.focusPane(pos.Index)
			return
		}
		local := tcell.NewEventMouse(x-pos.Left, y-pos.Top, ev.Buttons(), ev.Modifiers())
		if err := pos.Pane.MouseEvent(local); err != nil {
			log.Printf("muxel: mouse to pane: %v", err)
		}
		return
	}
}

func (a *app) splitActive(direction mux.SplitDirection) {
	idx := a.tab.GetActiveIdx()
	info := a.tab.ComputeSplitSize(idx, direction)
	if info == nil {
		return
	}
	if info.Second.Rows < 2 || info.Second.Cols < 2 {
		log.Printf("muxel: pane too small to split")
		return
	}

	pane, err := a.spawnPane(info.Second)
	if err != nil {
		log.Printf("muxel: spawn pane: %v", err)
		return
	}

	previous := a.tab.GetActivePane()
	if _, err := a.tab.SplitAndInsert(idx, direction, pane); err != nil {
		log.Printf("muxel: split: %v", err)
		pane.Kill()
		mux.Get().RemovePane(pane.PaneID())
		return
	}
	if previous != nil {
		previous.FocusChanged(false)
	}
	pane.FocusChanged(true)
	a.draw()
}

func (a *app) cycleActive(delta int) {
	panes := a.tab.IterPanes()
	if len(panes) < 2 {
		return
	}
	next := (a.tab.GetActiveIdx() + delta + len(panes)) % len(panes)
	a.focusPane(next)
}

func (a *app) focusPane(index int) {
	if previous := a.tab.GetActivePane(); previous != nil {
		previous.FocusChanged(false)
	}
	a.tab.SetActiveIdx(index)
	if pane := a.tab.GetActivePane(); pane != nil {
		pane.FocusChanged(true)
	}
	a.draw()
}

func (a *app) killActive() {
	pane := a.tab.GetActivePane()
	if pane == nil {
		return
	}
	if local, ok := pane.(*term.LocalPane); ok {
		local.Kill()
	}
	// The exit notification prunes the pane and repaints.
}

func (a *app) killPanes() {
	for _, pos := range a.tab.IterPanes() {
		if local, ok := pos.Pane.(*term.LocalPane); ok {
			local.Kill()
		}
	}
}

func (a *app) draw() {
	a.screen.Clear()
	a.screen.HideCursor()

	activeTitle := ""
	for _, pos := range a.tab.IterPanes() {
		a.drawPane(pos)
		if pos.IsActive {
			activeTitle = pos.Pane.GetTitle()
			cx, cy := pos.Pane.Renderer().CursorPosition()
			if cx < pos.Width && cy < pos.Height {
				a.screen.ShowCursor(pos.Left+cx, pos.Top+cy)
			}
		}
	}

	for _, split := range a.tab.IterSplits() {
		a.drawSplit(split)
	}

	if activeTitle != "" {
		a.screen.SetTitle("muxel: " + runewidth.Truncate(activeTitle, 60, "…"))
	}
	a.screen.Show()
}

func (a *app) drawPane(pos mux.PositionedPane) {
	cells := pos.Pane.Renderer().RenderCells()
	for y := 0; y < pos.Height && y < len(cells); y++ {
		row := cells[y]
		for x := 0; x < pos.Width && x < len(row); x++ {
			cell := row[x]
			ch := cell.Ch
			if ch == 0 {
				ch = ' '
			}
			a.screen.SetContent(pos.Left+x, pos.Top+y, ch, nil, cell.Style)
			// A double-width rune owns the following cell.
			if runewidth.RuneWidth(cell.Ch) == 2 {
				x++
			}
		}
	}
}

func (a *app) drawSplit(split mux.PositionedSplit) {
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for i := 0; i < split.Size; i++ {
		if split.Direction == mux.SplitHorizontal {
			a.screen.SetContent(split.Left, split.Top+i, tcell.RuneVLine, nil, style)
		} else {
			a.screen.SetContent(split.Left+i, split.Top, tcell.RuneHLine, nil, style)
		}
	}
}
