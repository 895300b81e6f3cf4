// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/keys.go
// Summary: Translation of tcell key and mouse events into pty input.

package term

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// encodeKey maps a key event to the byte sequence written to the pty.
// An empty result means the key has no terminal representation.
func encodeKey(ev *tcell.EventKey) []byte {
	switch ev.Key() {
	case tcell.KeyRune:
		buf := []byte(string(ev.Rune()))
		if ev.Modifiers()&tcell.ModAlt != 0 {
			return append([]byte{0x1b}, buf...)
		}
		return buf
	case tcell.KeyEnter:
		return []byte{'\r'}
	case tcell.KeyTab:
		return []byte{'\t'}
	case tcell.KeyBacktab:
		return []byte("\x1b[Z")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return []byte{0x7f}
	case tcell.KeyEsc:
		return []byte{0x1b}
	case tcell.KeyUp:
		return []byte("\x1b[A")
	case tcell.KeyDown:
		return []byte("\x1b[B")
	case tcell.KeyRight:
		return []byte("\x1b[C")
	case tcell.KeyLeft:
		return []byte("\x1b[D")
	case tcell.KeyHome:
		return []byte("\x1b[H")
	case tcell.KeyEnd:
		return []byte("\x1b[F")
	case tcell.KeyInsert:
		return []byte("\x1b[2~")
	case tcell.KeyDelete:
		return []byte("\x1b[3~")
	case tcell.KeyPgUp:
		return []byte("\x1b[5~")
	case tcell.KeyPgDn:
		return []byte("\x1b[6~")
	case tcell.KeyF1:
		return []byte("\x1bOP")
	case tcell.KeyF2:
		return []byte("\x1bOQ")
	case tcell.KeyF3:
		return []byte("\x1bOR")
	case tcell.KeyF4:
		return []byte("\x1bOS")
	case tcell.KeyF5:
		return []byte("\x1b[15~")
	case tcell.KeyF6:
		return []byte("\x1b[17~")
	case tcell.KeyF7:
		return []byte("\x1b[18~")
	case tcell.KeyF8:
		return []byte("\x1b[19~")
	case tcell.KeyF9:
		return []byte("\x1b[20~")
	case tcell.KeyF10:
		return []byte("\x1b[21~")
	case tcell.KeyF11:
		return []byte("\x1b[23~")
	case tcell.KeyF12:
		return []byte("\x1b[24~")
	}
	// Control keys arrive as their control byte in tcell's key space.
	if k := ev.Key(); k < 0x80 {
		return []byte{byte(k)}
	}
	return nil
}

// encodeMouse produces an SGR (1006) mouse report for a pane-relative
// event.
func encodeMouse(ev *tcell.EventMouse) []byte {
	x, y := ev.Position()
	buttons := ev.Buttons()

	code := -1
	suffix := byte('M')
	switch {
	case buttons&tcell.WheelUp != 0:
		code = 64
	case buttons&tcell.WheelDown != 0:
		code = 65
	case buttons&tcell.Button1 != 0:
		code = 0
	case buttons&tcell.Button3 != 0:
		code = 1
	case buttons&tcell.Button2 != 0:
		code = 2
	case buttons == tcell.ButtonNone:
		code = 0
		suffix = 'm'
	}
	if code < 0 {
		return nil
	}
	if ev.Modifiers()&tcell.ModShift != 0 {
		code |= 4
	}
	if ev.Modifiers()&tcell.ModAlt != 0 {
		code |= 8
	}
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		code |= 16
	}
	return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", code, x+1, y+1, suffix))
}
