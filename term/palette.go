// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/palette.go

package term

import (
	"github.com/gdamore/tcell/v2"

	"github.com/wbeeftink/muxel/mux"
)

// defaultPalette is the standard 16-color scheme every local pane starts
// with.
func defaultPalette() mux.ColorPalette {
	palette := mux.ColorPalette{
		Foreground: tcell.ColorDefault,
		Background: tcell.ColorDefault,
	}
	for i := range palette.Ansi {
		palette.Ansi[i] = tcell.PaletteColor(i)
	}
	return palette
}
