// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/paste.go
// Summary: Chunked paste delivery to a pane, one chunk per scheduler turn.

package mux

import (
	"log"
	"sync"
)

// PasteChunkSize is the number of bytes delivered to a pane per
// scheduler turn when trickling a large paste.
const PasteChunkSize = 1024

// paste is the shared state of one in-flight trickled paste.
type paste struct {
	mu     sync.Mutex
	paneID PaneId
	text   string
	offset int
}

func scheduleNextPaste(p *paste) {
	m := Get()
	if m == nil {
		return
	}
	m.Spawn(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		m := Get()
		if m == nil {
			return
		}
		pane, ok := m.GetPane(p.paneID)
		if !ok {
			// The pane went away mid-paste; stop silently.
			return
		}

		remain := len(p.text) - p.offset
		chunk := remain
		if chunk > PasteChunkSize {
			chunk = PasteChunkSize
		}
		if err := pane.SendPaste(p.text[p.offset : p.offset+chunk]); err != nil {
			log.Printf("Paste: pane %d: %v", p.paneID, err)
			return
		}

		if chunk < remain {
			// There is more to send.
			p.offset += chunk
			scheduleNextPaste(p)
		}
	})
}

// TricklePaste delivers text to the pane's input. A paste that fits one
// chunk is sent synchronously; anything larger is heavy enough that it is
// trickled into the pane one chunk per scheduler turn, keeping the mux
// thread responsive. Chunks arrive strictly in order and concatenate to
// the original text.
func TricklePaste(pane Pane, text string) error {
	if len(text) <= PasteChunkSize {
		return pane.SendPaste(text)
	}
	if err := pane.SendPaste(text[:PasteChunkSize]); err != nil {
		return err
	}
	scheduleNextPaste(&paste{
		paneID: pane.PaneID(),
		text:   text,
		offset: PasteChunkSize,
	})
	return nil
}
