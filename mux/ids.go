// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/ids.go
// Summary: Process-wide identifier allocation for tabs, panes and domains.

package mux

import "sync/atomic"

// TabId identifies a tab for the lifetime of the process.
type TabId int

// PaneId identifies a pane for the lifetime of the process. Ids are
// nonzero and never reused.
type PaneId int

// DomainId identifies the domain that hosts a pane's process.
type DomainId int

var (
	tabCounter    atomic.Int64
	paneCounter   atomic.Int64
	domainCounter atomic.Int64
)

// AllocTabID returns the next tab id. Safe to call from any goroutine.
func AllocTabID() TabId {
	return TabId(tabCounter.Add(1))
}

// AllocPaneID returns the next pane id. Safe to call from any goroutine.
func AllocPaneID() PaneId {
	return PaneId(paneCounter.Add(1))
}

// AllocDomainID returns the next domain id. Safe to call from any goroutine.
func AllocDomainID() DomainId {
	return DomainId(domainCounter.Add(1))
}
