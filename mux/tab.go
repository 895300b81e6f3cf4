// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/tab.go
// Summary: A Tab hosts a tree of panes and computes their cell geometry.
// Usage: All Tab methods must be called from the mux thread; the only
//        cross-thread state is the id counter and the pane registry.

package mux

import (
	"errors"
	"fmt"
	"log"
)

// Tab is a rectangular viewport subdivided into panes by a binary tree of
// splits. It owns the tree structure, the outer size and the active leaf
// index; the panes themselves are shared with the registry.
type Tab struct {
	id     TabId
	tree   *Tree
	size   PtySize
	active int
}

// NewTab creates an empty tab of the given outer size. Exactly one
// AssignPane call must follow before any traversal.
func NewTab(size PtySize) *Tab {
	return &Tab{
		id:   AllocTabID(),
		tree: NewTree(),
		size: size,
	}
}

// TabID returns this tab's identifier.
func (t *Tab) TabID() TabId {
	return t.id
}

// GetSize returns the tab's outer size.
func (t *Tab) GetSize() PtySize {
	return t.size
}

// AssignPane seats the initial pane as the root of the tree. Assigning
// into a non-empty tree is a programmer error and panics.
func (t *Tab) AssignPane(pane Pane) {
	if err := t.tree.Cursor().AssignTop(pane); err != nil {
		panic("Tab: assign root pane to non-empty tree")
	}
}

// IterPanes walks the tree and produces the topologically ordered
// flattened list of panes with their absolute cell geometry. The slice
// index of each entry is its pane index.
func (t *Tab) IterPanes() []PositionedPane {
	var panes []PositionedPane
	cursor := t.tree.Cursor()
	if cursor.node == nil {
		return panes
	}

	for {
		if cursor.IsLeaf() {
			index := len(panes)
			left, top := 0, 0
			var parentSize *PtySize
			isSecond := cursor.IsRight()
			for _, node := range cursor.PathToRoot() {
				if node == nil {
					continue
				}
				if parentSize == nil {
					size := node.First
					if isSecond {
						size = node.Second
						// The second child sits past the first child
						// and the divider cell.
						switch node.Direction {
						case SplitVertical:
							top += int(node.First.Rows) + 1
						case SplitHorizontal:
							left += int(node.First.Cols) + 1
						}
					}
					parentSize = &size
				}
				left += node.Left
				top += node.Top
			}

			pane, _ := cursor.Leaf()
			dims := t.size
			if parentSize != nil {
				dims = *parentSize
			}

			panes = append(panes, PositionedPane{
				Index:    index,
				IsActive: index == t.active,
				Left:     left,
				Top:      top,
				Width:    int(dims.Cols),
				Height:   int(dims.Rows),
				Pane:     pane,
			})
		}
		if !cursor.PreorderNext() {
			break
		}
	}
	return panes
}

// IterSplits walks the tree and produces the flattened list of dividers.
// Split indices count internal nodes in pre-order, separately from pane
// indices.
func (t *Tab) IterSplits() []PositionedSplit {
	var dividers []PositionedSplit
	cursor := t.tree.Cursor()
	if cursor.node == nil {
		return dividers
	}
	index := 0

	for {
		if !cursor.IsLeaf() {
			left, top := 0, 0
			for _, node := range cursor.PathToRoot() {
				if node == nil {
					continue
				}
				left += node.Left
				top += node.Top
			}
			if node := cursor.Node(); node != nil {
				left += node.Left
				top += node.Top

				size := 0
				switch node.Direction {
				case SplitVertical:
					top += int(node.First.Rows)
					size = int(node.Width())
				case SplitHorizontal:
					left += int(node.First.Cols)
					size = int(node.Height())
				}

				dividers = append(dividers, PositionedSplit{
					Index:     index,
					Direction: node.Direction,
					Left:      left,
					Top:       top,
					Size:      size,
				})
			}
			index++
		}
		if !cursor.PreorderNext() {
			break
		}
	}
	return dividers
}

// Resize applies a new outer size, redistributing area through the tree.
// At each split the first child keeps its cell count on the split axis
// and the second child absorbs the slack, so user-sized panels stay
// stable while the window grows or shrinks. Pane resize failures are
// joined into the returned error; the layout still advances to the
// intended geometry.
func (t *Tab) Resize(size PtySize) error {
	if size.Rows == 0 || size.Cols == 0 {
		return fmt.Errorf("Tab %d: refusing resize to %dx%d", t.id, size.Cols, size.Rows)
	}
	cellWidth := size.PixelWidth / size.Cols
	cellHeight := size.PixelHeight / size.Rows

	t.size = size

	var errs []error
	cursor := t.tree.Cursor()
	if cursor.node == nil {
		return nil
	}

	for {
		// The available area comes from the immediate parent's child
		// slot; the root works from the new outer size. Pre-order
		// guarantees the parent slot was already updated.
		paneSize := size
		if parent := cursor.ParentNode(); parent != nil {
			if cursor.IsRight() {
				paneSize = parent.Second
			} else {
				paneSize = parent.First
			}
		}

		if cursor.IsLeaf() {
			if pane, ok := cursor.Leaf(); ok {
				if err := pane.Resize(paneSize); err != nil {
					errs = append(errs, fmt.Errorf("pane %d: %w", pane.PaneID(), err))
				}
			}
		} else if node := cursor.Node(); node != nil {
			if node.Direction == SplitHorizontal {
				node.First.Rows = paneSize.Rows
				node.Second.Rows = paneSize.Rows
				node.Second.Cols = clampDim(int(paneSize.Cols) - int(node.First.Cols) - 1)
			} else {
				node.First.Cols = paneSize.Cols
				node.Second.Cols = paneSize.Cols
				node.Second.Rows = clampDim(int(paneSize.Rows) - int(node.First.Rows) - 1)
			}
			node.First.PixelWidth = node.First.Cols * cellWidth
			node.First.PixelHeight = node.First.Rows * cellHeight
			node.Second.PixelWidth = node.Second.Cols * cellWidth
			node.Second.PixelHeight = node.Second.Rows * cellHeight
		}

		if !cursor.PreorderNext() {
			break
		}
	}
	return errors.Join(errs...)
}

// clampDim keeps a derived child dimension viable when the first child no
// longer fits the shrunken area.
func clampDim(dim int) uint16 {
	if dim < 1 {
		return 1
	}
	return uint16(dim)
}

// GetActivePane returns the pane at the active index, or nil when the
// tree is empty.
func (t *Tab) GetActivePane() Pane {
	panes := t.IterPanes()
	if t.active < 0 || t.active >= len(panes) {
		return nil
	}
	return panes[t.active].Pane
}

// GetActiveIdx returns the active pane index.
func (t *Tab) GetActiveIdx() int {
	return t.active
}

// SetActiveIdx moves keyboard focus to the given pane index.
func (t *Tab) SetActiveIdx(paneIndex int) {
	t.active = paneIndex
}

// IsDead reports whether every pane in this tab has died.
func (t *Tab) IsDead() bool {
	panes := t.IterPanes()
	deadCount := 0
	for _, pos := range panes {
		if pos.Pane.IsDead() {
			deadCount++
		}
	}
	return deadCount == len(panes)
}

// cellDimensions returns the pixel size of a single cell derived from the
// current outer size.
func (t *Tab) cellDimensions() PtySize {
	return PtySize{
		Rows:        1,
		Cols:        1,
		PixelWidth:  t.size.PixelWidth / t.size.Cols,
		PixelHeight: t.size.PixelHeight / t.size.Rows,
	}
}

// splitDimension halves a dimension for a prospective split. An even
// dimension gives one cell from the new (second) child to the divider.
func splitDimension(dim int) (int, int) {
	halved := dim / 2
	if halved*2 == dim {
		second := halved - 1
		if second < 0 {
			second = 0
		}
		return halved, second
	}
	return halved, halved
}

// ComputeSplitSize computes the sizes that would result from splitting
// the pane at paneIndex in the given direction. Callers use it to create
// the new pane with the correct size before SplitAndInsert. Returns nil
// when paneIndex is out of range.
func (t *Tab) ComputeSplitSize(paneIndex int, direction SplitDirection) *SplitDirectionAndSize {
	panes := t.IterPanes()
	if paneIndex < 0 || paneIndex >= len(panes) {
		return nil
	}
	pos := panes[paneIndex]
	cellDims := t.cellDimensions()

	var width1, width2, height1, height2 int
	switch direction {
	case SplitHorizontal:
		width1, width2 = splitDimension(pos.Width)
		height1, height2 = pos.Height, pos.Height
	case SplitVertical:
		width1, width2 = pos.Width, pos.Width
		height1, height2 = splitDimension(pos.Height)
	}

	return &SplitDirectionAndSize{
		Direction: direction,
		Left:      pos.Left,
		Top:       pos.Top,
		First: PtySize{
			Rows:        uint16(height1),
			Cols:        uint16(width1),
			PixelWidth:  cellDims.PixelWidth * uint16(width1),
			PixelHeight: cellDims.PixelHeight * uint16(height1),
		},
		Second: PtySize{
			Rows:        uint16(height2),
			Cols:        uint16(width2),
			PixelWidth:  cellDims.PixelWidth * uint16(width2),
			PixelHeight: cellDims.PixelHeight * uint16(height2),
		},
	}
}

// SplitAndInsert splits the pane at paneIndex in the given direction and
// seats the provided pane as the right/bottom half of the new split. Both
// panes are resized. Returns the index of the inserted pane, which also
// becomes active.
func (t *Tab) SplitAndInsert(paneIndex int, direction SplitDirection, pane Pane) (int, error) {
	splitInfo := t.ComputeSplitSize(paneIndex, direction)
	if splitInfo == nil {
		return 0, fmt.Errorf("invalid pane index %d; cannot split", paneIndex)
	}

	cursor := t.tree.Cursor()
	if err := cursor.GoToNthLeaf(paneIndex); err != nil {
		return 0, fmt.Errorf("invalid pane index %d; cannot split: %w", paneIndex, err)
	}

	existing, _ := cursor.Leaf()
	if err := existing.Resize(splitInfo.First); err != nil {
		return 0, fmt.Errorf("resize pane %d: %w", existing.PaneID(), err)
	}
	if err := pane.Resize(splitInfo.Second); err != nil {
		return 0, fmt.Errorf("resize pane %d: %w", pane.PaneID(), err)
	}

	if err := cursor.SplitLeafAndInsertRight(pane); err != nil {
		return 0, fmt.Errorf("split pane index %d: %w", paneIndex, err)
	}
	// The cursor now sits on the freshly created split node; populate it.
	if err := cursor.AssignNode(splitInfo); err != nil {
		return 0, fmt.Errorf("split pane index %d: %w", paneIndex, err)
	}

	t.active = paneIndex + 1
	return paneIndex + 1, nil
}

// PruneDeadPanes removes every leaf whose pane has died. The surviving
// sibling of each pruned leaf absorbs the parent's full area. The removal
// of pruned ids from the registry is deferred to the mux thread as a
// single task.
func (t *Tab) PruneDeadPanes() {
	var deadPanes []PaneId

	activeIdx := t.active
	cellDims := t.cellDimensions()
	cursor := t.tree.Cursor()
	paneIndex := 0

	for cursor.node != nil {
		if cursor.IsLeaf() {
			pane, _ := cursor.Leaf()
			if pane.IsDead() {
				if paneIndex == activeIdx {
					activeIdx = saturatingSub(paneIndex, 1)
				}

				removed, parent, err := cursor.UnsplitLeaf()
				if err != nil {
					// The root leaf died: the tree empties out and no
					// area needs redistributing.
					deadPanes = append(deadPanes, pane.PaneID())
					t.tree.root = nil
					break
				}
				deadPanes = append(deadPanes, removed.PaneID())

				if survivor, ok := cursor.Leaf(); ok {
					var rows, cols uint16
					switch parent.Direction {
					case SplitHorizontal:
						rows = parent.First.Rows
						cols = parent.First.Cols + parent.Second.Cols + 1
					case SplitVertical:
						rows = parent.First.Rows + parent.Second.Rows + 1
						cols = parent.First.Cols
					}
					size := PtySize{
						Rows:        rows,
						Cols:        cols,
						PixelWidth:  cellDims.PixelWidth * cols,
						PixelHeight: cellDims.PixelHeight * rows,
					}
					if err := survivor.Resize(size); err != nil {
						log.Printf("Tab %d: resize pane %d after prune: %v", t.id, survivor.PaneID(), err)
					}
				}
			}
			paneIndex++
		}
		if !cursor.PreorderNext() {
			break
		}
	}

	t.active = activeIdx

	if len(deadPanes) == 0 {
		return
	}
	log.Printf("Tab %d: pruned %d dead pane(s)", t.id, len(deadPanes))
	if m := Get(); m != nil {
		m.Spawn(func() {
			for _, id := range deadPanes {
				m.RemovePane(id)
			}
		})
	}
}

func saturatingSub(a, b int) int {
	if a-b < 0 {
		return 0
	}
	return a - b
}
