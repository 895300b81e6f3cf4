// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/tree.go
// Summary: Binary pane tree with a navigable cursor.
// Usage: Owned by Tab; every structural operation goes through a Cursor.

package mux

import "errors"

var (
	// ErrTreeNotEmpty is returned when a root pane is assigned to a tree
	// that already has one.
	ErrTreeNotEmpty = errors.New("tree already has a root")
	// ErrNotLeaf is returned when a leaf-only cursor operation is
	// attempted on an internal node or an empty tree.
	ErrNotLeaf = errors.New("cursor is not positioned at a leaf")
	// ErrNoSuchLeaf is returned when a leaf index is out of range.
	ErrNoSuchLeaf = errors.New("no leaf with that index")
	// ErrAtRoot is returned when unsplitting the root leaf, which has no
	// sibling to absorb its area.
	ErrAtRoot = errors.New("cannot unsplit the root")
)

// treeNode is either a leaf carrying a pane or an internal node carrying
// split metadata and exactly two children.
type treeNode struct {
	parent *treeNode
	pane   Pane
	split  *SplitDirectionAndSize
	first  *treeNode
	second *treeNode
}

func (n *treeNode) isLeaf() bool {
	return n.first == nil && n.second == nil
}

// Tree is a binary tree of pane leaves and split nodes. A freshly created
// tree is empty until AssignTop seats the first leaf.
type Tree struct {
	root *treeNode
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Cursor returns a cursor seated at the root. Structural mutations made
// through one cursor invalidate any other outstanding cursor.
func (t *Tree) Cursor() *Cursor {
	return &Cursor{tree: t, node: t.root}
}

// Cursor is a movable position within a Tree. The zero position of an
// empty tree is the single notional slot the root leaf will occupy.
type Cursor struct {
	tree *Tree
	node *treeNode
}

// IsLeaf reports whether the cursor is positioned at a leaf.
func (c *Cursor) IsLeaf() bool {
	return c.node != nil && c.node.isLeaf()
}

// IsRight reports whether the current position is the second (right or
// bottom) child of its parent.
func (c *Cursor) IsRight() bool {
	return c.node != nil && c.node.parent != nil && c.node.parent.second == c.node
}

// Leaf returns the pane at the current position, if it is a leaf.
func (c *Cursor) Leaf() (Pane, bool) {
	if !c.IsLeaf() {
		return nil, false
	}
	return c.node.pane, true
}

// Node returns the split payload at the current position, or nil when the
// position is a leaf or the payload has not been assigned yet.
func (c *Cursor) Node() *SplitDirectionAndSize {
	if c.node == nil || c.node.isLeaf() {
		return nil
	}
	return c.node.split
}

// ParentNode returns the split payload of the immediate parent, or nil at
// the root.
func (c *Cursor) ParentNode() *SplitDirectionAndSize {
	if c.node == nil || c.node.parent == nil {
		return nil
	}
	return c.node.parent.split
}

// PathToRoot returns the split payloads of the ancestors of the current
// position, nearest first. A nil entry marks an ancestor whose payload
// has not been assigned.
func (c *Cursor) PathToRoot() []*SplitDirectionAndSize {
	var path []*SplitDirectionAndSize
	if c.node == nil {
		return path
	}
	for n := c.node.parent; n != nil; n = n.parent {
		path = append(path, n.split)
	}
	return path
}

// PreorderNext advances the cursor in pre-order. It returns false when
// the traversal is exhausted, leaving the cursor at its final position.
func (c *Cursor) PreorderNext() bool {
	n := c.node
	if n == nil {
		return false
	}
	if n.first != nil {
		c.node = n.first
		return true
	}
	for n.parent != nil {
		if n.parent.first == n {
			c.node = n.parent.second
			return true
		}
		n = n.parent
	}
	return false
}

// AssignTop seats the given pane as the root leaf of an empty tree.
func (c *Cursor) AssignTop(pane Pane) error {
	if c.tree.root != nil {
		return ErrTreeNotEmpty
	}
	c.tree.root = &treeNode{pane: pane}
	c.node = c.tree.root
	return nil
}

// GoToNthLeaf positions the cursor at the n-th leaf in pre-order.
func (c *Cursor) GoToNthLeaf(n int) error {
	if n < 0 || c.tree.root == nil {
		return ErrNoSuchLeaf
	}
	c.node = c.tree.root
	seen := 0
	for {
		if c.IsLeaf() {
			if seen == n {
				return nil
			}
			seen++
		}
		if !c.PreorderNext() {
			return ErrNoSuchLeaf
		}
	}
}

// SplitLeafAndInsertRight replaces the current leaf with an internal node
// whose first child is the existing leaf and whose second child holds the
// provided pane. The node's payload starts empty; callers must populate
// it with AssignNode. On success the cursor is positioned at the new
// internal node.
func (c *Cursor) SplitLeafAndInsertRight(pane Pane) error {
	if !c.IsLeaf() {
		return ErrNotLeaf
	}
	n := c.node
	n.first = &treeNode{parent: n, pane: n.pane}
	n.second = &treeNode{parent: n, pane: pane}
	n.pane = nil
	n.split = nil
	return nil
}

// AssignNode writes the split payload at the current position.
func (c *Cursor) AssignNode(split *SplitDirectionAndSize) error {
	if c.node == nil || c.node.isLeaf() {
		return errors.New("cursor is not positioned at a split node")
	}
	c.node.split = split
	return nil
}

// UnsplitLeaf removes the current leaf, promotes the surviving sibling
// into the parent's slot and returns the removed pane together with the
// parent's split payload. On success the cursor is positioned at the
// surviving sibling, which may itself be a subtree. The tree is left
// untouched on error.
func (c *Cursor) UnsplitLeaf() (Pane, *SplitDirectionAndSize, error) {
	if !c.IsLeaf() {
		return nil, nil, ErrNotLeaf
	}
	n := c.node
	parent := n.parent
	if parent == nil {
		return nil, nil, ErrAtRoot
	}

	survivor := parent.first
	if survivor == n {
		survivor = parent.second
	}

	grandparent := parent.parent
	survivor.parent = grandparent
	switch {
	case grandparent == nil:
		c.tree.root = survivor
	case grandparent.first == parent:
		grandparent.first = survivor
	default:
		grandparent.second = survivor
	}

	c.node = survivor
	return n.pane, parent.split, nil
}
