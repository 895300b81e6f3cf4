// Copyright © 2025 Muxel contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: term/history.go
// Summary: SQLite-backed index of scrolled-out terminal lines.
// Usage: Optional; enabled when the config names a database path.

package term

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryMatch is one line returned from a history query.
type HistoryMatch struct {
	LineIdx   int64
	Timestamp time.Time
	Content   string
}

// HistoryIndex records lines as they scroll out of a pane's viewport and
// answers substring queries over them. All methods are safe for
// concurrent use.
type HistoryIndex struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenHistoryIndex opens (creating if needed) the index at path.
func OpenHistoryIndex(path string) (*HistoryIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			line_idx   INTEGER PRIMARY KEY,
			created_at INTEGER NOT NULL,
			content    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS history_created_at ON history(created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &HistoryIndex{db: db}, nil
}

// IndexLine records one scrolled-out line. Blank lines are skipped.
// Re-indexing the same line replaces the previous content.
func (h *HistoryIndex) IndexLine(lineIdx int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.db.Exec(
		`INSERT OR REPLACE INTO history(line_idx, created_at, content) VALUES(?, ?, ?)`,
		lineIdx, time.Now().Unix(), text,
	)
	return err
}

// Search returns up to limit lines containing the query, newest first.
func (h *HistoryIndex) Search(query string, limit int) ([]HistoryMatch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	rows, err := h.db.Query(
		`SELECT line_idx, created_at, content FROM history
		 WHERE content LIKE ? ESCAPE '\'
		 ORDER BY line_idx DESC LIMIT ?`,
		"%"+escaped+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []HistoryMatch
	for rows.Next() {
		var m HistoryMatch
		var createdAt int64
		if err := rows.Scan(&m.LineIdx, &createdAt, &m.Content); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(createdAt, 0)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// PruneBefore drops lines indexed before the cutoff.
func (h *HistoryIndex) PruneBefore(cutoff time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.db.Exec(`DELETE FROM history WHERE created_at < ?`, cutoff.Unix())
	return err
}

// Close releases the database.
func (h *HistoryIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}
