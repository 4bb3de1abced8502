package state

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// AddHistory moves path to the front of the kind's history, trimming the
// list to core.MaxHistoryEntries.
func (s *SQLiteStore) AddHistory(kind HistoryKind, path string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM history WHERE kind = ? AND path = ?`, kind, path); err != nil {
		return fmt.Errorf("failed to add history: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO history (kind, path, used_at) VALUES (?, ?, ?)`,
		kind, path, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to add history: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM history WHERE kind = ? AND id NOT IN (
			SELECT id FROM history WHERE kind = ? ORDER BY id DESC LIMIT ?
		)`,
		kind, kind, core.MaxHistoryEntries,
	); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// ListHistory returns the kind's paths, most recent first.
func (s *SQLiteStore) ListHistory(kind HistoryKind) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT path FROM history WHERE kind = ? ORDER BY id DESC`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ClearHistory removes every entry of kind.
func (s *SQLiteStore) ClearHistory(kind HistoryKind) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(`DELETE FROM history WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
