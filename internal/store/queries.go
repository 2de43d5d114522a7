package store

import (
	"fmt"
	"time"
)

// SetProtected records the protection flag for an app identity. The row is
// kept (not deleted) when protection is removed so the updated_at history
// survives; LoadProtected only returns identities currently protected.
func (s *Store) SetProtected(id string, protected bool) error {
	query := `
		INSERT OR REPLACE INTO protected_apps (app_id, protected, updated_at)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.Exec(query, id, protected, time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to set protection for %s: %w", id, err)
	}
	return nil
}

// LoadProtected returns the set of currently protected app identities.
func (s *Store) LoadProtected() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT app_id FROM protected_apps WHERE protected`)
	if err != nil {
		return nil, fmt.Errorf("failed to load protected apps: %w", err)
	}
	defer rows.Close()

	protected := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan protected app: %w", err)
		}
		protected[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate protected apps: %w", err)
	}
	return protected, nil
}

// CountProtected returns the number of currently protected identities.
func (s *Store) CountProtected() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM protected_apps WHERE protected`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count protected apps: %w", err)
	}
	return n, nil
}
