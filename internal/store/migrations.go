package store

import "fmt"

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS overrides (
			label TEXT PRIMARY KEY,
			mode TEXT NOT NULL CHECK(mode IN ('IDLE', 'LISTENING', 'PROCESSING', 'SPEAKING', 'ANALYZING')),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Seed the built-in table once; deleting a row later sticks.
		`INSERT OR IGNORE INTO overrides (label, mode) VALUES ('Open_Palm', 'ANALYZING')`,
		`INSERT OR IGNORE INTO overrides (label, mode) VALUES ('Closed_Fist', 'IDLE')`,

		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			tolerance REAL NOT NULL DEFAULT 0.15,
			landmarks TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_templates_label ON templates(label)`,
	},
}

// runMigrations executes the migrations newer than the database's version.
func (s *Store) runMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", v+1, err)
			}
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
