package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/handhud/internal/gesture"
	"github.com/ayusman/handhud/internal/mode"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Override maps a confirmed gesture label to the mode it forces.
type Override struct {
	Label     string    `json:"label"`
	Mode      mode.Mode `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OverrideRepository provides CRUD operations for the override table.
type OverrideRepository struct {
	db *sql.DB
}

// Overrides returns the override repository for this store.
func (s *Store) Overrides() *OverrideRepository {
	return &OverrideRepository{db: s.db}
}

// Put inserts or replaces the override for o.Label.
func (r *OverrideRepository) Put(o *Override) error {
	if o.Label == "" {
		return errors.New("override label is required")
	}
	if o.Label == gesture.None {
		return errors.New("the None gesture cannot be overridden")
	}
	if !o.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", o.Mode)
	}

	o.UpdatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO overrides (label, mode, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(label) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at`,
		o.Label, string(o.Mode), o.UpdatedAt,
	)
	return err
}

// Get retrieves the override for label.
func (r *OverrideRepository) Get(label string) (*Override, error) {
	o := &Override{}
	var m string

	err := r.db.QueryRow(
		`SELECT label, mode, updated_at FROM overrides WHERE label = ?`,
		label,
	).Scan(&o.Label, &m, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	o.Mode = mode.Mode(m)
	return o, nil
}

// List retrieves all overrides ordered by label.
func (r *OverrideRepository) List() ([]*Override, error) {
	rows, err := r.db.Query(`SELECT label, mode, updated_at FROM overrides ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []*Override
	for rows.Next() {
		o := &Override{}
		var m string
		if err := rows.Scan(&o.Label, &m, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Mode = mode.Mode(m)
		overrides = append(overrides, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

// Table returns the overrides as the lookup table the pipeline uses.
func (r *OverrideRepository) Table() (mode.Overrides, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}

	table := make(mode.Overrides, len(list))
	for _, o := range list {
		table[o.Label] = o.Mode
	}
	return table, nil
}

// Delete removes the override for label.
func (r *OverrideRepository) Delete(label string) error {
	result, err := r.db.Exec(`DELETE FROM overrides WHERE label = ?`, label)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
