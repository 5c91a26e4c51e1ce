package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/handhud/internal/detector"
)

// DefaultTolerance is the match tolerance used when a template omits one.
const DefaultTolerance = 0.15

// Template is a recorded hand pose stored for the template classifier.
type Template struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Tolerance float64            `json:"tolerance"`
	Landmarks []detector.Point3D `json:"landmarks"`
	CreatedAt time.Time          `json:"created_at"`
}

// Classifier converts the stored row into a classifier template with
// normalized landmarks.
func (t *Template) Classifier() *detector.Template {
	var hand detector.HandLandmarks
	copy(hand.Points[:], t.Landmarks)
	normalized := hand.Normalize()

	return &detector.Template{
		ID:        t.ID,
		Label:     t.Label,
		Landmarks: append([]detector.Point3D(nil), normalized.Points[:]...),
		Tolerance: t.Tolerance,
	}
}

// TemplateRepository provides CRUD operations for landmark templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts a new template.
func (r *TemplateRepository) Create(t *Template) error {
	if t.ID == "" || t.Label == "" {
		return errors.New("template id and label are required")
	}
	if len(t.Landmarks) != detector.NumLandmarks {
		return fmt.Errorf("template needs %d landmarks, got %d", detector.NumLandmarks, len(t.Landmarks))
	}
	if t.Tolerance <= 0 {
		t.Tolerance = DefaultTolerance
	}

	data, err := json.Marshal(t.Landmarks)
	if err != nil {
		return fmt.Errorf("encode landmarks: %w", err)
	}

	t.CreatedAt = time.Now()
	_, err = r.db.Exec(
		`INSERT INTO templates (id, label, tolerance, landmarks, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Label, t.Tolerance, string(data), t.CreatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	row := r.db.QueryRow(
		`SELECT id, label, tolerance, landmarks, created_at FROM templates WHERE id = ?`,
		id,
	)

	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves all templates, oldest first.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT id, label, tolerance, landmarks, created_at FROM templates ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// Delete removes a template by its ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	t := &Template{}
	var data string
	if err := row.Scan(&t.ID, &t.Label, &t.Tolerance, &data, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &t.Landmarks); err != nil {
		return nil, fmt.Errorf("decode landmarks for template %s: %w", t.ID, err)
	}
	return t, nil
}
