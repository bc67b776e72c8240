package store

import (
	"database/sql"
	"errors"
	"time"
)

// Calibration is a captured offset for mapping the hold center to control space.
type Calibration struct {
	ID        string
	OffsetX   float64
	OffsetY   float64
	CreatedAt time.Time
}

// CalibrationRepository stores calibration history.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create inserts a new calibration.
func (r *CalibrationRepository) Create(c *Calibration) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO calibrations (id, offset_x, offset_y, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.OffsetX, c.OffsetY, c.CreatedAt,
	)
	return mapConstraintError(err)
}

// Latest returns the most recent calibration, or ErrNotFound if none exists.
func (r *CalibrationRepository) Latest() (*Calibration, error) {
	c := &Calibration{}

	err := r.db.QueryRow(
		`SELECT id, offset_x, offset_y, created_at
		 FROM calibrations ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&c.ID, &c.OffsetX, &c.OffsetY, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return c, nil
}

// List returns up to limit calibrations, newest first. A limit <= 0 returns all.
func (r *CalibrationRepository) List(limit int) ([]*Calibration, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, offset_x, offset_y, created_at
		 FROM calibrations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calibrations []*Calibration
	for rows.Next() {
		c := &Calibration{}
		if err := rows.Scan(&c.ID, &c.OffsetX, &c.OffsetY, &c.CreatedAt); err != nil {
			return nil, err
		}
		calibrations = append(calibrations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return calibrations, nil
}

// Clear removes all calibrations.
func (r *CalibrationRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM calibrations`)
	return err
}
