package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/holdsense/internal/detector"
)

// Recording is a captured sequence of tracked bodies.
type Recording struct {
	ID        string
	Name      string
	Frames    int
	CreatedAt time.Time
}

// Frame is one body in a recording, offset from the recording start.
type Frame struct {
	Sequence int
	OffsetMs int64
	Body     detector.Body
}

// RecordingRepository stores recordings and their frames.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a recording and all of its frames in one transaction.
// Frame sequence numbers are assigned in slice order.
func (r *RecordingRepository) Create(rec *Recording, frames []Frame) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Frames = len(frames)

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO recordings (id, name, frames, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Frames, rec.CreatedAt,
	)
	if err != nil {
		return mapConstraintError(err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO recording_frames (recording_id, sequence, offset_ms, body) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range frames {
		frames[i].Sequence = i
		body, err := json.Marshal(frames[i].Body)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(rec.ID, i, frames[i].OffsetMs, string(body)); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a recording without its frames.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}

	err := r.db.QueryRow(
		`SELECT id, name, frames, created_at FROM recordings WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Frames, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rec, nil
}

// List retrieves all recordings, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, name, frames, created_at FROM recordings ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec := &Recording{}
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Frames, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recordings, nil
}

// Frames returns the frames of a recording in sequence order.
func (r *RecordingRepository) Frames(id string) ([]Frame, error) {
	if _, err := r.GetByID(id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT sequence, offset_ms, body FROM recording_frames
		 WHERE recording_id = ? ORDER BY sequence`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var body string
		if err := rows.Scan(&f.Sequence, &f.OffsetMs, &body); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &f.Body); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", f.Sequence, err)
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Bodies returns just the bodies of a recording, ready for replay.
func (r *RecordingRepository) Bodies(id string) ([]detector.Body, error) {
	frames, err := r.Frames(id)
	if err != nil {
		return nil, err
	}

	bodies := make([]detector.Body, len(frames))
	for i, f := range frames {
		bodies[i] = f.Body
	}
	return bodies, nil
}

// Delete removes a recording and, by cascade, its frames.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
