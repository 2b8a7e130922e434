package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is a single classification run.
type Session struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// SessionRepository records classification sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start records the start of a session.
func (r *SessionRepository) Start(id string, at time.Time) error {
	_, err := r.db.Exec(`INSERT INTO sessions (id, started_at) VALUES (?, ?)`, id, at)
	return err
}

// End records the end of a session.
func (r *SessionRepository) End(id string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE sessions SET stopped_at = ? WHERE id = ?`, at, id)
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

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}
	var stopped sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, started_at, stopped_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.StartedAt, &stopped)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if stopped.Valid {
		s.StoppedAt = &stopped.Time
	}
	return s, nil
}

// List retrieves all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT id, started_at, stopped_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var stopped sql.NullTime
		if err := rows.Scan(&s.ID, &s.StartedAt, &stopped); err != nil {
			return nil, err
		}
		if stopped.Valid {
			s.StoppedAt = &stopped.Time
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
