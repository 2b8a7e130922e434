package store

import (
	"database/sql"
	"time"
)

// DefaultListLimit caps the number of translations returned by List.
const DefaultListLimit = 100

// Translation is an emitted word stored in the database.
type Translation struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ClassIndex int       `json:"class_index"`
	Word       string    `json:"word"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// TranslationRepository records emitted words.
type TranslationRepository struct {
	db *sql.DB
}

// Translations returns the translation repository for this store.
func (s *Store) Translations() *TranslationRepository {
	return &TranslationRepository{db: s.db}
}

// Create inserts a translation. Its session must exist.
func (r *TranslationRepository) Create(t *Translation) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO translations (id, session_id, class_index, word, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.ClassIndex, t.Word, t.Confidence, t.CreatedAt,
	)
	return err
}

// List retrieves the most recent translations, newest first.
// Values of limit less than or equal to 0 use DefaultListLimit.
func (r *TranslationRepository) List(limit int) ([]*Translation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, class_index, word, confidence, created_at
		 FROM translations ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return scanTranslations(rows)
}

// GetBySessionID retrieves the translations of a session in emission order.
func (r *TranslationRepository) GetBySessionID(sessionID string) ([]*Translation, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, class_index, word, confidence, created_at
		 FROM translations WHERE session_id = ? ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	return scanTranslations(rows)
}

func scanTranslations(rows *sql.Rows) ([]*Translation, error) {
	defer rows.Close()

	var translations []*Translation
	for rows.Next() {
		t := &Translation{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ClassIndex, &t.Word, &t.Confidence, &t.CreatedAt); err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return translations, nil
}
