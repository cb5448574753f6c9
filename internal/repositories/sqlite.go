package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLiteStore persists one record as a named row in the state_records
// table, with the same JSON payload the file backend writes.
type SQLiteStore[T any] struct {
	db       *sql.DB
	name     string
	defaults func() T
}

// NewSQLiteStore creates a sqlite-backed [Store] for the named record.
// The state_records table comes from the shared migrations.
func NewSQLiteStore[T any](db *sql.DB, name string, defaults func() T) *SQLiteStore[T] {
	return &SQLiteStore[T]{db: db, name: name, defaults: defaults}
}

func (s *SQLiteStore[T]) Load() (T, error) {
	var data string
	err := s.db.QueryRow("SELECT value FROM state_records WHERE name = ?", s.name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.defaults(), nil
		}
		return s.defaults(), fmt.Errorf("failed to read record %s: %w", s.name, err)
	}

	value := s.defaults()
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		// Unparseable state starts the record over rather than failing the run.
		return s.defaults(), nil
	}

	return value, nil
}

func (s *SQLiteStore[T]) Save(value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO state_records (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, s.name, string(data))
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", s.name, err)
	}

	return nil
}
