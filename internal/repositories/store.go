package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store is a load/save contract over a single named record.
//
// Load returns the record's default value when nothing was persisted yet or
// the persisted data is unparseable; corruption never fails a run, it only
// resets that record. Save overwrites the prior record wholesale.
type Store[T any] interface {
	Load() (T, error)
	Save(value T) error
}

// FileStore persists one record as a JSON document at a fixed path.
type FileStore[T any] struct {
	path     string
	defaults func() T
}

// NewFileStore creates a file-backed [Store]. defaults produces the value
// returned when the file is absent or corrupt.
func NewFileStore[T any](path string, defaults func() T) *FileStore[T] {
	return &FileStore[T]{path: path, defaults: defaults}
}

func (s *FileStore[T]) Load() (T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.defaults(), nil
		}
		return s.defaults(), fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	value := s.defaults()
	if err := json.Unmarshal(data, &value); err != nil {
		// Unparseable state starts the record over rather than failing the run.
		return s.defaults(), nil
	}

	return value, nil
}

// Save writes the record to a temporary file and renames it into place, so
// a crash mid-write never leaves a truncated record behind.
func (s *FileStore[T]) Save(value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	return nil
}
