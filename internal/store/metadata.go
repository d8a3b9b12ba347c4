package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const clientIDKey = "client_id"

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// ClientID returns the identifier of this installation, creating it on
// first use.
func (s *Store) ClientID() (string, error) {
	id, err := s.GetMetadata(clientIDKey)
	if err != nil {
		return "", fmt.Errorf("read client id: %w", err)
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.SetMetadata(clientIDKey, id); err != nil {
		return "", fmt.Errorf("store client id: %w", err)
	}
	return id, nil
}
