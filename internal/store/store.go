package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/studydesk/internal/model"

	_ "modernc.org/sqlite"
)

// DefaultListLimit caps ListEvents when no limit is given.
const DefaultListLimit = 100

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '{}',
		file_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS events_client_created_idx
		ON events (client_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveEvent appends an event and returns it with ID and CreatedAt set.
func (s *Store) SaveEvent(ev model.Event) (model.Event, error) {
	if ev.Kind == "" {
		return ev, fmt.Errorf("save event: kind is required")
	}
	if len(ev.Data) == 0 {
		ev.Data = []byte("{}")
	}
	ev.CreatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO events (client_id, kind, title, data, file_path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ClientID, ev.Kind, ev.Title, string(ev.Data), ev.FilePath, ev.CreatedAt,
	)
	if err != nil {
		return ev, fmt.Errorf("save event: %w", err)
	}
	ev.ID, err = res.LastInsertId()
	return ev, err
}

// ListEvents returns a client's events newest first, without their data.
func (s *Store) ListEvents(clientID string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(
		`SELECT id, client_id, kind, title, file_path, created_at FROM events
		 WHERE client_id = ? ORDER BY id DESC LIMIT ?`, clientID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.ClientID, &ev.Kind, &ev.Title, &ev.FilePath, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetEvent returns one event with its data. An empty clientID matches any
// client. Returns nil if there is no such event.
func (s *Store) GetEvent(id int64, clientID string) (*model.Event, error) {
	var ev model.Event
	var data string
	err := s.db.QueryRow(
		`SELECT id, client_id, kind, title, data, file_path, created_at FROM events
		 WHERE id = ? AND (client_id = ? OR ? = '')`, id, clientID, clientID,
	).Scan(&ev.ID, &ev.ClientID, &ev.Kind, &ev.Title, &data, &ev.FilePath, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ev.Data = []byte(data)
	return &ev, nil
}

// EventCount returns the number of stored events.
func (s *Store) EventCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}
