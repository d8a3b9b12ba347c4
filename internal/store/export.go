package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/studydesk/internal/model"
)

// ExportEvents builds an export of every event of a client, oldest first,
// data included.
func (s *Store) ExportEvents(clientID string) (model.HistoryExport, error) {
	out := model.HistoryExport{ClientID: clientID, ExportedAt: time.Now().UTC(), Events: []model.Event{}}

	rows, err := s.db.Query(
		`SELECT id, client_id, kind, title, data, file_path, created_at FROM events
		 WHERE client_id = ? ORDER BY id`, clientID,
	)
	if err != nil {
		return out, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ev model.Event
		var data string
		if err := rows.Scan(&ev.ID, &ev.ClientID, &ev.Kind, &ev.Title, &data, &ev.FilePath, &ev.CreatedAt); err != nil {
			return out, fmt.Errorf("scan event: %w", err)
		}
		ev.Data = json.RawMessage(data)
		out.Events = append(out.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	out.NumEvents = len(out.Events)
	return out, nil
}

// Recorder appends orchestrator artifacts to the history of one client.
type Recorder struct {
	Store    *Store
	ClientID string
}

// Record stores data as the JSON payload of a new event.
func (r Recorder) Record(ctx context.Context, kind model.ArtifactKind, title string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	_, err = r.Store.SaveEvent(model.Event{
		ClientID: r.ClientID,
		Kind:     kind,
		Title:    title,
		Data:     b,
	})
	return err
}
