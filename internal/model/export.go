package model

import (
	"encoding/json"
	"time"
)

// Event is one row of the local artifact history.
type Event struct {
	ID        int64           `json:"id"`
	ClientID  string          `json:"client_id"`
	Kind      ArtifactKind    `json:"kind"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
	FilePath  string          `json:"file_path,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// History-only event kinds. They never appear as an Artifact kind.
const (
	KindGrade   ArtifactKind = "grade"
	KindSlides  ArtifactKind = "slides"
	KindPlanPDF ArtifactKind = "plan_pdf"
)

// HistoryExport is the top-level JSON structure for history export.
type HistoryExport struct {
	ClientID   string    `json:"client_id"`
	ExportedAt time.Time `json:"exported_at"`
	NumEvents  int       `json:"num_events"`
	Events     []Event   `json:"events"`
}
