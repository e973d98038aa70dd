package models

import "time"

// Project groups the logs uploaded by one application.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LogInfo represents metadata about an uploaded log blob.
// The content itself is fetched separately and parsed on demand.
type LogInfo struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	LineCount int       `json:"line_count"`
	CreatedAt time.Time `json:"created_at"`
}
