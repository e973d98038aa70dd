// Package storage persists projects and their raw log blobs.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/log-viewer/backend/internal/models"
)

var (
	// ErrNotFound is returned when a project or log ID does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a project name is already taken.
	ErrConflict = errors.New("already exists")
)

// Store defines the interface for project and log storage.
// Log content is stored verbatim; parsing happens at read time.
type Store interface {
	CreateProject(ctx context.Context, name string) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	// DeleteProject removes the project and every log it owns.
	DeleteProject(ctx context.Context, id string) error

	SaveLog(ctx context.Context, projectID, name string, r io.Reader) (*models.LogInfo, error)
	GetLog(ctx context.Context, id string) (*models.LogInfo, error)
	// ListLogs returns the project's logs newest first. limit <= 0 returns all.
	ListLogs(ctx context.Context, projectID string, limit int) ([]*models.LogInfo, error)
	GetLogContent(ctx context.Context, id string) (string, error)
	DeleteLog(ctx context.Context, id string) error

	Close() error
}
