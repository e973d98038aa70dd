package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"

	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
)

var logger = logging.New("DuckStore")

// Options tunes the embedded database.
type Options struct {
	MemoryLimit string // e.g. "1GB"
	Threads     int
	// MaxConcurrentReads bounds content reads running at once.
	MaxConcurrentReads int
}

// DefaultOptions mirrors the defaults in config.
func DefaultOptions() Options {
	return Options{
		MemoryLimit:        "1GB",
		Threads:            4,
		MaxConcurrentReads: 3,
	}
}

var schema = []string{
	"CREATE SEQUENCE IF NOT EXISTS log_seq",
	`CREATE TABLE IF NOT EXISTS projects (
		id         VARCHAR PRIMARY KEY,
		name       VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id         VARCHAR PRIMARY KEY,
		seq        BIGINT NOT NULL DEFAULT nextval('log_seq'),
		project_id VARCHAR NOT NULL,
		name       VARCHAR NOT NULL,
		size       BIGINT NOT NULL,
		line_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		content    BLOB NOT NULL
	)`,
}

// DuckStore implements Store on a DuckDB database file.
// An empty path opens a private in-memory database.
type DuckStore struct {
	db   *sql.DB
	path string

	// mu serialises writes that check-then-insert.
	mu sync.Mutex
	// readSem limits concurrent content reads (large blobs).
	readSem chan struct{}
}

// NewDuckStore opens (or creates) the database at path.
func NewDuckStore(path string, opts Options) (*DuckStore, error) {
	if opts.MaxConcurrentReads <= 0 {
		opts.MaxConcurrentReads = 1
	}

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{"PRAGMA enable_progress_bar=false"}
		if opts.MemoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
		}
		if opts.Threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("executing %q: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating duckdb connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	where := path
	if where == "" {
		where = ":memory:"
	}
	logger.Infof("database ready at %s", where)

	return &DuckStore{
		db:      db,
		path:    path,
		readSem: make(chan struct{}, opts.MaxConcurrentReads),
	}, nil
}

// CreateProject adds a project. Names are unique.
func (s *DuckStore) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE name = ?", name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking project name: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("project %q: %w", name, ErrConflict)
	}

	p := &models.Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}

	logger.Infof("created project %s (%s)", p.ID, p.Name)
	return p, nil
}

// GetProject retrieves a project by ID.
func (s *DuckStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM projects WHERE id = ?", id)

	var p models.Project
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return &p, nil
}

// ListProjects returns every project, oldest first.
func (s *DuckStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM projects ORDER BY created_at, name")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// DeleteProject removes a project and its logs in one transaction.
func (s *DuckStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	logs, err := tx.ExecContext(ctx, "DELETE FROM logs WHERE project_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project logs: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	removed, _ := logs.RowsAffected()
	logger.Infof("deleted project %s and %d logs", id, removed)
	return nil
}

// SaveLog stores the blob read from r under the project.
func (s *DuckStore) SaveLog(ctx context.Context, projectID, name string, r io.Reader) (*models.LogInfo, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading log content: %w", err)
	}

	info := &models.LogInfo{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Size:      int64(len(content)),
		LineCount: parser.CountEntries(string(content)),
		CreatedAt: now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO logs (id, project_id, name, size, line_count, created_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.ProjectID, info.Name, info.Size, info.LineCount, info.CreatedAt, content)
	if err != nil {
		return nil, fmt.Errorf("inserting log: %w", err)
	}

	logger.Debugf("saved log %s (%d bytes, %d lines) to project %s", info.ID, info.Size, info.LineCount, projectID)
	return info, nil
}

const logColumns = "id, project_id, name, size, line_count, created_at"

// GetLog retrieves log metadata by ID.
func (s *DuckStore) GetLog(ctx context.Context, id string) (*models.LogInfo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+logColumns+" FROM logs WHERE id = ?", id)
	info, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("log %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return info, nil
}

// ListLogs returns the project's logs, newest first.
func (s *DuckStore) ListLogs(ctx context.Context, projectID string, limit int) ([]*models.LogInfo, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	query := "SELECT " + logColumns + " FROM logs WHERE project_id = ? ORDER BY seq DESC"
	args := []any{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	list := make([]*models.LogInfo, 0)
	for rows.Next() {
		info, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		list = append(list, info)
	}
	return list, rows.Err()
}

// GetLogContent returns the raw blob of a log.
func (s *DuckStore) GetLogContent(ctx context.Context, id string) (string, error) {
	select {
	case s.readSem <- struct{}{}:
		defer func() { <-s.readSem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var content []byte
	err := s.db.QueryRowContext(ctx, "SELECT content FROM logs WHERE id = ?", id).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("log %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("reading log content: %w", err)
	}
	return string(content), nil
}

// DeleteLog removes a single log.
func (s *DuckStore) DeleteLog(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("log %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database. The file is kept.
func (s *DuckStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner) (*models.LogInfo, error) {
	var info models.LogInfo
	err := row.Scan(&info.ID, &info.ProjectID, &info.Name, &info.Size, &info.LineCount, &info.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// now matches the microsecond precision of DuckDB TIMESTAMP columns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

var _ Store = (*DuckStore)(nil)
