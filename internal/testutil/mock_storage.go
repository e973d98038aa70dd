// mock_storage.go - In-memory storage implementation for testing
package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
	"github.com/log-viewer/backend/internal/storage"
)

type mockLog struct {
	info    *models.LogInfo
	content string
	seq     int
}

// MockStorage implements storage.Store in memory.
type MockStorage struct {
	mu       sync.RWMutex
	projects map[string]*models.Project
	logs     map[string]*mockLog
	seq      int

	contentReads atomic.Int64

	// ContentErr, when set, is returned by GetLogContent.
	ContentErr error
}

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		projects: make(map[string]*models.Project),
		logs:     make(map[string]*mockLog),
	}
}

func (m *MockStorage) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.projects {
		if p.Name == name {
			return nil, fmt.Errorf("project %q: %w", name, storage.ErrConflict)
		}
	}
	p := &models.Project{ID: generateTestID(), Name: name, CreatedAt: time.Now()}
	m.projects[p.ID] = p
	return p, nil
}

func (m *MockStorage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (m *MockStorage) ListProjects(ctx context.Context) ([]*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *MockStorage) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	for logID, l := range m.logs {
		if l.info.ProjectID == id {
			delete(m.logs, logID)
		}
	}
	delete(m.projects, id)
	return nil
}

func (m *MockStorage) SaveLog(ctx context.Context, projectID, name string, r io.Reader) (*models.LogInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if _, err := m.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return m.AddLog(projectID, generateTestID(), name, string(data)), nil
}

func (m *MockStorage) GetLog(ctx context.Context, id string) (*models.LogInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.logs[id]
	if !ok {
		return nil, fmt.Errorf("log %s: %w", id, storage.ErrNotFound)
	}
	return l.info, nil
}

func (m *MockStorage) ListLogs(ctx context.Context, projectID string, limit int) ([]*models.LogInfo, error) {
	if _, err := m.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*mockLog
	for _, l := range m.logs {
		if l.info.ProjectID == projectID {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	list := make([]*models.LogInfo, 0, len(matched))
	for _, l := range matched {
		if limit > 0 && len(list) >= limit {
			break
		}
		list = append(list, l.info)
	}
	return list, nil
}

func (m *MockStorage) GetLogContent(ctx context.Context, id string) (string, error) {
	m.contentReads.Add(1)
	if m.ContentErr != nil {
		return "", m.ContentErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.logs[id]
	if !ok {
		return "", fmt.Errorf("log %s: %w", id, storage.ErrNotFound)
	}
	return l.content, nil
}

func (m *MockStorage) DeleteLog(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.logs[id]; !ok {
		return fmt.Errorf("log %s: %w", id, storage.ErrNotFound)
	}
	delete(m.logs, id)
	return nil
}

func (m *MockStorage) Close() error { return nil }

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// AddProject adds a project with a fixed ID.
func (m *MockStorage) AddProject(id, name string) *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &models.Project{ID: id, Name: name, CreatedAt: time.Now()}
	m.projects[id] = p
	return p
}

// AddLog adds a log with a fixed ID. Later calls are newer.
func (m *MockStorage) AddLog(projectID, id, name, content string) *models.LogInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	info := &models.LogInfo{
		ID:        id,
		ProjectID: projectID,
		Name:      name,
		Size:      int64(len(content)),
		LineCount: parser.CountEntries(content),
		CreatedAt: time.Now(),
	}
	m.logs[id] = &mockLog{info: info, content: content, seq: m.seq}
	return info
}

// ContentReads returns how many times GetLogContent was called.
func (m *MockStorage) ContentReads() int {
	return int(m.contentReads.Load())
}

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
