package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
)

// mockEventRepo is a mock implementation of EventRepositoryInterface
type mockEventRepo struct {
	createFunc      func(ctx context.Context, event *models.ScheduleEvent) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*models.ScheduleEvent, error)
	getByUserIDFunc func(ctx context.Context, userID uuid.UUID) ([]*models.ScheduleEvent, error)
	updateFunc      func(ctx context.Context, event *models.ScheduleEvent) error
	deleteFunc      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.ScheduleEvent) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, event)
	}
	return nil
}

func (m *mockEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleEvent, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("event not found")
}

func (m *mockEventRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ScheduleEvent, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.ScheduleEvent) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, event)
	}
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

var _ database.EventRepositoryInterface = (*mockEventRepo)(nil)

// mockInstanceRepo is a mock implementation of InstanceRepositoryInterface
type mockInstanceRepo struct {
	replaceForAnchorFunc func(ctx context.Context, anchorID uuid.UUID, instances []models.EventInstance) error
	deleteByAnchorFunc   func(ctx context.Context, anchorID uuid.UUID) error
	listByUserWindowFunc func(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]models.EventInstance, error)
}

func (m *mockInstanceRepo) ReplaceForAnchor(ctx context.Context, anchorID uuid.UUID, instances []models.EventInstance) error {
	if m.replaceForAnchorFunc != nil {
		return m.replaceForAnchorFunc(ctx, anchorID, instances)
	}
	return nil
}

func (m *mockInstanceRepo) DeleteByAnchor(ctx context.Context, anchorID uuid.UUID) error {
	if m.deleteByAnchorFunc != nil {
		return m.deleteByAnchorFunc(ctx, anchorID)
	}
	return nil
}

func (m *mockInstanceRepo) ListByUserWindow(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]models.EventInstance, error) {
	if m.listByUserWindowFunc != nil {
		return m.listByUserWindowFunc(ctx, userID, windowStart, windowEnd)
	}
	return nil, nil
}

var _ database.InstanceRepositoryInterface = (*mockInstanceRepo)(nil)

// mockAssignmentRepo is a mock implementation of AssignmentRepositoryInterface
type mockAssignmentRepo struct {
	createFunc               func(ctx context.Context, a *models.Assignment) error
	getByIDFunc              func(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	getByUserIDPaginatedFunc func(ctx context.Context, userID uuid.UUID, status *models.AssignmentStatus, page, pageSize int) ([]*models.Assignment, int, error)
	updateFunc               func(ctx context.Context, a *models.Assignment) error
	deleteFunc               func(ctx context.Context, id uuid.UUID) error
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	return nil
}

func (m *mockAssignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("assignment not found")
}

func (m *mockAssignmentRepo) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, status *models.AssignmentStatus, page, pageSize int) ([]*models.Assignment, int, error) {
	if m.getByUserIDPaginatedFunc != nil {
		return m.getByUserIDPaginatedFunc(ctx, userID, status, page, pageSize)
	}
	return nil, 0, nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, a)
	}
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

var _ database.AssignmentRepositoryInterface = (*mockAssignmentRepo)(nil)

// mockNoteRepo is a mock implementation of NoteRepositoryInterface
type mockNoteRepo struct {
	createFunc        func(ctx context.Context, note *models.Note) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.Note, error)
	getByUserIDFunc   func(ctx context.Context, userID uuid.UUID) ([]*models.Note, error)
	updateFunc        func(ctx context.Context, note *models.Note) error
	updateContentFunc func(ctx context.Context, id uuid.UUID, content string) error
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.Note) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, note)
	}
	return nil
}

func (m *mockNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("note not found")
}

func (m *mockNoteRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockNoteRepo) Update(ctx context.Context, note *models.Note) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, note)
	}
	return nil
}

func (m *mockNoteRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	if m.updateContentFunc != nil {
		return m.updateContentFunc(ctx, id, content)
	}
	return nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

var _ database.NoteRepositoryInterface = (*mockNoteRepo)(nil)

// mockNoteActivityRepo is a mock implementation of NoteActivityRepositoryInterface
type mockNoteActivityRepo struct {
	touched []uuid.UUID
	deleted []uuid.UUID
}

func (m *mockNoteActivityRepo) TouchNote(ctx context.Context, noteID uuid.UUID) error {
	m.touched = append(m.touched, noteID)
	return nil
}

func (m *mockNoteActivityRepo) GetNotesNeedingReindex(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *mockNoteActivityRepo) ClearPending(ctx context.Context, noteID uuid.UUID) error {
	return nil
}

func (m *mockNoteActivityRepo) DeleteByNote(ctx context.Context, noteID uuid.UUID) error {
	m.deleted = append(m.deleted, noteID)
	return nil
}

var _ database.NoteActivityRepositoryInterface = (*mockNoteActivityRepo)(nil)

// mockJobQueue is a mock implementation of JobQueue that records enqueued jobs
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error                          { return nil }
func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

// testUser returns a user suitable for injecting into request contexts.
func testUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "student@example.com",
	}
}

// authedRequest builds a request carrying the user in its context.
func authedRequest(user *models.User, method, path string, body any) *http.Request {
	r := newTestRequest(method, path, body)
	return r.WithContext(middleware.SetUserInContext(r.Context(), user))
}

// decodeData unmarshals the data field of the standard response envelope.
func decodeData(t *testing.T, body []byte, out any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope, got %s", string(body))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

// mustTime parses an RFC 3339 timestamp or fails the test.
func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("Failed to parse time %q: %v", value, err)
	}
	return parsed
}
