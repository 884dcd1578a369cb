package workers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
)

// mockEventRepo is a mock implementation of EventRepositoryInterface
type mockEventRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.ScheduleEvent, error)
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.ScheduleEvent) error { return nil }

func (m *mockEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleEvent, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("event not found")
}

func (m *mockEventRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ScheduleEvent, error) {
	return nil, nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.ScheduleEvent) error { return nil }
func (m *mockEventRepo) Delete(ctx context.Context, id uuid.UUID) error                { return nil }

var _ database.EventRepositoryInterface = (*mockEventRepo)(nil)

// mockInstanceRepo is a mock implementation of InstanceRepositoryInterface
type mockInstanceRepo struct {
	replaceForAnchorFunc func(ctx context.Context, anchorID uuid.UUID, instances []models.EventInstance) error
	deleteByAnchorFunc   func(ctx context.Context, anchorID uuid.UUID) error
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
	return nil, nil
}

var _ database.InstanceRepositoryInterface = (*mockInstanceRepo)(nil)

// mockNoteRepo is a mock implementation of NoteRepositoryInterface
type mockNoteRepo struct {
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.Note, error)
	updateFunc        func(ctx context.Context, note *models.Note) error
	updateContentFunc func(ctx context.Context, id uuid.UUID, content string) error
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.Note) error { return nil }

func (m *mockNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("note not found")
}

func (m *mockNoteRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
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

func (m *mockNoteRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ database.NoteRepositoryInterface = (*mockNoteRepo)(nil)

// mockNoteActivityRepo is a mock implementation of NoteActivityRepositoryInterface
type mockNoteActivityRepo struct {
	getNotesNeedingReindexFunc func(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error)
	clearPendingFunc           func(ctx context.Context, noteID uuid.UUID) error
}

func (m *mockNoteActivityRepo) TouchNote(ctx context.Context, noteID uuid.UUID) error { return nil }

func (m *mockNoteActivityRepo) GetNotesNeedingReindex(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error) {
	if m.getNotesNeedingReindexFunc != nil {
		return m.getNotesNeedingReindexFunc(ctx, idleFor)
	}
	return nil, nil
}

func (m *mockNoteActivityRepo) ClearPending(ctx context.Context, noteID uuid.UUID) error {
	if m.clearPendingFunc != nil {
		return m.clearPendingFunc(ctx, noteID)
	}
	return nil
}

func (m *mockNoteActivityRepo) DeleteByNote(ctx context.Context, noteID uuid.UUID) error {
	return nil
}

var _ database.NoteActivityRepositoryInterface = (*mockNoteActivityRepo)(nil)

// mockJobQueue is a mock implementation of JobQueue
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

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)
