package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

// EventRepositoryInterface is the subset of event operations the handlers and
// workers depend on; mock implementations back the tests.
type EventRepositoryInterface interface {
	Create(ctx context.Context, event *models.ScheduleEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleEvent, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ScheduleEvent, error)
	Update(ctx context.Context, event *models.ScheduleEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InstanceRepositoryInterface defines the interface for event instance
// repository operations.
type InstanceRepositoryInterface interface {
	ReplaceForAnchor(ctx context.Context, anchorID uuid.UUID, instances []models.EventInstance) error
	DeleteByAnchor(ctx context.Context, anchorID uuid.UUID) error
	ListByUserWindow(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]models.EventInstance, error)
}

// AssignmentRepositoryInterface defines the interface for assignment
// repository operations.
type AssignmentRepositoryInterface interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, status *models.AssignmentStatus, page, pageSize int) ([]*models.Assignment, int, error)
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NoteRepositoryInterface defines the interface for note repository
// operations.
type NoteRepositoryInterface interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NoteActivityRepositoryInterface defines the interface for the reindex
// debounce tracking operations.
type NoteActivityRepositoryInterface interface {
	TouchNote(ctx context.Context, noteID uuid.UUID) error
	GetNotesNeedingReindex(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error)
	ClearPending(ctx context.Context, noteID uuid.UUID) error
	DeleteByNote(ctx context.Context, noteID uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ EventRepositoryInterface        = (*EventRepository)(nil)
	_ InstanceRepositoryInterface     = (*InstanceRepository)(nil)
	_ AssignmentRepositoryInterface   = (*AssignmentRepository)(nil)
	_ NoteRepositoryInterface         = (*NoteRepository)(nil)
	_ NoteActivityRepositoryInterface = (*NoteActivityRepository)(nil)
)
